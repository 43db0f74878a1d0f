package models

import "time"

// UserStats holds gamification counters for one user.
type UserStats struct {
	UserID             string     `gorm:"type:uuid;primaryKey" json:"user_id"`
	Points             int64      `gorm:"not null;default:0" json:"points"`
	CurrentStreak      int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak      int        `gorm:"not null;default:0" json:"longest_streak"`
	TransactionsLogged int64      `gorm:"not null;default:0" json:"transactions_logged"`
	LastActivityDate   *time.Time `json:"last_activity_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Level is derived from points: every 100 points is one level, starting at 1.
func (s *UserStats) Level() int {
	return int(s.Points/100) + 1
}
