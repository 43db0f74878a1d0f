package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"walletwise/internal/clock"
	apperrors "walletwise/internal/errors"
	"walletwise/internal/models"
)

// PointsPerTransaction is awarded for every logged transaction.
const PointsPerTransaction = 10

// gamificationService keeps points and daily logging streaks.
type gamificationService struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewGamificationService creates a new GamificationServicer.
func NewGamificationService(db *gorm.DB, clk clock.Clock) GamificationServicer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &gamificationService{db: db, clock: clk}
}

// RecordUserActivity awards points for an added transaction and advances the
// daily streak.
func (s *gamificationService) RecordUserActivity(ctx context.Context, ownerID string, activity Activity) error {
	if activity.Kind != ActivityTransactionAdded {
		return nil
	}
	at := activity.OccurredAt
	if at.IsZero() {
		at = s.clock.Now()
	}
	day := truncateToDay(at)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stats := models.UserStats{UserID: ownerID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&stats).Error; err != nil {
			return err
		}

		// The counter update takes the row lock before the streak is read.
		err := tx.Model(&models.UserStats{}).Where("user_id = ?", ownerID).
			UpdateColumns(map[string]interface{}{
				"points":              gorm.Expr("points + ?", PointsPerTransaction),
				"transactions_logged": gorm.Expr("transactions_logged + 1"),
			}).Error
		if err != nil {
			return err
		}

		if err := tx.Where("user_id = ?", ownerID).First(&stats).Error; err != nil {
			return err
		}
		if !advanceStreak(&stats, day) {
			return nil
		}
		return tx.Model(&models.UserStats{}).Where("user_id = ?", ownerID).
			UpdateColumns(map[string]interface{}{
				"current_streak":     stats.CurrentStreak,
				"longest_streak":     stats.LongestStreak,
				"last_activity_date": stats.LastActivityDate,
				"updated_at":         s.clock.Now(),
			}).Error
	})
}

// advanceStreak applies activity on day to the streak and reports whether
// anything changed. Activity on an earlier day than the last recorded one is
// ignored.
func advanceStreak(stats *models.UserStats, day time.Time) bool {
	switch {
	case stats.LastActivityDate == nil:
		stats.CurrentStreak = 1
	default:
		last := truncateToDay(*stats.LastActivityDate)
		switch {
		case !day.After(last):
			return false
		case day.Equal(last.AddDate(0, 0, 1)):
			stats.CurrentStreak++
		default:
			stats.CurrentStreak = 1
		}
	}
	if stats.CurrentStreak > stats.LongestStreak {
		stats.LongestStreak = stats.CurrentStreak
	}
	stats.LastActivityDate = &day
	return true
}

// GetStats returns the user's progress. A user with no activity yet gets zeroed stats.
func (s *gamificationService) GetStats(ctx context.Context, userID string) (*GamificationStats, error) {
	var stats models.UserStats
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&stats).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	// A streak is only current if the last activity was today or yesterday.
	current := stats.CurrentStreak
	if stats.LastActivityDate != nil {
		today := truncateToDay(s.clock.Now())
		if today.Sub(truncateToDay(*stats.LastActivityDate)) > 24*time.Hour {
			current = 0
		}
	}

	return &GamificationStats{
		Points:             stats.Points,
		Level:              stats.Level(),
		CurrentStreak:      current,
		LongestStreak:      stats.LongestStreak,
		TransactionsLogged: stats.TransactionsLogged,
		LastActivityDate:   stats.LastActivityDate,
	}, nil
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
