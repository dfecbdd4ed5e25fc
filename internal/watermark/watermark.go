// Package watermark tracks the last run time of each incremental job per channel.
package watermark

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/magebridge/internal/models"
)

// Store reads and advances watermarks
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a store over db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Get returns the current watermark, nil when the job never ran
func (s *Store) Get(ctx context.Context, channelID uint, kind string) (*time.Time, error) {
	var rows []models.ExportWatermark
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND kind = ?", channelID, kind).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %s watermark: %w", kind, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].LastRunAt, nil
}

// Advance moves the watermark to now and returns the previous value.
// Callers advance before doing the work, so a crashed run under-exports rather than repeats.
func (s *Store) Advance(ctx context.Context, channelID uint, kind string) (*time.Time, error) {
	var prev *time.Time
	now := s.now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []models.ExportWatermark
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("channel_id = ? AND kind = ?", channelID, kind).
			Limit(1).
			Find(&rows).Error
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			if last := rows[0].LastRunAt; last != nil {
				t := *last
				prev = &t
			}
			return tx.Model(&models.ExportWatermark{}).
				Where("id = ?", rows[0].ID).
				Update("last_run_at", now).Error
		}
		return tx.Create(&models.ExportWatermark{ChannelID: channelID, Kind: kind, LastRunAt: &now}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to advance %s watermark: %w", kind, err)
	}
	return prev, nil
}

// Reset clears a watermark so the next run starts from the beginning
func (s *Store) Reset(ctx context.Context, channelID uint, kind string) error {
	err := s.db.WithContext(ctx).
		Where("channel_id = ? AND kind = ?", channelID, kind).
		Delete(&models.ExportWatermark{}).Error
	if err != nil {
		return fmt.Errorf("failed to reset %s watermark: %w", kind, err)
	}
	return nil
}
