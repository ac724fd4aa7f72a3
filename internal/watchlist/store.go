package watchlist

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is the exclusive owner of the watchlist table. Every call is its own
// transaction; nothing is cached.
type Store struct {
	db *gorm.DB
}

// NewStore creates the table if needed and returns a store bound to db.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("%w: migrate watchlist table: %w", ErrStorage, err)
	}
	return &Store{db: db}, nil
}

// Upsert inserts entry or replaces the row sharing its folded key.
func (s *Store) Upsert(ctx context.Context, entry Entry) error {
	row := normalizeRow(entry)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "subject_fold"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject_key", "reason", "created_at", "updated_at",
			"notice_ref", "state", "added_by", "approved_by",
		}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("%w: upsert %q: %w", ErrStorage, row.SubjectKey, result.Error)
	}
	return nil
}

// InsertIfAbsent inserts entry only when no row exists for its folded key.
// A conflicting row yields ErrAlreadyListed.
func (s *Store) InsertIfAbsent(ctx context.Context, entry Entry) error {
	row := normalizeRow(entry)
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_fold"}},
		DoNothing: true,
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("%w: insert %q: %w", ErrStorage, row.SubjectKey, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyListed
	}
	return nil
}

// Delete removes the row for subject. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, subject string) error {
	result := s.db.WithContext(ctx).Where("subject_fold = ?", Fold(subject)).Delete(&Entry{})
	if result.Error != nil {
		return fmt.Errorf("%w: delete %q: %w", ErrStorage, subject, result.Error)
	}
	return nil
}

// DeleteTentative removes subject only while it is still pending_post.
func (s *Store) DeleteTentative(ctx context.Context, subject string) error {
	result := s.db.WithContext(ctx).
		Where("subject_fold = ? AND state = ?", Fold(subject), StatePendingPost).
		Delete(&Entry{})
	if result.Error != nil {
		return fmt.Errorf("%w: delete tentative %q: %w", ErrStorage, subject, result.Error)
	}
	return nil
}

// Get returns the row for subject in any state. ok is false when absent.
func (s *Store) Get(ctx context.Context, subject string) (Entry, bool, error) {
	var entry Entry
	result := s.db.WithContext(ctx).Where("subject_fold = ?", Fold(subject)).First(&entry)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("%w: get %q: %w", ErrStorage, subject, result.Error)
	}
	return entry, true, nil
}

// ListAll returns every row in insertion order.
func (s *Store) ListAll(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if result := s.db.WithContext(ctx).Order("id asc").Find(&entries); result.Error != nil {
		return nil, fmt.Errorf("%w: list: %w", ErrStorage, result.Error)
	}
	return entries, nil
}

// ListTentative returns pending_post rows last touched before the given epoch second.
func (s *Store) ListTentative(ctx context.Context, before int64) ([]Entry, error) {
	var entries []Entry
	result := s.db.WithContext(ctx).
		Where("state = ? AND updated_at < ?", StatePendingPost, before).
		Order("id asc").
		Find(&entries)
	if result.Error != nil {
		return nil, fmt.Errorf("%w: list tentative: %w", ErrStorage, result.Error)
	}
	return entries, nil
}

// Activate finalizes a pending_post row with its notice reference.
func (s *Store) Activate(ctx context.Context, subject, noticeRef string, now int64) error {
	result := s.db.WithContext(ctx).Model(&Entry{}).
		Where("subject_fold = ? AND state = ?", Fold(subject), StatePendingPost).
		Updates(map[string]any{
			"state":      StateActive,
			"notice_ref": noticeRef,
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: activate %q: %w", ErrStorage, subject, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("activate %q: %w", subject, ErrNotListed)
	}
	return nil
}

// SetNoticeRef repoints the notice reference of an existing row.
func (s *Store) SetNoticeRef(ctx context.Context, subject, noticeRef string, now int64) error {
	result := s.db.WithContext(ctx).Model(&Entry{}).
		Where("subject_fold = ?", Fold(subject)).
		Updates(map[string]any{
			"notice_ref": noticeRef,
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("%w: set notice ref %q: %w", ErrStorage, subject, result.Error)
	}
	return nil
}

// Count returns the number of rows in the given state.
func (s *Store) Count(ctx context.Context, state State) (int64, error) {
	var n int64
	if result := s.db.WithContext(ctx).Model(&Entry{}).Where("state = ?", state).Count(&n); result.Error != nil {
		return 0, fmt.Errorf("%w: count: %w", ErrStorage, result.Error)
	}
	return n, nil
}

func normalizeRow(entry Entry) Entry {
	entry.ID = 0
	entry.SubjectFold = Fold(entry.SubjectKey)
	if entry.State == "" {
		entry.State = StateActive
	}
	return entry
}
