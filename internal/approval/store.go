package approval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Store persists watchlist requests in the shared database.
type Store struct {
	db *gorm.DB
}

// NewStore migrates the request table and returns a store bound to db.
func NewStore(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Request{}); err != nil {
		return nil, fmt.Errorf("migrate approval table: %w", err)
	}
	return &Store{db: db}, nil
}

// Create inserts a new request.
func (s *Store) Create(ctx context.Context, req Request) error {
	if err := s.db.WithContext(ctx).Create(&req).Error; err != nil {
		return fmt.Errorf("create approval request: %w", err)
	}
	return nil
}

// Get loads a request by id.
func (s *Store) Get(ctx context.Context, id string) (Request, error) {
	var req Request
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Request{}, fmt.Errorf("%w: %s", ErrRequestNotFound, id)
		}
		return Request{}, fmt.Errorf("load approval request: %w", err)
	}
	return req, nil
}

// Delete removes a request.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Where("id = ?", id).Delete(&Request{}).Error; err != nil {
		return fmt.Errorf("delete approval request: %w", err)
	}
	return nil
}

// SetMessageRef records the id of the posted request message.
func (s *Store) SetMessageRef(ctx context.Context, id, ref string) error {
	err := s.db.WithContext(ctx).Model(&Request{}).Where("id = ?", id).Update("request_message_ref", ref).Error
	if err != nil {
		return fmt.Errorf("set request message ref: %w", err)
	}
	return nil
}

// Transition moves a request from one status to another in a single
// conditional update. It reports false when the request was not in from.
func (s *Store) Transition(ctx context.Context, id string, from, to RequestStatus, decidedBy string, decidedAt time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&Request{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"decided_by": decidedBy,
			"decided_at": decidedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("update approval request: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// List returns requests matching query, oldest first.
func (s *Store) List(ctx context.Context, query Query) ([]Request, error) {
	tx := s.db.WithContext(ctx).Model(&Request{})
	if id := strings.TrimSpace(query.ID); id != "" {
		tx = tx.Where("id = ?", id)
	}
	if status := strings.TrimSpace(string(query.Status)); status != "" {
		tx = tx.Where("status = ?", status)
	}
	if subject := strings.TrimSpace(query.Subject); subject != "" {
		tx = tx.Where("lower(subject_key) = ?", strings.ToLower(subject))
	}

	var out []Request
	if err := tx.Order("requested_at asc").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list approval requests: %w", err)
	}
	return out, nil
}
