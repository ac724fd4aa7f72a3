package watchlist

import (
	"errors"
	"strings"
)

var (
	// ErrAlreadyListed is returned when an active or reserved entry exists for the key.
	ErrAlreadyListed = errors.New("subject is already on the watchlist")
	// ErrNotListed is returned when no active entry exists for the key.
	ErrNotListed = errors.New("subject is not on the watchlist")
	// ErrStorage wraps failures of the backing database.
	ErrStorage = errors.New("watchlist storage unavailable")
	// ErrInvalidInput is returned for empty subjects or reasons.
	ErrInvalidInput = errors.New("invalid watchlist input")
)

// State is the lifecycle of a stored row.
type State string

const (
	// StatePendingPost marks a reserved key whose notice is not posted yet.
	StatePendingPost State = "pending_post"
	// StateActive marks a listed subject with a live notice.
	StateActive State = "active"
)

// Entry is one watchlist row.
type Entry struct {
	ID          uint   `gorm:"primaryKey"`
	SubjectKey  string `gorm:"column:subject_key;not null"`
	SubjectFold string `gorm:"column:subject_fold;not null;uniqueIndex"`
	Reason      string `gorm:"column:reason;not null"`
	// CreatedAt is epoch seconds at listing time. Refresh never rewrites it.
	CreatedAt  int64  `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt  int64  `gorm:"column:updated_at;autoUpdateTime:false"`
	NoticeRef  string `gorm:"column:notice_ref"`
	State      State  `gorm:"column:state;not null;index"`
	AddedBy    string `gorm:"column:added_by"`
	ApprovedBy string `gorm:"column:approved_by"`
}

// TableName returns the table name for GORM.
func (Entry) TableName() string {
	return "watchlist_entries"
}

// Active reports whether the entry is listed.
func (e Entry) Active() bool { return e.State == StateActive }

// Fold returns the case-insensitive form of a subject key.
func Fold(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}
