package approval

import (
	"errors"
	"time"
)

var (
	// ErrRequestNotFound is returned for unknown request ids.
	ErrRequestNotFound = errors.New("approval request not found")
	// ErrAlreadyDecided is returned when a request has left the open state.
	ErrAlreadyDecided = errors.New("approval request already decided")
)

// RequestStatus is the lifecycle state of a watchlist request.
type RequestStatus string

const (
	StatusOpen     RequestStatus = "open"
	StatusApproved RequestStatus = "approved"
	StatusDenied   RequestStatus = "denied"
)

// Request is a persisted proposal to add a subject to the watchlist.
type Request struct {
	ID          string `gorm:"primaryKey;size:36" json:"id"`
	SubjectKey  string `gorm:"column:subject_key;not null;index" json:"subject_key"`
	Reason      string `gorm:"column:reason;not null" json:"reason"`
	RequesterID string `gorm:"column:requester_id" json:"requester_id"`
	// Requester is the rendered requester identity, e.g. a mention.
	Requester     string        `gorm:"column:requester" json:"requester"`
	MessageRef    string        `gorm:"column:request_message_ref" json:"request_message_ref,omitempty"`
	AttachmentURL string        `gorm:"column:attachment_url" json:"attachment_url,omitempty"`
	Status        RequestStatus `gorm:"column:status;not null;index" json:"status"`
	RequestedAt   time.Time     `gorm:"column:requested_at" json:"requested_at"`
	DecidedAt     time.Time     `gorm:"column:decided_at" json:"decided_at,omitempty"`
	DecidedBy     string        `gorm:"column:decided_by" json:"decided_by,omitempty"`
}

// TableName returns the table name for GORM.
func (Request) TableName() string {
	return "watchlist_requests"
}

// Query filters requests when listing.
type Query struct {
	ID      string
	Status  RequestStatus
	Subject string
}
