// Package followups covers what happens after a report: booked strategy
// sessions (Calendly) and voice-of-customer surveys.
package followups

import (
	"errors"
	"time"
)

var (
	ErrNotFound         = errors.New("followup not found")
	ErrInvalidRating    = errors.New("rating must be between 1 and 10")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrStaleWebhook     = errors.New("webhook timestamp outside tolerance")
)

type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionCanceled  SessionStatus = "canceled"
)

// SessionFollowup is a booked call tied to a report (session_followups).
type SessionFollowup struct {
	ID          string        `json:"id"`
	Email       string        `json:"email"`
	Name        string        `json:"name,omitempty"`
	ReportID    string        `json:"report_id,omitempty"`
	Tier        string        `json:"tier,omitempty"`
	EventURI    string        `json:"event_uri"`
	InviteeURI  string        `json:"invitee_uri"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	Status      SessionStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Segment is the NPS bucket of a survey rating.
type Segment string

const (
	SegmentPromoter  Segment = "promoter"
	SegmentPassive   Segment = "passive"
	SegmentDetractor Segment = "detractor"
)

// Survey is one voc_surveys response.
type Survey struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ReportID  string    `json:"report_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s Survey) Validate() error {
	if s.Rating < 1 || s.Rating > 10 {
		return ErrInvalidRating
	}
	return nil
}

// Segment buckets the rating: 9-10 promoter, 7-8 passive, otherwise detractor.
func (s Survey) Segment() Segment {
	switch {
	case s.Rating >= 9:
		return SegmentPromoter
	case s.Rating >= 7:
		return SegmentPassive
	default:
		return SegmentDetractor
	}
}
