package followups

import (
	"context"
	"time"
)

// SessionRepository persists Calendly bookings.
type SessionRepository interface {
	Save(ctx context.Context, f *SessionFollowup) error
	ByInvitee(ctx context.Context, inviteeURI string) (*SessionFollowup, error)
	MarkCanceled(ctx context.Context, inviteeURI string) error
	HasBooking(ctx context.Context, email string) (bool, error)
}

// SurveyRepository persists VOC responses.
type SurveyRepository interface {
	Save(ctx context.Context, s *Survey) error
	ListByEmail(ctx context.Context, email string, limit int) ([]*Survey, error)
}

// Calendly webhook event names.
const (
	EventInviteeCreated  = "invitee.created"
	EventInviteeCanceled = "invitee.canceled"
)

// BookingEvent is a verified scheduling webhook.
type BookingEvent struct {
	Event       string
	Email       string
	Name        string
	EventURI    string
	InviteeURI  string
	ScheduledAt time.Time
	// ReportID and Tier come from the booking link's utm_content/utm_campaign.
	ReportID string
	Tier     string
}

// WebhookVerifier checks a scheduling webhook signature and decodes the body.
type WebhookVerifier interface {
	Parse(signatureHeader string, body []byte, now time.Time) (BookingEvent, error)
}
