package engagement

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
)

// Service covers what happens after a report: booked sessions, VOC surveys
// and direct contact syncs from the front end.
type Service struct {
	Verifier  followups.WebhookVerifier
	Sessions  followups.SessionRepository
	Surveys   followups.SurveyRepository
	Syncer    marketing.Syncer
	Marketing *application.MarketingSync
	Metrics   application.Metrics
	Log       *zap.Logger
	Clock     application.Clock
}

// HandleCalendly verifies and applies a Calendly webhook. Event types other
// than invitee.created and invitee.canceled are acknowledged and ignored.
func (s *Service) HandleCalendly(ctx context.Context, signature string, body []byte) error {
	now := s.Clock.Now()
	ev, err := s.Verifier.Parse(signature, body, now)
	if err != nil {
		s.metrics().WebhookEvent("calendly", "rejected")
		if errors.Is(err, followups.ErrInvalidSignature) || errors.Is(err, followups.ErrStaleWebhook) {
			return fmt.Errorf("%w: %w", application.ErrUnauthorized, err)
		}
		return fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}

	email := strings.ToLower(strings.TrimSpace(ev.Email))
	switch ev.Event {
	case followups.EventInviteeCreated:
		f := &followups.SessionFollowup{
			ID:          uuid.New().String(),
			Email:       email,
			Name:        ev.Name,
			ReportID:    ev.ReportID,
			Tier:        ev.Tier,
			EventURI:    ev.EventURI,
			InviteeURI:  ev.InviteeURI,
			ScheduledAt: ev.ScheduledAt,
			Status:      followups.SessionScheduled,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		existing, err := s.Sessions.ByInvitee(ctx, ev.InviteeURI)
		switch {
		case err == nil:
			f.ID = existing.ID
			f.CreatedAt = existing.CreatedAt
		case !errors.Is(err, followups.ErrNotFound):
			return fmt.Errorf("load session: %w", err)
		}
		if err := s.Sessions.Save(ctx, f); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		s.Log.Info("session booked", zap.String("invitee", ev.InviteeURI), zap.Time("scheduled_at", ev.ScheduledAt))
		s.Marketing.Sync(ctx, marketing.Contact{Email: email}, []string{marketing.TagSessionBooked})

	case followups.EventInviteeCanceled:
		err := s.Sessions.MarkCanceled(ctx, ev.InviteeURI)
		if err != nil && !errors.Is(err, followups.ErrNotFound) {
			return fmt.Errorf("cancel session: %w", err)
		}
		s.Log.Info("session canceled", zap.String("invitee", ev.InviteeURI))
		s.Marketing.Sync(ctx, marketing.Contact{Email: email}, []string{marketing.TagSessionCanceled})

	default:
		s.metrics().WebhookEvent("calendly", "ignored")
		return nil
	}
	s.metrics().WebhookEvent("calendly", "applied")
	return nil
}

type SurveyCommand struct {
	Email    string `json:"email"`
	ReportID string `json:"report_id"`
	Rating   int    `json:"rating"`
	Comment  string `json:"comment"`
	Source   string `json:"source"`
}

// SubmitSurvey stores a VOC response and tags the contact with its segment.
func (s *Service) SubmitSurvey(ctx context.Context, cmd SurveyCommand) (*followups.Survey, error) {
	email, err := application.NormalizeEmail(cmd.Email)
	if err != nil {
		return nil, err
	}
	sv := &followups.Survey{
		ID:        uuid.New().String(),
		Email:     email,
		ReportID:  strings.TrimSpace(cmd.ReportID),
		Rating:    cmd.Rating,
		Comment:   strings.TrimSpace(cmd.Comment),
		Source:    cmd.Source,
		CreatedAt: s.Clock.Now(),
	}
	if err := sv.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", application.ErrInvalidInput, err)
	}
	if err := s.Surveys.Save(ctx, sv); err != nil {
		return nil, fmt.Errorf("save survey: %w", err)
	}
	s.Marketing.Sync(ctx, marketing.Contact{Email: email}, []string{marketing.TagVOC(string(sv.Segment()))})
	return sv, nil
}

type ContactCommand struct {
	Email     string            `json:"email"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Phone     string            `json:"phone"`
	Tags      []string          `json:"tags"`
	Fields    map[string]string `json:"fields"`
}

// SyncContact upserts a contact directly. Only the upsert itself can fail the
// call. Tag and field failures come back in the result; failed tags get one
// more attempt through Marketing, which queues them if they fail again.
func (s *Service) SyncContact(ctx context.Context, cmd ContactCommand) (marketing.SyncResult, error) {
	email, err := application.NormalizeEmail(cmd.Email)
	if err != nil {
		return marketing.SyncResult{}, err
	}
	var tags []string
	for _, t := range cmd.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	c := marketing.Contact{
		Email:     email,
		FirstName: strings.TrimSpace(cmd.FirstName),
		LastName:  strings.TrimSpace(cmd.LastName),
		Phone:     strings.TrimSpace(cmd.Phone),
		Fields:    cmd.Fields,
	}

	res, err := s.Syncer.Sync(ctx, c, tags)
	if err != nil {
		return marketing.SyncResult{}, fmt.Errorf("%w: sync contact: %w", application.ErrUpstream, err)
	}
	if res.Partial() {
		s.Log.Warn("contact synced with failures",
			zap.String("contact_id", res.ContactID),
			zap.Strings("tags_failed", res.TagsFailed),
			zap.Strings("fields_failed", res.FieldsFailed),
		)
		if len(res.TagsFailed) > 0 {
			s.Marketing.Sync(ctx, marketing.Contact{Email: email}, res.TagsFailed)
		}
	}
	return res, nil
}

func (s *Service) metrics() application.Metrics {
	if s.Metrics == nil {
		return application.NopMetrics{}
	}
	return s.Metrics
}
