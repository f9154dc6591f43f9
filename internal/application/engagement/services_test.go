package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/wunderbrand/internal/application"
	"github.com/bryanwahyu/wunderbrand/internal/application/apptest"
	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
)

type fakeVerifier struct {
	ev  followups.BookingEvent
	err error
}

func (v *fakeVerifier) Parse(string, []byte, time.Time) (followups.BookingEvent, error) {
	return v.ev, v.err
}

type fixture struct {
	svc      *Service
	verifier *fakeVerifier
	sessions *apptest.Sessions
	surveys  *apptest.Surveys
	syncer   *apptest.Syncer
	failures *apptest.SyncFailures
}

func newFixture() *fixture {
	f := &fixture{
		verifier: &fakeVerifier{},
		sessions: apptest.NewSessions(),
		surveys:  &apptest.Surveys{},
		syncer:   &apptest.Syncer{},
		failures: &apptest.SyncFailures{},
	}
	clock := &apptest.FixedClock{T: time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)}
	f.svc = &Service{
		Verifier: f.verifier,
		Sessions: f.sessions,
		Surveys:  f.surveys,
		Syncer:   f.syncer,
		Marketing: &application.MarketingSync{
			Syncer: f.syncer, Failures: f.failures, Log: zap.NewNop(), Clock: clock,
		},
		Log:   zap.NewNop(),
		Clock: clock,
	}
	return f
}

func TestHandleCalendlyBookedThenCanceled(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	at := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	f.verifier.ev = followups.BookingEvent{
		Event: followups.EventInviteeCreated, Email: "Ada@Example.com", Name: "Ada",
		EventURI: "https://api.calendly.com/scheduled_events/E1", InviteeURI: "https://api.calendly.com/invitees/I1",
		ScheduledAt: at, ReportID: "r-1", Tier: "snapshot",
	}
	require.NoError(t, f.svc.HandleCalendly(ctx, "t=1,v1=x", []byte("{}")))

	booked, err := f.sessions.HasBooking(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, booked)
	s, err := f.sessions.ByInvitee(ctx, "https://api.calendly.com/invitees/I1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", s.ReportID)
	assert.Equal(t, at, s.ScheduledAt)

	f.verifier.ev.Event = followups.EventInviteeCanceled
	require.NoError(t, f.svc.HandleCalendly(ctx, "t=1,v1=x", []byte("{}")))
	booked, _ = f.sessions.HasBooking(ctx, "ada@example.com")
	assert.False(t, booked)

	assert.Equal(t, []string{"wb-session-booked", "wb-session-canceled"}, f.syncer.TagsFor("ada@example.com"))
}

func TestHandleCalendlyRebookKeepsSessionID(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.verifier.ev = followups.BookingEvent{
		Event: followups.EventInviteeCreated, Email: "ada@example.com",
		InviteeURI: "https://api.calendly.com/invitees/I1", ScheduledAt: time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC),
	}
	require.NoError(t, f.svc.HandleCalendly(ctx, "t=1,v1=x", []byte("{}")))
	first, err := f.sessions.ByInvitee(ctx, f.verifier.ev.InviteeURI)
	require.NoError(t, err)

	f.verifier.ev.ScheduledAt = f.verifier.ev.ScheduledAt.Add(24 * time.Hour)
	require.NoError(t, f.svc.HandleCalendly(ctx, "t=1,v1=x", []byte("{}")))
	second, err := f.sessions.ByInvitee(ctx, f.verifier.ev.InviteeURI)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, f.verifier.ev.ScheduledAt, second.ScheduledAt)

	f.sessions.LookupErr = errors.New("connection reset")
	err = f.svc.HandleCalendly(ctx, "t=1,v1=x", []byte("{}"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, application.ErrInvalidInput)
	f.sessions.LookupErr = nil
	again, err := f.sessions.ByInvitee(ctx, f.verifier.ev.InviteeURI)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestHandleCalendlyRejectsBadSignature(t *testing.T) {
	f := newFixture()
	f.verifier.err = followups.ErrInvalidSignature
	err := f.svc.HandleCalendly(context.Background(), "t=1,v1=bad", []byte("{}"))
	assert.ErrorIs(t, err, application.ErrUnauthorized)

	f.verifier.err = followups.ErrStaleWebhook
	err = f.svc.HandleCalendly(context.Background(), "t=1,v1=x", []byte("{}"))
	assert.ErrorIs(t, err, application.ErrUnauthorized)
}

func TestHandleCalendlyIgnoresOtherEvents(t *testing.T) {
	f := newFixture()
	f.verifier.ev = followups.BookingEvent{Event: "routing_form_submission.created"}
	require.NoError(t, f.svc.HandleCalendly(context.Background(), "", nil))
	assert.Empty(t, f.syncer.Calls)
	assert.Empty(t, f.sessions.Rows)
}

func TestSubmitSurvey(t *testing.T) {
	f := newFixture()

	sv, err := f.svc.SubmitSurvey(context.Background(), SurveyCommand{Email: "a@b.co", Rating: 9, Comment: " love it "})
	require.NoError(t, err)
	assert.Equal(t, "love it", sv.Comment)
	assert.Equal(t, []string{"wb-voc-promoter"}, f.syncer.TagsFor("a@b.co"))

	_, err = f.svc.SubmitSurvey(context.Background(), SurveyCommand{Email: "a@b.co", Rating: 11})
	assert.ErrorIs(t, err, application.ErrInvalidInput)
	assert.ErrorIs(t, err, followups.ErrInvalidRating)
	assert.Len(t, f.surveys.Rows, 1)

	for _, bad := range []string{"a@", "Ada <a@b.co>"} {
		_, err = f.svc.SubmitSurvey(context.Background(), SurveyCommand{Email: bad, Rating: 9})
		assert.ErrorIs(t, err, application.ErrInvalidInput, bad)
	}
}

func TestSyncContact(t *testing.T) {
	f := newFixture()
	f.syncer.FailTags = map[string]bool{"wb-broken": true}

	res, err := f.svc.SyncContact(context.Background(), ContactCommand{
		Email: "A@B.co", FirstName: "Ada", Tags: []string{"wb-lead", " ", "wb-broken"},
	})
	require.NoError(t, err, "tag failures never fail the contact")
	assert.Equal(t, []string{"wb-lead"}, res.TagsApplied)
	assert.Equal(t, []string{"wb-broken"}, res.TagsFailed)

	require.Len(t, f.failures.Rows, 1)
	assert.Equal(t, "apply_tags", string(f.failures.Rows[0].Operation))

	f.syncer.Err = errors.New("401 from activecampaign")
	_, err = f.svc.SyncContact(context.Background(), ContactCommand{Email: "a@b.co"})
	assert.ErrorIs(t, err, application.ErrUpstream)

	for _, bad := range []string{"nobody", "a@", "Ada <a@b.co>"} {
		_, err = f.svc.SyncContact(context.Background(), ContactCommand{Email: bad})
		assert.ErrorIs(t, err, application.ErrInvalidInput, bad)
	}
}
