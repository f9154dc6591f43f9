package calendly

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
)

const key = "calendly-signing-key"

var now = time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)

func sign(body []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(key))
	fmt.Fprintf(mac, "%d.%s", at.Unix(), body)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

const createdBody = `{
  "event": "invitee.created",
  "payload": {
    "email": "ada@example.com",
    "name": "Ada Lovelace",
    "uri": "https://api.calendly.com/scheduled_events/E1/invitees/I1",
    "scheduled_event": {"uri": "https://api.calendly.com/scheduled_events/E1", "start_time": "2025-06-10T15:00:00Z"},
    "tracking": {"utm_campaign": "snapshot", "utm_content": "r-1"}
  }
}`

func TestParse(t *testing.T) {
	v := NewVerifier(key, 0)
	body := []byte(createdBody)

	ev, err := v.Parse(sign(body, now.Add(-time.Minute)), body, now)
	require.NoError(t, err)
	assert.Equal(t, followups.EventInviteeCreated, ev.Event)
	assert.Equal(t, "ada@example.com", ev.Email)
	assert.Equal(t, "https://api.calendly.com/scheduled_events/E1", ev.EventURI)
	assert.Equal(t, "r-1", ev.ReportID)
	assert.Equal(t, "snapshot", ev.Tier)
	assert.True(t, ev.ScheduledAt.Equal(time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)))
}

func TestVerify(t *testing.T) {
	v := NewVerifier(key, 5*time.Minute)
	body := []byte(createdBody)

	cases := []struct {
		name   string
		header string
		body   []byte
		want   error
	}{
		{"valid", sign(body, now), body, nil},
		{"tampered body", sign(body, now), []byte(`{"event":"invitee.canceled"}`), followups.ErrInvalidSignature},
		{"wrong key", func() string {
			mac := hmac.New(sha256.New, []byte("other"))
			fmt.Fprintf(mac, "%d.%s", now.Unix(), body)
			return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))
		}(), body, followups.ErrInvalidSignature},
		{"too old", sign(body, now.Add(-6*time.Minute)), body, followups.ErrStaleWebhook},
		{"from the future", sign(body, now.Add(6*time.Minute)), body, followups.ErrStaleWebhook},
		{"missing v1", fmt.Sprintf("t=%d", now.Unix()), body, followups.ErrInvalidSignature},
		{"garbage", "nonsense", body, followups.ErrInvalidSignature},
		{"non-hex signature", fmt.Sprintf("t=%d,v1=zz", now.Unix()), body, followups.ErrInvalidSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.Verify(tc.header, tc.body, now)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseRejectsIncompleteInvitee(t *testing.T) {
	v := NewVerifier(key, 0)
	body := []byte(`{"event":"invitee.created","payload":{"email":"a@b.co"}}`)
	_, err := v.Parse(sign(body, now), body, now)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, followups.ErrInvalidSignature)
}

func TestVerifyWithoutKeyRejects(t *testing.T) {
	v := NewVerifier("", 0)
	body := []byte(createdBody)
	mac := hmac.New(sha256.New, nil)
	fmt.Fprintf(mac, "%d.%s", now.Unix(), body)
	header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(mac.Sum(nil)))

	assert.ErrorIs(t, v.Verify(header, body, now), followups.ErrInvalidSignature)
}
