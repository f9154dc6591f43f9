// Package calendly verifies and decodes Calendly webhooks.
package calendly

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/wunderbrand/internal/domain/followups"
)

// SignatureHeader carries "t=<unix>,v1=<hex hmac>".
const SignatureHeader = "Calendly-Webhook-Signature"

const DefaultTolerance = 5 * time.Minute

// Verifier implements followups.WebhookVerifier.
type Verifier struct {
	signingKey []byte
	tolerance  time.Duration
}

func NewVerifier(signingKey string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Verifier{signingKey: []byte(signingKey), tolerance: tolerance}
}

// Verify checks header against body. The signed content is "<t>.<body>".
func (v *Verifier) Verify(header string, body []byte, now time.Time) error {
	if len(v.signingKey) == 0 {
		return fmt.Errorf("%w: no signing key configured", followups.ErrInvalidSignature)
	}
	ts, sig, err := parseHeader(header)
	if err != nil {
		return err
	}
	mac := hmac.New(sha256.New, v.signingKey)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(sig)
	if err != nil || !hmac.Equal(expected, got) {
		return followups.ErrInvalidSignature
	}
	if d := now.Sub(time.Unix(ts, 0)); d > v.tolerance || d < -v.tolerance {
		return fmt.Errorf("%w: signed %s ago", followups.ErrStaleWebhook, d.Round(time.Second))
	}
	return nil
}

func parseHeader(header string) (int64, string, error) {
	var (
		ts  int64 = -1
		sig string
	)
	for _, part := range strings.Split(header, ",") {
		k, val, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			n, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return 0, "", fmt.Errorf("%w: bad timestamp", followups.ErrInvalidSignature)
			}
			ts = n
		case "v1":
			sig = val
		}
	}
	if ts < 0 || sig == "" {
		return 0, "", fmt.Errorf("%w: malformed header", followups.ErrInvalidSignature)
	}
	return ts, sig, nil
}

type envelope struct {
	Event   string `json:"event"`
	Payload struct {
		Email          string `json:"email"`
		Name           string `json:"name"`
		URI            string `json:"uri"`
		Event          string `json:"event"`
		ScheduledEvent struct {
			URI       string    `json:"uri"`
			StartTime time.Time `json:"start_time"`
		} `json:"scheduled_event"`
		Tracking struct {
			UTMCampaign string `json:"utm_campaign"`
			UTMContent  string `json:"utm_content"`
		} `json:"tracking"`
	} `json:"payload"`
}

// Parse verifies and decodes an invitee webhook.
func (v *Verifier) Parse(header string, body []byte, now time.Time) (followups.BookingEvent, error) {
	if err := v.Verify(header, body, now); err != nil {
		return followups.BookingEvent{}, err
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return followups.BookingEvent{}, fmt.Errorf("decode calendly payload: %w", err)
	}
	p := env.Payload
	ev := followups.BookingEvent{
		Event:       env.Event,
		Email:       p.Email,
		Name:        p.Name,
		EventURI:    p.ScheduledEvent.URI,
		InviteeURI:  p.URI,
		ScheduledAt: p.ScheduledEvent.StartTime,
		ReportID:    p.Tracking.UTMContent,
		Tier:        p.Tracking.UTMCampaign,
	}
	if ev.EventURI == "" {
		ev.EventURI = p.Event
	}
	if ev.Event == followups.EventInviteeCreated || ev.Event == followups.EventInviteeCanceled {
		if ev.InviteeURI == "" || ev.Email == "" {
			return followups.BookingEvent{}, fmt.Errorf("calendly %s without invitee uri or email", ev.Event)
		}
	}
	return ev, nil
}
