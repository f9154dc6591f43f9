// Package activecampaign syncs contacts, tags and custom fields through the
// ActiveCampaign v3 REST API.
package activecampaign

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
)

const (
	defaultTimeout     = 15 * time.Second
	defaultConcurrency = 4
	maxAttempts        = 3
)

// APIError is a non-2xx answer from ActiveCampaign.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("activecampaign returned status %d: %s", e.Status, e.Body)
}

// Client implements marketing.Syncer.
type Client struct {
	baseURL     string
	token       string
	client      *http.Client
	log         *zap.Logger
	concurrency int

	mu       sync.Mutex
	tagIDs   map[string]string
	fieldIDs map[string]string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.client = hc } }
func WithConcurrency(n int) Option          { return func(c *Client) { c.concurrency = n } }

// NewClient takes the account API URL (https://<account>.api-us1.com) and token.
func NewClient(baseURL, token string, log *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/") + "/api/3",
		token:       token,
		client:      &http.Client{Timeout: defaultTimeout},
		log:         log,
		concurrency: defaultConcurrency,
		tagIDs:      map[string]string{},
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

type contactPayload struct {
	Email       string       `json:"email"`
	FirstName   string       `json:"firstName,omitempty"`
	LastName    string       `json:"lastName,omitempty"`
	Phone       string       `json:"phone,omitempty"`
	FieldValues []fieldValue `json:"fieldValues,omitempty"`
}

type fieldValue struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// Sync upserts the contact, then applies tags in parallel. Only the upsert
// can fail the call; tag and field problems are listed in the result.
func (c *Client) Sync(ctx context.Context, ct marketing.Contact, tags []string) (marketing.SyncResult, error) {
	var res marketing.SyncResult

	payload := contactPayload{Email: ct.Email, FirstName: ct.FirstName, LastName: ct.LastName, Phone: ct.Phone}
	if len(ct.Fields) > 0 {
		ids, err := c.fields(ctx)
		if err != nil {
			c.log.Warn("could not load custom fields", zap.Error(err))
		}
		for key, val := range ct.Fields {
			id, ok := ids[strings.ToUpper(key)]
			if !ok {
				res.FieldsFailed = append(res.FieldsFailed, key)
				continue
			}
			payload.FieldValues = append(payload.FieldValues, fieldValue{Field: id, Value: val})
		}
	}

	var out struct {
		Contact struct {
			ID string `json:"id"`
		} `json:"contact"`
	}
	if err := c.do(ctx, http.MethodPost, "/contact/sync", map[string]any{"contact": payload}, &out); err != nil {
		return res, fmt.Errorf("sync contact: %w", err)
	}
	res.ContactID = out.Contact.ID

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, tag := range dedupe(tags) {
		g.Go(func() error {
			err := c.applyTag(gctx, res.ContactID, tag)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				c.log.Warn("failed to apply tag", zap.String("tag", tag), zap.String("contact_id", res.ContactID), zap.Error(err))
				res.TagsFailed = append(res.TagsFailed, tag)
				return nil
			}
			res.TagsApplied = append(res.TagsApplied, tag)
			return nil
		})
	}
	_ = g.Wait()
	return res, nil
}

func (c *Client) applyTag(ctx context.Context, contactID, tag string) error {
	id, err := c.ensureTag(ctx, tag)
	if err != nil {
		return err
	}
	body := map[string]any{"contactTag": map[string]string{"contact": contactID, "tag": id}}
	return c.do(ctx, http.MethodPost, "/contactTags", body, nil)
}

// ensureTag looks a tag up by name and creates it when missing.
func (c *Client) ensureTag(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	id, ok := c.tagIDs[name]
	c.mu.Unlock()
	if ok {
		return id, nil
	}

	var found struct {
		Tags []struct {
			ID  string `json:"id"`
			Tag string `json:"tag"`
		} `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, "/tags?search="+url.QueryEscape(name), nil, &found); err != nil {
		return "", fmt.Errorf("search tag %s: %w", name, err)
	}
	for _, t := range found.Tags {
		if strings.EqualFold(t.Tag, name) {
			id = t.ID
			break
		}
	}
	if id == "" {
		var created struct {
			Tag struct {
				ID string `json:"id"`
			} `json:"tag"`
		}
		body := map[string]any{"tag": map[string]string{"tag": name, "tagType": "contact", "description": "WunderBrand"}}
		if err := c.do(ctx, http.MethodPost, "/tags", body, &created); err != nil {
			return "", fmt.Errorf("create tag %s: %w", name, err)
		}
		id = created.Tag.ID
	}

	c.mu.Lock()
	c.tagIDs[name] = id
	c.mu.Unlock()
	return id, nil
}

// fields maps personalization tags (upper case) to field IDs, cached after
// the first successful load.
func (c *Client) fields(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	cached := c.fieldIDs
	c.mu.Unlock()
	if cached != nil {
		return cached, nil
	}

	var out struct {
		Fields []struct {
			ID      string `json:"id"`
			Perstag string `json:"perstag"`
		} `json:"fields"`
	}
	if err := c.do(ctx, http.MethodGet, "/fields?limit=100", nil, &out); err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(out.Fields))
	for _, f := range out.Fields {
		ids[strings.ToUpper(f.Perstag)] = f.ID
	}
	c.mu.Lock()
	c.fieldIDs = ids
	c.mu.Unlock()
	return ids, nil
}

// do sends one request, retrying on 429 and 5xx.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Api-Token", c.token)
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 200 * time.Millisecond
	return backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(eb, maxAttempts-1), ctx))
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
