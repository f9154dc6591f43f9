package activecampaign

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/wunderbrand/internal/domain/marketing"
)

type fakeAC struct {
	mu          sync.Mutex
	contacts    []map[string]any
	createdTags []string
	contactTags []string
	syncStatus  atomic.Int32
	failTag     string
	attempts    atomic.Int32
}

func (f *fakeAC) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/3/contact/sync", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("Api-Token"))
		f.attempts.Add(1)
		if status := int(f.syncStatus.Load()); status != 0 {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"message":"nope"}`))
			return
		}
		var body map[string]map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.contacts = append(f.contacts, body["contact"])
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"contact":{"id":"42"}}`))
	})
	mux.HandleFunc("GET /api/3/fields", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"fields":[{"id":"7","perstag":"WUNDERBRAND_SCORE"},{"id":"8","perstag":"primary_pillar"}]}`))
	})
	mux.HandleFunc("GET /api/3/tags", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("search") == "wb-existing" {
			_, _ = w.Write([]byte(`{"tags":[{"id":"100","tag":"wb-existing"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"tags":[]}`))
	})
	mux.HandleFunc("POST /api/3/tags", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		name := body["tag"]["tag"]
		if name == f.failTag {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		f.mu.Lock()
		f.createdTags = append(f.createdTags, name)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"tag":{"id":"200"}}`))
	})
	mux.HandleFunc("POST /api/3/contactTags", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.contactTags = append(f.contactTags, body["contactTag"]["contact"]+":"+body["contactTag"]["tag"])
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeAC) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", nil)
}

func TestSync(t *testing.T) {
	f := &fakeAC{}
	c := newTestClient(t, f)

	res, err := c.Sync(context.Background(), marketing.Contact{
		Email: "a@b.co", FirstName: "Ada",
		Fields: map[string]string{marketing.FieldScore: "62", marketing.FieldPrimaryPillar: "Visibility", "UNKNOWN": "x"},
	}, []string{"wb-existing", "wb-new", "wb-new"})
	require.NoError(t, err)

	assert.Equal(t, "42", res.ContactID)
	sort.Strings(res.TagsApplied)
	assert.Equal(t, []string{"wb-existing", "wb-new"}, res.TagsApplied)
	assert.Equal(t, []string{"UNKNOWN"}, res.FieldsFailed)
	assert.True(t, res.Partial())

	assert.Equal(t, []string{"wb-new"}, f.createdTags)
	sort.Strings(f.contactTags)
	assert.Equal(t, []string{"42:100", "42:200"}, f.contactTags)

	require.Len(t, f.contacts, 1)
	assert.Equal(t, "Ada", f.contacts[0]["firstName"])
	assert.Len(t, f.contacts[0]["fieldValues"], 2)
}

func TestSyncTagFailureDoesNotFailContact(t *testing.T) {
	f := &fakeAC{failTag: "wb-broken"}
	c := newTestClient(t, f)

	res, err := c.Sync(context.Background(), marketing.Contact{Email: "a@b.co"}, []string{"wb-ok", "wb-broken"})
	require.NoError(t, err)
	assert.Equal(t, []string{"wb-ok"}, res.TagsApplied)
	assert.Equal(t, []string{"wb-broken"}, res.TagsFailed)
}

func TestSyncContactErrors(t *testing.T) {
	f := &fakeAC{}
	f.syncStatus.Store(http.StatusUnprocessableEntity)
	c := newTestClient(t, f)

	_, err := c.Sync(context.Background(), marketing.Contact{Email: "bad"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.EqualValues(t, 1, f.attempts.Load(), "4xx is not retried")

	f.syncStatus.Store(http.StatusServiceUnavailable)
	f.attempts.Store(0)
	_, err = c.Sync(context.Background(), marketing.Contact{Email: "a@b.co"}, nil)
	require.Error(t, err)
	assert.EqualValues(t, maxAttempts, f.attempts.Load())
}

func TestTagIDsAreCached(t *testing.T) {
	f := &fakeAC{}
	c := newTestClient(t, f)

	for i := 0; i < 2; i++ {
		_, err := c.Sync(context.Background(), marketing.Contact{Email: "a@b.co"}, []string{"wb-new"})
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"wb-new"}, f.createdTags)
}
