package integration

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-training/integration-relay/pkg/core"
	"github.com/go-training/integration-relay/pkg/store"

	"github.com/stretchr/testify/require"
)

// fakeProvider stands in for a provider's token and data endpoints.
type fakeProvider struct {
	*httptest.Server

	tokenCalls atomic.Int32
	itemCalls  atomic.Int32

	mu           sync.Mutex
	tokenForm    url.Values
	tokenStatus  int
	tokenBody    string
	itemsStatus  int
	itemsBody    string
	itemsRequest *http.Request
	itemsPayload []byte
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	fp := &fakeProvider{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"access-123","refresh_token":"refresh-456","token_type":"bearer","expires_in":1800,"scope":"crm.objects.contacts.read oauth","workspace_id":"ws-1"}`,
		itemsStatus: http.StatusOK,
		itemsBody:   `{"results":[]}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		fp.tokenCalls.Add(1)
		_ = r.ParseForm()

		fp.mu.Lock()
		fp.tokenForm = r.PostForm
		status, body := fp.tokenStatus, fp.tokenBody
		fp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
	mux.HandleFunc("/items", func(w http.ResponseWriter, r *http.Request) {
		fp.itemCalls.Add(1)
		payload, _ := io.ReadAll(r.Body)

		fp.mu.Lock()
		fp.itemsRequest = r.Clone(context.Background())
		fp.itemsPayload = payload
		status, body := fp.itemsStatus, fp.itemsBody
		fp.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	fp.Server = httptest.NewServer(mux)
	t.Cleanup(fp.Close)
	return fp
}

func (fp *fakeProvider) setToken(status int, body string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.tokenStatus, fp.tokenBody = status, body
}

func (fp *fakeProvider) setItems(status int, body string) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.itemsStatus, fp.itemsBody = status, body
}

func (fp *fakeProvider) lastTokenForm() url.Values {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.tokenForm
}

func (fp *fakeProvider) lastItemsRequest() (*http.Request, []byte) {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.itemsRequest, fp.itemsPayload
}

func (fp *fakeProvider) config(kind Kind) ProviderConfig {
	return ProviderConfig{
		Name:             string(kind),
		Kind:             kind,
		ClientID:         "client-id",
		ClientSecret:     "client-secret",
		RedirectURL:      "http://localhost:8000/integrations/" + string(kind) + "/oauth2callback",
		AuthURL:          "https://auth.example.com/oauth/authorize",
		TokenURL:         fp.URL + "/oauth/token",
		ItemsURL:         fp.URL + "/items",
		Scopes:           []string{"crm.objects.contacts.read", "oauth"},
		AuthStyle:        AuthStyleParams,
		TokenExtraFields: []string{"workspace_id"},
	}
}

// fakeClock is a controllable time source for MemoryStore.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	provider *fakeProvider
	store    *store.MemoryStore
	clock    *fakeClock
	adapter  *Adapter
}

func newTestEnv(t *testing.T, kind Kind, opts ...Option) *testEnv {
	t.Helper()

	fp := newFakeProvider(t)
	clock := newFakeClock()
	mem := store.NewMemoryStore(store.WithClock(clock.Now))

	adapter, err := NewAdapter(fp.config(kind), mem, opts...)
	require.NoError(t, err)

	return &testEnv{provider: fp, store: mem, clock: clock, adapter: adapter}
}

// stateFromURL returns the state query value of an authorization URL.
func stateFromURL(t *testing.T, authURL string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	state := u.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

// failingStore fails Set after a number of successful calls.
type failingStore struct {
	core.Store
	okSets int
	sets   int
}

var errStoreDown = errors.New("store unavailable")

func (f *failingStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.sets++
	if f.sets > f.okSets {
		return errStoreDown
	}
	return f.Store.Set(ctx, key, value, ttl)
}
