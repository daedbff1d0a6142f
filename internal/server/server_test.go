package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matheuscscp/fairshare/internal/auth"
	"github.com/matheuscscp/fairshare/models"
	"github.com/matheuscscp/fairshare/services/events"
	"github.com/matheuscscp/fairshare/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type (
	fakeExtractor struct {
		items models.Receipt
		err   error
		mime  string
	}

	fakeNotifier struct {
		mu           sync.Mutex
		joined       []string
		fullyClaimed int
	}

	fakeImages struct {
		stored  []string
		deleted []string
	}
)

var pngImage = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func (f *fakeExtractor) Extract(ctx context.Context, image []byte, mimeType string) (models.Receipt, error) {
	f.mime = mimeType
	return f.items, f.err
}

func (f *fakeExtractor) Followup(ctx context.Context, items models.Receipt, prompt string) (models.Receipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(items) > 0 {
		items[0].Count = 3
	}
	return items, nil
}

func (f *fakeNotifier) ParticipantJoined(ctx context.Context, session *models.Session, participant *models.Participant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, participant.Name)
	return nil
}

func (f *fakeNotifier) FullyClaimed(ctx context.Context, session *models.Session, summary *models.Summary) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fullyClaimed++
	return nil
}

func (f *fakeImages) Store(ctx context.Context, sessionID, mimeType string, image []byte) (string, error) {
	f.stored = append(f.stored, sessionID+" "+mimeType)
	return "sessions/" + sessionID + "/receipt.png", nil
}

func (f *fakeImages) Delete(ctx context.Context, sessionID string) error {
	f.deleted = append(f.deleted, sessionID)
	return nil
}

func (f *fakeImages) Close() {}

type testEnv struct {
	server    *Server
	extractor *fakeExtractor
	notifier  *fakeNotifier
	images    *fakeImages
	issuer    *auth.Issuer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.Open(context.Background(), storage.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		extractor: &fakeExtractor{},
		notifier:  &fakeNotifier{},
		images:    &fakeImages{},
		issuer:    auth.NewIssuer([]byte("test-secret"), time.Hour),
	}
	env.server = New(Deps{
		Store:         store,
		Extractor:     env.extractor,
		Issuer:        env.issuer,
		Broker:        events.NewBroker(nil, ""),
		Images:        env.images,
		Notifier:      env.notifier,
		BaseURL:       "https://fairshare.example",
		MaxImageBytes: 1 << 10,
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) *T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return &v
}

func (e *testEnv) createSession(t *testing.T) *sessionResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions", "", map[string]interface{}{
		"beem_handle": "hosty",
		"items": []map[string]interface{}{
			{"id": "bread", "item_name": "garlic bread", "item_count": 2, "price_cents": 1650},
			{"id": "coke", "item_name": "coke", "item_count": 4, "price_cents": 3200},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[sessionResponse](t, rec)
}

func (e *testEnv) join(t *testing.T, slug, name string) *joinResponse {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/sessions/"+slug+"/participants", "", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[joinResponse](t, rec)
}

func claims(pairs ...interface{}) map[string]interface{} {
	items := []map[string]interface{}{}
	for i := 0; i < len(pairs); i += 2 {
		items = append(items, map[string]interface{}{"item_id": pairs[i], "item_count": pairs[i+1]})
	}
	return map[string]interface{}{"items": items}
}

func TestExtractReceipt(t *testing.T) {
	env := newTestEnv(t)
	env.extractor.items = models.Receipt{{ID: "a", Name: "Tea", Count: 1, Price: 800}}

	t.Run("data url", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/receipts/extract", "", extractRequest{
			Image: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg bytes")),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		resp := decode[itemsResponse](t, rec)
		assert.Equal(t, env.extractor.items, resp.Items)
		assert.Equal(t, "image/jpeg", env.extractor.mime)
	})

	t.Run("bare base64 is sniffed", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/receipts/extract", "", extractRequest{
			Image: base64.StdEncoding.EncodeToString(pngImage),
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", env.extractor.mime)
	})

	for _, tt := range []struct {
		name   string
		image  string
		status int
	}{
		{name: "missing", image: "", status: http.StatusBadRequest},
		{name: "not base64", image: "data:image/png;base64,%%%", status: http.StatusBadRequest},
		{name: "not an image", image: base64.StdEncoding.EncodeToString([]byte("hello world")), status: http.StatusBadRequest},
		{name: "too large", image: base64.StdEncoding.EncodeToString(make([]byte, 2<<10)), status: http.StatusRequestEntityTooLarge},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/receipts/extract", "", extractRequest{Image: tt.image})
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[errorResponse](t, rec).Error)
		})
	}

	t.Run("extractor failure is hidden", func(t *testing.T) {
		env.extractor.err = errors.New("openai is down")
		defer func() { env.extractor.err = nil }()
		rec := env.do(t, http.MethodPost, "/api/receipts/extract", "", extractRequest{
			Image: base64.StdEncoding.EncodeToString(pngImage),
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", decode[errorResponse](t, rec).Error)
	})
}

func TestFollowupReceipt(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/receipts/followup", "", map[string]interface{}{
		"items":  []map[string]interface{}{{"item_name": "coke", "item_count": 4, "price_cents": 3200}},
		"prompt": "only 3 cokes",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[itemsResponse](t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Coke", resp.Items[0].Name)
	assert.Equal(t, 3, resp.Items[0].Count)
}

func TestCreateSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.createSession(t)
	assert.Equal(t, "https://fairshare.example/friend/"+resp.Session.Slug, resp.ShareLink)
	assert.Equal(t, "Garlic Bread", resp.Session.Items[0].Name)
	principal, err := env.issuer.Verify(resp.HostToken)
	require.NoError(t, err)
	assert.True(t, principal.IsHost())
	assert.Equal(t, resp.Session.ID, principal.SessionID)

	rec := env.do(t, http.MethodGet, "/api/sessions/"+resp.Session.Slug, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[sessionResponse](t, rec)
	assert.Empty(t, got.HostToken)
	assert.Equal(t, "hosty", got.Session.BeemHandle)
	assert.Len(t, got.Session.Items, 2)

	rec = env.do(t, http.MethodPost, "/api/sessions", "", map[string]interface{}{"beem_handle": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionArchivesImage(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/sessions", "", createSessionRequest{
		BeemHandle: "hosty",
		Image:      base64.StdEncoding.EncodeToString(pngImage),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	resp := decode[sessionResponse](t, rec)
	assert.Equal(t, []string{resp.Session.ID + " image/png"}, env.images.stored)

	rec = env.do(t, http.MethodDelete, "/api/sessions/"+resp.Session.Slug, resp.HostToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{resp.Session.ID}, env.images.deleted)

	rec = env.do(t, http.MethodGet, "/api/sessions/"+resp.Session.Slug, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAllocationFlow(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)
	slug := session.Session.Slug
	base := "/api/sessions/" + slug

	alice := env.join(t, slug, "  Alice  ")
	bob := env.join(t, slug, "Bob")
	assert.Equal(t, "Alice", alice.Participant.Name)
	assert.Equal(t, 1, alice.Participant.Ordinal)
	assert.Equal(t, 2, bob.Participant.Ordinal)
	assert.Equal(t, []string{"Alice", "Bob"}, env.notifier.joined)

	rec := env.do(t, http.MethodPut, base+"/allocations", alice.Token, claims("coke", 3, "bread", 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[updateAllocationResponse](t, rec)
	assert.Equal(t, models.PriceInCents(2400+825), updated.Summary.Participants[0].Owed)
	assert.False(t, updated.Summary.FullyClaimed)

	rec = env.do(t, http.MethodPut, base+"/allocations", bob.Token, claims("coke", 2))
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPut, base+"/allocations", bob.Token, claims("tea", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPut, base+"/allocations", bob.Token, claims("coke", 1, "bread", 1))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated = decode[updateAllocationResponse](t, rec)
	assert.True(t, updated.Summary.FullyClaimed)
	assert.Equal(t, 1, env.notifier.fullyClaimed)

	// still fully claimed, no second notification
	rec = env.do(t, http.MethodPut, base+"/allocations", bob.Token, claims("coke", 1, "bread", 1))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, env.notifier.fullyClaimed)

	rec = env.do(t, http.MethodGet, base+"/allocations", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	allocations := decode[allocationsResponse](t, rec).Allocations
	require.Len(t, allocations, 2)
	assert.Equal(t, "Alice", allocations[0].ParticipantName)
	assert.Equal(t, []models.ClaimedItem{{ItemID: "bread", Count: 1}, {ItemID: "coke", Count: 3}}, allocations[0].Items)

	rec = env.do(t, http.MethodGet, base+"/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[models.Summary](t, rec)
	assert.Equal(t, models.PriceInCents(4850), summary.Total)
	assert.Equal(t, models.PriceInCents(0), summary.Outstanding)
	assert.Equal(t, 100.0, summary.Items[1].Percentage)

	rec = env.do(t, http.MethodGet, base+"/participants", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[participantsResponse](t, rec).Participants, 2)

	rec = env.do(t, http.MethodGet, base+"/participants/"+bob.Participant.ID+"/payment", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payment := decode[paymentResponse](t, rec)
	assert.Equal(t, models.PriceInCents(800+825), payment.Amount)
	assert.Equal(t, "https://beem.com.au/app/pay?amount=1625&description=Bob%27s+part+of+the+receipt&handle=hosty", payment.Link)

	rec = env.do(t, http.MethodGet, base+"/participants/nobody/payment", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	carol := env.join(t, slug, "Carol")
	rec = env.do(t, http.MethodGet, base+"/participants/"+carol.Participant.ID+"/payment", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	payment = decode[paymentResponse](t, rec)
	assert.Equal(t, models.PriceInCents(0), payment.Amount)
	assert.Empty(t, payment.Link, "nothing to pay for")
}

func TestParallelClaimsNeverExceedCount(t *testing.T) {
	env := newTestEnv(t)
	slug := env.createSession(t).Session.Slug
	base := "/api/sessions/" + slug

	const friends = 20
	tokens := make([]string, friends)
	for i := range tokens {
		tokens[i] = env.join(t, slug, "Friend").Token
	}
	body, err := json.Marshal(claims("bread", 1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	codes := make([]int, friends)
	for i, token := range tokens {
		wg.Add(1)
		go func(i int, token string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPut, base+"/allocations", bytes.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			env.server.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i, token)
	}
	wg.Wait()

	counts := map[int]int{}
	for _, code := range codes {
		counts[code]++
	}
	assert.Equal(t, map[int]int{http.StatusOK: 2, http.StatusConflict: friends - 2}, counts)

	rec := env.do(t, http.MethodGet, base+"/summary", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[models.Summary](t, rec)
	assert.Equal(t, 2, summary.Items[0].Claimed)
	assert.LessOrEqual(t, summary.Items[0].Claimed, summary.Items[0].Count)
}

func TestOversizedBodies(t *testing.T) {
	env := newTestEnv(t)
	created := env.createSession(t)
	base := "/api/sessions/" + created.Session.Slug
	alice := env.join(t, created.Session.Slug, "Alice")

	padded := func(size int) []byte {
		return []byte(`{"padding": "` + strings.Repeat("x", size) + `"}`)
	}
	trailing := func(size int) []byte {
		return append([]byte(`{"name": "Bob"}`), bytes.Repeat([]byte(" "), size)...)
	}

	for _, tt := range []struct {
		name   string
		method string
		path   string
		token  string
		body   []byte
	}{
		{name: "followup", method: http.MethodPost, path: "/api/receipts/followup", body: padded(maxJSONBytes)},
		{name: "replace items", method: http.MethodPut, path: base + "/items", token: created.HostToken, body: padded(maxJSONBytes)},
		{name: "add item", method: http.MethodPost, path: base + "/items", token: created.HostToken, body: padded(maxJSONBytes)},
		{name: "edit item", method: http.MethodPatch, path: base + "/items/coke", token: created.HostToken, body: padded(maxJSONBytes)},
		{name: "join", method: http.MethodPost, path: base + "/participants", body: padded(maxJSONBytes)},
		{name: "join trailing whitespace", method: http.MethodPost, path: base + "/participants", body: trailing(maxJSONBytes)},
		{name: "allocations", method: http.MethodPut, path: base + "/allocations", token: alice.Token, body: padded(maxJSONBytes)},
		{name: "extract", method: http.MethodPost, path: "/api/receipts/extract", body: padded(128 << 10)},
		{name: "create session", method: http.MethodPost, path: "/api/sessions", body: padded(128 << 10)},
	} {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, bytes.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			env.server.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
		})
	}

	// nothing was stored by the rejected requests
	rec := env.do(t, http.MethodGet, base+"/participants", "", nil)
	assert.Len(t, decode[participantsResponse](t, rec).Participants, 1)
}

func TestJoinValidation(t *testing.T) {
	env := newTestEnv(t)
	slug := env.createSession(t).Session.Slug

	rec := env.do(t, http.MethodPost, "/api/sessions/"+slug+"/participants", "", map[string]string{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/"+slug+"/participants", "", map[string]string{"name": string(bytes.Repeat([]byte("a"), 65))})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/sessions/nope/participants", "", map[string]string{"name": "Alice"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthorization(t *testing.T) {
	env := newTestEnv(t)
	first := env.createSession(t)
	second := env.createSession(t)
	alice := env.join(t, first.Session.Slug, "Alice")
	base := "/api/sessions/" + first.Session.Slug

	for _, tt := range []struct {
		name   string
		method string
		path   string
		token  string
		body   interface{}
		status int
	}{
		{name: "no token", method: http.MethodPut, path: base + "/items", status: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodPut, path: base + "/items", token: "abc", status: http.StatusUnauthorized},
		{name: "participant edits items", method: http.MethodPut, path: base + "/items", token: alice.Token, status: http.StatusForbidden},
		{name: "host of another session", method: http.MethodDelete, path: base, token: second.HostToken, status: http.StatusForbidden},
		{name: "host claims items", method: http.MethodPut, path: base + "/allocations", token: first.HostToken, body: claims("coke", 1), status: http.StatusForbidden},
		{name: "participant of another session", method: http.MethodPut, path: "/api/sessions/" + second.Session.Slug + "/allocations", token: alice.Token, body: claims("coke", 1), status: http.StatusForbidden},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestItemEdits(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)
	base := "/api/sessions/" + session.Session.Slug
	host := session.HostToken
	alice := env.join(t, session.Session.Slug, "Alice")

	rec := env.do(t, http.MethodPut, base+"/allocations", alice.Token, claims("coke", 4))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPatch, base+"/items/coke", host, models.ItemEdit{Op: models.EditDecrement})
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPatch, base+"/items/coke", host, models.ItemEdit{Op: models.EditIncrement})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	coke := decode[sessionResponse](t, rec).Session.Items.Find("coke")
	assert.Equal(t, 5, coke.Count)
	assert.Equal(t, models.PriceInCents(4000), coke.Price)

	rec = env.do(t, http.MethodPatch, base+"/items/bread", host, models.ItemEdit{Op: models.EditRename, Name: "rosemary focaccia"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Rosemary Focaccia", decode[sessionResponse](t, rec).Session.Items.Find("bread").Name)

	rec = env.do(t, http.MethodPatch, base+"/items/nope", host, models.ItemEdit{Op: models.EditIncrement})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, base+"/items/coke", host, models.ItemEdit{Op: "explode"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, base+"/items", host, addItemRequest{Name: "service fee", Price: 500})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	items := decode[sessionResponse](t, rec).Session.Items
	require.Len(t, items, 3)
	assert.Equal(t, "Service Fee", items[2].Name)
	assert.Equal(t, 1, items[2].Count)

	rec = env.do(t, http.MethodDelete, base+"/items/coke", host, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodGet, base+"/allocations", "", nil)
	assert.Empty(t, decode[allocationsResponse](t, rec).Allocations[0].Items)

	rec = env.do(t, http.MethodDelete, base+"/items/coke", host, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReplaceItemsClearsAllocations(t *testing.T) {
	env := newTestEnv(t)
	session := env.createSession(t)
	base := "/api/sessions/" + session.Session.Slug
	alice := env.join(t, session.Session.Slug, "Alice")
	rec := env.do(t, http.MethodPut, base+"/allocations", alice.Token, claims("coke", 1))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPut, base+"/items", session.HostToken, map[string]interface{}{
		"items": []map[string]interface{}{{"item_name": "iced tea", "item_count": 0, "price_cents": 800}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	items := decode[sessionResponse](t, rec).Session.Items
	require.Len(t, items, 1)
	assert.Equal(t, "Iced Tea", items[0].Name)
	assert.Equal(t, 1, items[0].Count)

	rec = env.do(t, http.MethodGet, base+"/summary", "", nil)
	summary := decode[models.Summary](t, rec)
	assert.Empty(t, summary.Participants)
	assert.Equal(t, models.PriceInCents(800), summary.Outstanding)
}

func TestQRCode(t *testing.T) {
	env := newTestEnv(t)
	slug := env.createSession(t).Session.Slug

	rec := env.do(t, http.MethodGet, "/api/sessions/"+slug+"/qr.png", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = env.do(t, http.MethodGet, "/api/sessions/"+slug+"/qr.png?size=5", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/sessions/nope/qr.png", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.createSession(t)

	rec := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fairshare_sessions_created_total 1")
	assert.Contains(t, rec.Body.String(), `route="POST /api/sessions"`)
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodOptions, "/api/sessions", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}
