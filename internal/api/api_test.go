package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erazemk/omara/internal/auth"
	"github.com/erazemk/omara/internal/calendar"
	"github.com/erazemk/omara/internal/classify"
	"github.com/erazemk/omara/internal/ingest"
	"github.com/erazemk/omara/internal/metrics"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/places"
	"github.com/erazemk/omara/internal/store"
	"github.com/erazemk/omara/internal/suggest"
	"github.com/erazemk/omara/internal/upstream"
)

type fakePlaces struct {
	mu      sync.Mutex
	queries []places.Query
	result  []places.Place
	err     error
}

func (f *fakePlaces) Search(_ context.Context, q places.Query) ([]places.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.result, f.err
}

type fakeCalendar struct {
	mu     sync.Mutex
	events []calendar.Event
	err    error
}

func (f *fakeCalendar) Schedule(_ context.Context, ev calendar.Event) (*calendar.Confirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.events = append(f.events, ev)
	return &calendar.Confirmation{
		Status:  "scheduled",
		EventID: "evt-1",
		Start:   ev.Start,
		End:     ev.Start.Add(ev.Duration),
	}, nil
}

type testEnv struct {
	server   *httptest.Server
	store    store.ItemStore
	places   *fakePlaces
	calendar *fakeCalendar
	imageDir string
}

func setupTestServer(t *testing.T, mutate func(*Deps)) *testEnv {
	t.Helper()
	logger := zaptest.NewLogger(t)
	dir := t.TempDir()

	s := store.NewJSONStore(filepath.Join(dir, "wardrobe.json"))
	imageDir := filepath.Join(dir, "images")
	pipeline := ingest.New(s, classify.NewAdapter(classify.HeuristicClassifier{}, logger), imageDir, ingest.WithLogger(logger))
	engine, err := suggest.NewEngine(context.Background(), logger)
	require.NoError(t, err)

	env := &testEnv{
		store:    s,
		places:   &fakePlaces{result: []places.Place{{Name: "Second Chance", Address: "Main St 1"}}},
		calendar: &fakeCalendar{},
		imageDir: imageDir,
	}
	deps := Deps{
		Store:    s,
		Pipeline: pipeline,
		Places:   env.places,
		Suggest:  engine,
		Calendar: env.calendar,
		Logger:   logger,
	}
	if mutate != nil {
		mutate(&deps)
	}

	env.server = httptest.NewServer(NewRouter(deps))
	t.Cleanup(env.server.Close)
	return env
}

// do sends a request and decodes a JSON response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (e *testEnv) upload(t *testing.T, field, filename string, data []byte) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.server.URL+"/api/items/ingest", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func (e *testEnv) add(t *testing.T, fields model.Fields) *model.Item {
	t.Helper()
	item, err := e.store.Add(context.Background(), fields)
	require.NoError(t, err)
	return item
}

func pngBytes(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

type itemResponse struct {
	Status string     `json:"status"`
	Item   model.Item `json:"item"`
}

type listResponse struct {
	Status string       `json:"status"`
	Count  int          `json:"count"`
	Items  []model.Item `json:"items"`
}

type errorResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail"`
}

func TestHealth(t *testing.T) {
	env := setupTestServer(t, nil)

	var body map[string]string
	resp := env.do(t, http.MethodGet, "/healthz", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestEmptyWardrobe(t *testing.T) {
	env := setupTestServer(t, nil)

	var list listResponse
	resp := env.do(t, http.MethodGet, "/api/items", nil, &list)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", list.Status)
	assert.Equal(t, 0, list.Count)
	assert.NotNil(t, list.Items)
}

func TestItemsAPIFlow(t *testing.T) {
	env := setupTestServer(t, nil)

	// Ingest a wide red photo.
	resp, out := env.upload(t, "file", "../../red shirt.png", pngBytes(t, 200, 100, color.RGBA{R: 220, G: 20, B: 30, A: 255}))
	require.Equal(t, http.StatusCreated, resp.StatusCode, out)
	assert.Equal(t, "added", out["status"])
	added := out["item"].(map[string]any)
	assert.EqualValues(t, 1, added["id"])
	assert.Equal(t, "red", added["color"])
	assert.Equal(t, "red shirt.png", added["original_name"])
	require.Len(t, imageFiles(t, env.imageDir), 1)

	// List and get.
	var list listResponse
	env.do(t, http.MethodGet, "/api/items", nil, &list)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, int64(1), list.Items[0].ID)

	var got itemResponse
	resp = env.do(t, http.MethodGet, "/api/items/1", nil, &got)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, list.Items[0].ImagePath, got.Item.ImagePath)

	// Image bytes.
	imgResp, err := http.Get(env.server.URL + "/api/items/1/image")
	require.NoError(t, err)
	data, err := io.ReadAll(imgResp.Body)
	imgResp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, imgResp.StatusCode)
	assert.Equal(t, "image/jpeg", imgResp.Header.Get("Content-Type"))
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2])

	// Update merges and keeps unknown keys.
	var updated itemResponse
	resp = env.do(t, http.MethodPut, "/api/items/1", map[string]any{"status": "donated", "notes": "left sleeve"}, &updated)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "updated", updated.Status)
	assert.Equal(t, "donated", updated.Item.Status)
	assert.Equal(t, "red", updated.Item.Color)
	assert.Equal(t, "left sleeve", updated.Item.Extra["notes"])

	var filtered listResponse
	env.do(t, http.MethodGet, "/api/items?status=donated", nil, &filtered)
	assert.Equal(t, 1, filtered.Count)
	env.do(t, http.MethodGet, "/api/items?status=kept", nil, &filtered)
	assert.Equal(t, 0, filtered.Count)

	// Delete removes the record and the file.
	var deleted map[string]any
	resp = env.do(t, http.MethodDelete, "/api/items/1", nil, &deleted)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "deleted", deleted["status"])
	assert.EqualValues(t, 1, deleted["id"])
	assert.Empty(t, imageFiles(t, env.imageDir))

	var missing errorResponse
	resp = env.do(t, http.MethodGet, "/api/items/1", nil, &missing)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "error", missing.Status)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/items/1", nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/items/1/image", nil, nil).StatusCode)
}

func TestIngestAcceptsImageField(t *testing.T) {
	env := setupTestServer(t, nil)

	resp, out := env.upload(t, "image", "photo.png", pngBytes(t, 40, 80, color.White))
	require.Equal(t, http.StatusCreated, resp.StatusCode, out)
	assert.Equal(t, "white", out["item"].(map[string]any)["color"])
}

func TestIngestRejectsUnsupportedImage(t *testing.T) {
	env := setupTestServer(t, nil)

	resp, out := env.upload(t, "file", "notes.txt", []byte("definitely not a picture"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "error", out["status"])
	assert.Empty(t, imageFiles(t, env.imageDir))

	var list listResponse
	env.do(t, http.MethodGet, "/api/items", nil, &list)
	assert.Equal(t, 0, list.Count)
}

func TestIngestRequiresFile(t *testing.T) {
	env := setupTestServer(t, nil)

	resp, out := env.upload(t, "attachment", "photo.png", pngBytes(t, 10, 10, color.White))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, out["detail"], "file")

	plain, err := http.Post(env.server.URL+"/api/items/ingest", "application/json", strings.NewReader("{}"))
	require.NoError(t, err)
	plain.Body.Close()
	assert.Equal(t, http.StatusBadRequest, plain.StatusCode)
}

func TestIngestTooLarge(t *testing.T) {
	env := setupTestServer(t, func(d *Deps) { d.MaxUploadBytes = 512 })

	resp, _ := env.upload(t, "file", "big.png", bytes.Repeat([]byte{0x89}, 4096))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, resp.StatusCode)
	assert.Empty(t, imageFiles(t, env.imageDir))
}

func TestUpdateItem(t *testing.T) {
	env := setupTestServer(t, nil)
	env.add(t, model.Fields{"type": "Coat", "color": "blue"})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"changes id", "/api/items/1", map[string]any{"id": 2}, http.StatusBadRequest},
		{"same id", "/api/items/1", map[string]any{"id": 1, "material": "wool"}, http.StatusOK},
		{"bad color", "/api/items/1", map[string]any{"color": "mauve"}, http.StatusBadRequest},
		{"case variant key", "/api/items/1", map[string]any{"Color": "red"}, http.StatusBadRequest},
		{"image path", "/api/items/1", map[string]any{"image_path": "/etc/passwd"}, http.StatusBadRequest},
		{"not an object", "/api/items/1", []int{1, 2}, http.StatusBadRequest},
		{"missing item", "/api/items/9", map[string]any{"status": "kept"}, http.StatusNotFound},
		{"bad id", "/api/items/abc", map[string]any{"status": "kept"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPut, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	item, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "blue", item.Color)
	assert.Equal(t, "wool", item.Material)
	assert.Empty(t, item.ImagePath)
	assert.Empty(t, item.Extra)
}

func TestPlacesEndpoints(t *testing.T) {
	tests := []struct {
		path    string
		key     string
		keyword string
	}{
		{"/api/donate", "donation_centers", places.KeywordDonation},
		{"/api/repair", "tailors", places.KeywordTailor},
		{"/api/sell", "stores", places.KeywordThrift},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			env := setupTestServer(t, nil)

			var body map[string]any
			resp := env.do(t, http.MethodGet, tt.path+"?location=Ljubljana", nil, &body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Equal(t, "ok", body["status"])
			assert.EqualValues(t, 1, body["count"])
			assert.Len(t, body[tt.key], 1)

			require.Len(t, env.places.queries, 1)
			assert.Equal(t, places.Query{Keyword: tt.keyword, Location: "Ljubljana", RadiusKM: places.DefaultRadiusKM}, env.places.queries[0])
		})
	}
}

func TestPlacesValidation(t *testing.T) {
	env := setupTestServer(t, nil)

	for _, path := range []string{
		"/api/donate",
		"/api/donate?location=Ljubljana&radius_km=0",
		"/api/donate?location=Ljubljana&radius_km=51",
		"/api/donate?location=Ljubljana&radius_km=far",
	} {
		assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, path, nil, nil).StatusCode, path)
	}
	assert.Empty(t, env.places.queries)

	var body map[string]any
	env.do(t, http.MethodGet, "/api/repair?location=46.05,14.5&radius_km=2.5", nil, &body)
	require.Len(t, env.places.queries, 1)
	assert.Equal(t, 2.5, env.places.queries[0].RadiusKM)
}

func TestPlacesUpstreamFailure(t *testing.T) {
	// A client without an API key fails before any request is sent.
	client := places.New("", "http://127.0.0.1:1", upstream.New("maps", upstream.Options{}))
	env := setupTestServer(t, func(d *Deps) { d.Places = client })

	var body errorResponse
	resp := env.do(t, http.MethodGet, "/api/sell?location=Ljubljana", nil, &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body.Detail, "missing API key")
}

func TestPlacesEmptyResult(t *testing.T) {
	env := setupTestServer(t, nil)
	env.places.result = nil

	var body map[string]any
	resp := env.do(t, http.MethodGet, "/api/donate?location=Nowhere", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, body["count"])
	assert.Equal(t, []any{}, body["donation_centers"])
}

func TestUpcycle(t *testing.T) {
	env := setupTestServer(t, nil)

	var body struct {
		Status      string   `json:"status"`
		Count       int      `json:"count"`
		Suggestions []string `json:"suggestions"`
	}
	resp := env.do(t, http.MethodGet, "/api/upcycle?item_type=jeans&method=rules", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, suggest.Rules("jeans"), body.Suggestions)
	assert.Equal(t, len(body.Suggestions), body.Count)

	resp = env.do(t, http.MethodGet, "/api/upcycle?item_type=jeans&method=similar", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body.Suggestions)

	resp = env.do(t, http.MethodGet, "/api/upcycle", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body.Suggestions)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/upcycle?item_type=jeans&method=magic", nil, nil).StatusCode)
}

func TestStyle(t *testing.T) {
	env := setupTestServer(t, nil)
	env.add(t, model.Fields{"type": "Shirt", "color": "white", "material": "cotton"})
	env.add(t, model.Fields{"type": "Jeans", "color": "blue", "material": "denim"})
	env.add(t, model.Fields{"type": "Jacket", "color": "black", "material": "wool"})

	var body struct {
		Status         string                 `json:"status"`
		Recommendation suggest.Recommendation `json:"recommendation"`
	}
	resp := env.do(t, http.MethodGet, "/api/style?item_id=1&event=Party", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "party", body.Recommendation.Event)
	assert.Equal(t, "Shirt", body.Recommendation.BaseItem)
	assert.ElementsMatch(t, []int64{2, 3}, body.Recommendation.MatchIDs)
	assert.NotEmpty(t, body.Recommendation.StyleTip)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/style", nil, nil).StatusCode)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/style?item_id=42", nil, nil).StatusCode)
}

func TestSchedule(t *testing.T) {
	env := setupTestServer(t, nil)
	env.add(t, model.Fields{"type": "Shirt", "material": "cotton"})

	var body struct {
		Status string                `json:"status"`
		Event  calendar.Confirmation `json:"event"`
	}
	resp := env.do(t, http.MethodPost, "/api/schedule?item_id=1&action=donate&date=2026-11-02&duration_minutes=30", nil, &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "scheduled", body.Status)
	assert.Equal(t, "evt-1", body.Event.EventID)

	require.Len(t, env.calendar.events, 1)
	ev := env.calendar.events[0]
	assert.Equal(t, "Donate item: Shirt", ev.Summary)
	assert.True(t, ev.Start.Equal(time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)), ev.Start)
	assert.Equal(t, 30*time.Minute, ev.Duration)

	item, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.ActionDonate, item.Action)
}

func TestScheduleValidation(t *testing.T) {
	env := setupTestServer(t, nil)
	env.add(t, model.Fields{"type": "Shirt"})

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing item id", "action=donate&date=2026-11-02", http.StatusBadRequest},
		{"unknown action", "item_id=1&action=burn&date=2026-11-02", http.StatusBadRequest},
		{"missing date", "item_id=1&action=donate", http.StatusBadRequest},
		{"bad date", "item_id=1&action=donate&date=next+tuesday", http.StatusBadRequest},
		{"zero duration", "item_id=1&action=donate&date=2026-11-02&duration_minutes=0", http.StatusBadRequest},
		{"long duration", "item_id=1&action=donate&date=2026-11-02&duration_minutes=1441", http.StatusBadRequest},
		{"missing item", "item_id=5&action=donate&date=2026-11-02", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, env.do(t, http.MethodPost, "/api/schedule?"+tt.query, nil, nil).StatusCode)
		})
	}
	assert.Empty(t, env.calendar.events)
}

func TestScheduleCalendarFailure(t *testing.T) {
	env := setupTestServer(t, nil)
	env.add(t, model.Fields{"type": "Shirt"})
	env.calendar.err = &upstream.ExternalServiceError{Service: "calendar", Message: "missing credentials"}

	var body errorResponse
	resp := env.do(t, http.MethodPost, "/api/schedule?item_id=1&action=repair&date=2026-11-02", nil, &body)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, body.Detail, "missing credentials")

	item, err := env.store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, item.Action)
}

func TestCorruptStore(t *testing.T) {
	env := setupTestServer(t, nil)
	path := filepath.Join(filepath.Dir(env.imageDir), "wardrobe.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	var body errorResponse
	resp := env.do(t, http.MethodGet, "/api/items", nil, &body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "error", body.Status)
}

func TestLoginDisabled(t *testing.T) {
	env := setupTestServer(t, nil)

	resp := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"password": "whatever1"}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthenticatedAccess(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	env := setupTestServer(t, func(d *Deps) {
		d.Auth = Auth{PasswordHash: hash, Secret: "test-secret", TokenTTL: time.Hour}
	})

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/items", nil, nil).StatusCode)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/healthz", nil, nil).StatusCode)

	badLogin := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "owner", "password": "wrong horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, badLogin.StatusCode)
	otherUser := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "admin", "password": "correct horse"}, nil)
	assert.Equal(t, http.StatusUnauthorized, otherUser.StatusCode)

	var login loginResponse
	resp := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "owner", "password": "correct horse"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, login.Token)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/items", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)

	req.Header.Set("Authorization", "Bearer "+login.Token+"x")
	forged, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	forged.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, forged.StatusCode)
}

func TestChangesLogUser(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	core, logs := observer.New(zap.InfoLevel)
	env := setupTestServer(t, func(d *Deps) {
		d.Auth = Auth{PasswordHash: hash, Secret: "test-secret", TokenTTL: time.Hour}
		d.Logger = zap.New(core)
	})
	item := env.add(t, model.Fields{"type": "Scarf"})

	var login loginResponse
	resp := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"username": "owner", "password": "correct horse"}, &login)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPut, env.server.URL+"/api/items/"+strconv.FormatInt(item.ID, 10), strings.NewReader(`{"status":"donated"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	req.Header.Set("Content-Type", "application/json")
	updated, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	updated.Body.Close()
	require.Equal(t, http.StatusOK, updated.StatusCode)

	entries := logs.FilterMessage("item updated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "owner", entries[0].ContextMap()["user"])
}

func TestCORS(t *testing.T) {
	env := setupTestServer(t, func(d *Deps) { d.AllowedOrigins = []string{"http://localhost:3000"} })

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, env.server.URL+"/api/items", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	allowed := preflight("http://localhost:3000")
	assert.Equal(t, http.StatusNoContent, allowed.StatusCode)
	assert.Equal(t, "http://localhost:3000", allowed.Header.Get("Access-Control-Allow-Origin"))

	denied := preflight("http://evil.example")
	assert.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, func(d *Deps) { d.Metrics = metrics.New() })
	env.do(t, http.MethodGet, "/api/items", nil, nil)

	resp, err := http.Get(env.server.URL + "/metrics")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(data), `omara_http_requests_total{method="GET",route="GET /api/items",status="200"} 1`)
}
