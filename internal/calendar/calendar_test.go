package calendar

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/upstream"
)

type fakeCalendar struct {
	t        *testing.T
	received eventRequest
	auth     string
}

func (f *fakeCalendar) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /calendars/{id}/events", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "team@example.com", r.PathValue("id"))
		f.auth = r.Header.Get("Authorization")
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.received))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "evt123", "htmlLink": "https://calendar.example/evt123"}`))
	})
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(f.t, r.ParseForm())
		assert.Equal(f.t, "urn:ietf:params:oauth:grant-type:jwt-bearer", r.Form.Get("grant_type"))
		assert.NotEmpty(f.t, r.Form.Get("assertion"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "tok-1", "token_type": "Bearer", "expires_in": 3600}`))
	})
	srv := httptest.NewServer(mux)
	f.t.Cleanup(srv.Close)
	return srv
}

func TestSchedule(t *testing.T) {
	f := &fakeCalendar{t: t}
	srv := f.server()
	c := New("team@example.com", srv.URL, upstream.New("calendar", upstream.Options{}))

	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	conf, err := c.Schedule(context.Background(), Event{
		Summary:     "Donate item: Shirt",
		Description: "Action: donate",
		Start:       start,
		Duration:    90 * time.Minute,
	})
	require.NoError(t, err)

	assert.Equal(t, &Confirmation{
		Status:  "scheduled",
		EventID: "evt123",
		Link:    "https://calendar.example/evt123",
		Start:   start,
		End:     start.Add(90 * time.Minute),
	}, conf)
	assert.Equal(t, "Donate item: Shirt", f.received.Summary)
	assert.Equal(t, "2026-10-20T09:00:00Z", f.received.Start.DateTime)
	assert.Equal(t, "2026-10-20T10:30:00Z", f.received.End.DateTime)
}

func TestScheduleMissingCredentials(t *testing.T) {
	_, err := New("", "", nil).Schedule(context.Background(), Event{Start: time.Now()})
	var ext *upstream.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, "calendar", ext.Service)
}

func TestScheduleUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"message": "Not Found"}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := New("", srv.URL, upstream.New("calendar", upstream.Options{})).Schedule(context.Background(), Event{Start: time.Now()})
	var ext *upstream.ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Equal(t, http.StatusNotFound, ext.StatusCode)
}

func TestCredentialsClient(t *testing.T) {
	f := &fakeCalendar{t: t}
	srv := f.server()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)
	creds, err := json.Marshal(map[string]string{
		"type":           "service_account",
		"client_email":   "omara@project.iam.gserviceaccount.com",
		"private_key_id": "k1",
		"private_key":    string(pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})),
		"token_uri":      srv.URL + "/token",
	})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, creds, 0o600))

	hc, err := CredentialsClient(context.Background(), path)
	require.NoError(t, err)

	c := New("team@example.com", srv.URL, upstream.New("calendar", upstream.Options{HTTPClient: hc}))
	_, err = c.Schedule(context.Background(), Event{Start: time.Now(), Duration: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-1", f.auth)
}

func TestCredentialsClientErrors(t *testing.T) {
	_, err := CredentialsClient(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"type": "authorized_user"`), 0o600))
	_, err = CredentialsClient(context.Background(), path)
	assert.Error(t, err)
}

func TestItemEvent(t *testing.T) {
	start := time.Date(2026, 10, 20, 9, 0, 0, 0, time.UTC)
	ev := ItemEvent(&model.Item{ID: 7, Type: "Shirt", Material: "cotton"}, "donate", start, time.Hour)
	assert.Equal(t, "Donate item: Shirt", ev.Summary)
	assert.Equal(t, "Action: donate\nItem ID: 7\nMaterial: cotton", ev.Description)
	assert.Equal(t, start, ev.Start)

	ev = ItemEvent(&model.Item{ID: 8}, "repair", start, time.Hour)
	assert.Equal(t, "Repair item: Clothing", ev.Summary)
	assert.Equal(t, "Action: repair\nItem ID: 8\nMaterial: unknown", ev.Description)
}
