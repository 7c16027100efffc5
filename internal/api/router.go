// Package api exposes the wardrobe over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/calendar"
	"github.com/erazemk/omara/internal/ingest"
	"github.com/erazemk/omara/internal/metrics"
	"github.com/erazemk/omara/internal/places"
	"github.com/erazemk/omara/internal/store"
	"github.com/erazemk/omara/internal/suggest"
)

// DefaultMaxUploadBytes caps an ingest request body when Deps leaves it unset.
const DefaultMaxUploadBytes = 10 << 20

// PlaceSearcher finds places near a location.
type PlaceSearcher interface {
	Search(ctx context.Context, q places.Query) ([]places.Place, error)
}

// EventScheduler creates calendar events.
type EventScheduler interface {
	Schedule(ctx context.Context, ev calendar.Event) (*calendar.Confirmation, error)
}

// Auth configures owner login. An empty PasswordHash disables it.
type Auth struct {
	PasswordHash string
	Secret       string
	TokenTTL     time.Duration
}

// Enabled reports whether API requests need a token.
func (a Auth) Enabled() bool { return a.PasswordHash != "" }

// Deps are the components the handlers call.
type Deps struct {
	Store    store.ItemStore
	Pipeline *ingest.Pipeline
	Places   PlaceSearcher
	Suggest  *suggest.Engine
	Calendar EventScheduler
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	Auth           Auth
	AllowedOrigins []string
	MaxUploadBytes int64
}

type server struct {
	store     store.ItemStore
	pipeline  *ingest.Pipeline
	places    PlaceSearcher
	suggest   *suggest.Engine
	calendar  EventScheduler
	metrics   *metrics.Metrics
	logger    *zap.Logger
	auth      Auth
	origins   []string
	maxUpload int64
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	s := &server{
		store:     d.Store,
		pipeline:  d.Pipeline,
		places:    d.Places,
		suggest:   d.Suggest,
		calendar:  d.Calendar,
		metrics:   d.Metrics,
		logger:    d.Logger,
		auth:      d.Auth,
		origins:   d.AllowedOrigins,
		maxUpload: d.MaxUploadBytes,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.maxUpload <= 0 {
		s.maxUpload = DefaultMaxUploadBytes
	}

	mux := http.NewServeMux()
	public := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}
	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, s.requireAuth(h)))
	}

	public("GET /healthz", s.health)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	public("POST /api/auth/login", s.login)

	// Items.
	private("GET /api/items", s.listItems)
	private("POST /api/items/ingest", s.ingestItem)
	private("GET /api/items/{id}", s.getItem)
	private("PUT /api/items/{id}", s.updateItem)
	private("DELETE /api/items/{id}", s.deleteItem)
	private("GET /api/items/{id}/image", s.getImage)

	// Places.
	private("GET /api/donate", s.searchPlaces(places.KeywordDonation, "donation_centers"))
	private("GET /api/repair", s.searchPlaces(places.KeywordTailor, "tailors"))
	private("GET /api/sell", s.searchPlaces(places.KeywordThrift, "stores"))

	// Suggestions and scheduling.
	private("GET /api/upcycle", s.upcycle)
	private("GET /api/style", s.style)
	private("POST /api/schedule", s.schedule)

	return s.cors(mux)
}

// health handles GET /healthz.
func (s *server) health(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}
