package api

import (
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/calendar"
	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/places"
)

// searchPlaces returns a handler listing places for keyword under key.
func (s *server) searchPlaces(keyword, key string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := places.Query{
			Keyword:  keyword,
			Location: r.URL.Query().Get("location"),
			RadiusKM: places.DefaultRadiusKM,
		}
		if raw := r.URL.Query().Get("radius_km"); raw != "" {
			radius, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				s.writeError(w, r, &model.ValidationError{Field: "radius_km", Reason: "must be a number"})
				return
			}
			q.RadiusKM = radius
		}
		if err := q.Validate(); err != nil {
			s.writeError(w, r, err)
			return
		}

		found, err := s.places.Search(r.Context(), q)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		if found == nil {
			found = []places.Place{}
		}
		s.jsonResponse(w, http.StatusOK, map[string]any{
			"status": "ok",
			"count":  len(found),
			key:      found,
		})
	}
}

// upcycle handles GET /api/upcycle.
func (s *server) upcycle(w http.ResponseWriter, r *http.Request) {
	ideas, err := s.suggest.Upcycle(r.Context(), r.URL.Query().Get("item_type"), strings.ToLower(r.URL.Query().Get("method")))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"count":       len(ideas),
		"suggestions": ideas,
	})
}

// style handles GET /api/style.
func (s *server) style(w http.ResponseWriter, r *http.Request) {
	id, err := requiredID(r, "item_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	base, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	wardrobe, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec, err := s.suggest.Style(r.Context(), *base, wardrobe, r.URL.Query().Get("event"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "ok", "recommendation": rec})
}

// schedule handles POST /api/schedule. The item is tagged with the action
// once the event exists.
func (s *server) schedule(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	id, err := requiredID(r, "item_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	action := strings.ToLower(strings.TrimSpace(query.Get("action")))
	if !model.ValidAction(action) {
		s.writeError(w, r, &model.ValidationError{Field: "action", Reason: "must be one of donate, repair, upcycle, sell, recycle"})
		return
	}
	date := query.Get("date")
	if date == "" {
		s.writeError(w, r, &model.ValidationError{Field: "date", Reason: "is required"})
		return
	}
	start, err := calendar.ParseStart(date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	duration, err := calendar.ParseDuration(query.Get("duration_minutes"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	item, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	confirmation, err := s.calendar.Schedule(r.Context(), calendar.ItemEvent(item, action, start, duration))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.store.Update(r.Context(), id, model.Fields{"action": action}); err != nil {
		s.logger.Warn("tagging scheduled item", zap.Int64("id", id), zap.String("action", action), zap.Error(err))
	}
	s.logger.Info("event scheduled",
		zap.Int64("id", id),
		zap.String("action", action),
		zap.String("event", confirmation.EventID),
		userField(r.Context()),
	)
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "scheduled", "event": confirmation})
}

// requiredID reads a positive integer query parameter.
func requiredID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, &model.ValidationError{Field: name, Reason: "is required"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, &model.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return id, nil
}
