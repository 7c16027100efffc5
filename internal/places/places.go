// Package places finds points of interest near a location through the
// Google Maps geocoding and nearby search APIs.
package places

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/erazemk/omara/internal/model"
	"github.com/erazemk/omara/internal/upstream"
)

// DefaultBaseURL is the Google Maps web service root.
const DefaultBaseURL = "https://maps.googleapis.com/maps/api"

// Search radius bounds in kilometers.
const (
	DefaultRadiusKM = 5
	MaxRadiusKM     = 50
)

// Search keywords per action.
const (
	KeywordDonation = "donation center"
	KeywordTailor   = "tailor"
	KeywordThrift   = "thrift store"
)

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) String() string {
	return strconv.FormatFloat(l.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(l.Lng, 'f', -1, 64)
}

// Place is one search result.
type Place struct {
	Name     string   `json:"name"`
	Address  string   `json:"address,omitempty"`
	Location LatLng   `json:"location"`
	PlaceID  string   `json:"place_id,omitempty"`
	Rating   float64  `json:"rating,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// Query is a nearby search request.
type Query struct {
	Keyword  string
	Location string
	RadiusKM float64
}

// Validate checks the query before any external call is made.
func (q Query) Validate() error {
	if strings.TrimSpace(q.Location) == "" {
		return &model.ValidationError{Field: "location", Reason: "is required"}
	}
	if q.RadiusKM <= 0 || q.RadiusKM > MaxRadiusKM || math.IsNaN(q.RadiusKM) {
		return &model.ValidationError{Field: "radius_km", Reason: fmt.Sprintf("must be in (0, %d]", MaxRadiusKM)}
	}
	return nil
}

// Client talks to the maps API.
type Client struct {
	key  string
	base string
	up   *upstream.Client
}

// New returns a client. An empty baseURL uses DefaultBaseURL.
func New(apiKey, baseURL string, up *upstream.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{key: apiKey, base: strings.TrimRight(baseURL, "/"), up: up}
}

type apiLocation struct {
	Geometry struct {
		Location LatLng `json:"location"`
	} `json:"geometry"`
}

type geocodeResponse struct {
	Status       string        `json:"status"`
	ErrorMessage string        `json:"error_message"`
	Results      []apiLocation `json:"results"`
}

type nearbyResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		apiLocation
		Name             string   `json:"name"`
		Vicinity         string   `json:"vicinity"`
		FormattedAddress string   `json:"formatted_address"`
		PlaceID          string   `json:"place_id"`
		Rating           float64  `json:"rating"`
		Types            []string `json:"types"`
	} `json:"results"`
}

// Search runs a keyword nearby search around q.Location, which may be an
// address or a "lat,lng" pair.
func (c *Client) Search(ctx context.Context, q Query) ([]Place, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if c.key == "" {
		return nil, c.up.Errorf("missing API key")
	}

	center, ok := ParseLatLng(q.Location)
	if !ok {
		var err error
		if center, err = c.Geocode(ctx, q.Location); err != nil {
			return nil, err
		}
	}

	params := url.Values{
		"key":      {c.key},
		"location": {center.String()},
		"radius":   {strconv.Itoa(int(q.RadiusKM * 1000))},
		"keyword":  {q.Keyword},
	}
	var resp nearbyResponse
	if err := c.up.GetJSON(ctx, c.base+"/place/nearbysearch/json?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return []Place{}, nil
	default:
		return nil, c.statusError(resp.Status, resp.ErrorMessage)
	}

	out := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		addr := r.Vicinity
		if addr == "" {
			addr = r.FormattedAddress
		}
		out = append(out, Place{
			Name:     r.Name,
			Address:  addr,
			Location: r.Geometry.Location,
			PlaceID:  r.PlaceID,
			Rating:   r.Rating,
			Types:    r.Types,
		})
	}
	return out, nil
}

// Geocode resolves an address to its first matching coordinate.
func (c *Client) Geocode(ctx context.Context, address string) (LatLng, error) {
	if c.key == "" {
		return LatLng{}, c.up.Errorf("missing API key")
	}
	params := url.Values{"address": {address}, "key": {c.key}}

	var resp geocodeResponse
	if err := c.up.GetJSON(ctx, c.base+"/geocode/json?"+params.Encode(), &resp); err != nil {
		return LatLng{}, err
	}
	switch {
	case resp.Status == "ZERO_RESULTS", resp.Status == "OK" && len(resp.Results) == 0:
		return LatLng{}, &model.ValidationError{Field: "location", Reason: "could not be geocoded"}
	case resp.Status != "OK":
		return LatLng{}, c.statusError(resp.Status, resp.ErrorMessage)
	}
	return resp.Results[0].Geometry.Location, nil
}

func (c *Client) statusError(status, message string) error {
	if message == "" {
		return c.up.Errorf("API status %s", status)
	}
	return c.up.Errorf("API status %s: %s", status, message)
}

// ParseLatLng parses a "lat,lng" pair within coordinate bounds.
func ParseLatLng(s string) (LatLng, bool) {
	latStr, lngStr, ok := strings.Cut(s, ",")
	if !ok {
		return LatLng{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return LatLng{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngStr), 64)
	if err != nil {
		return LatLng{}, false
	}
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return LatLng{}, false
	}
	return LatLng{Lat: lat, Lng: lng}, true
}
