package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dukerupert/tripkeep/internal/auth"
	"github.com/dukerupert/tripkeep/internal/provider"
	"github.com/dukerupert/tripkeep/internal/store"
)

const maxLinks = 50

// PlacesHandler proxies map lookups through the caller's own Google key.
type PlacesHandler struct {
	users  *store.UserStore
	cfg    provider.Config
	logger *slog.Logger
}

func NewPlacesHandler(users *store.UserStore, cfg provider.Config, logger *slog.Logger) *PlacesHandler {
	return &PlacesHandler{users: users, cfg: cfg, logger: logger}
}

// client builds a provider client for the current user. It writes the
// error response itself and returns nil when no client can be built.
func (h *PlacesHandler) client(w http.ResponseWriter, r *http.Request) *provider.Client {
	settings, err := h.users.GetSettings(auth.Username(r.Context()))
	if err != nil {
		h.logger.Error("load api key", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load settings")
		return nil
	}
	var key string
	if settings != nil {
		key = settings.GoogleAPIKey
	}
	c, err := provider.New(h.cfg, key, h.logger)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Google Maps API key not configured")
		return nil
	}
	return c
}

// writeProviderError reports every provider failure as 400, passing the
// provider's own message through when it sent one.
func (h *PlacesHandler) writeProviderError(w http.ResponseWriter, err error, action string) {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		writeError(w, http.StatusBadRequest, apiErr.Message)
		return
	}
	h.logger.Warn(action, "error", err)
	writeError(w, http.StatusBadRequest, "failed to "+action)
}

func (h *PlacesHandler) normalize(ctx context.Context, c *provider.Client, results []gjson.Result) []provider.Place {
	return provider.ResolveMany(ctx, h.logger, results, func(ctx context.Context, raw gjson.Result) (provider.Place, error) {
		return c.ResultToPlace(ctx, raw), nil
	})
}

func (h *PlacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	c := h.client(w, r)
	if c == nil {
		return
	}

	results, err := c.TextSearch(r.Context(), q, nil)
	if err != nil {
		h.writeProviderError(w, err, "search places")
		return
	}
	writeJSON(w, http.StatusOK, h.normalize(r.Context(), c, results))
}

func (h *PlacesHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	lat, latErr := strconv.ParseFloat(query.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(query.Get("lng"), 64)
	if latErr != nil || lngErr != nil {
		writeError(w, http.StatusBadRequest, "lat and lng are required")
		return
	}
	var radius float64
	if s := query.Get("radius"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v < 0 {
			writeError(w, http.StatusBadRequest, "invalid radius")
			return
		}
		radius = v
	}
	c := h.client(w, r)
	if c == nil {
		return
	}

	results, err := c.NearbySearch(r.Context(), provider.LatLng{Lat: lat, Lng: lng}, radius)
	if err != nil {
		h.writeProviderError(w, err, "search nearby places")
		return
	}
	writeJSON(w, http.StatusOK, h.normalize(r.Context(), c, results))
}

func (h *PlacesHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "q is required")
		return
	}
	c := h.client(w, r)
	if c == nil {
		return
	}

	bounds, err := c.GeocodeBoundaries(r.Context(), q)
	if err != nil {
		h.writeProviderError(w, err, "geocode")
		return
	}
	if bounds == nil {
		writeError(w, http.StatusBadRequest, "Location not resolved by GMaps")
		return
	}
	writeJSON(w, http.StatusOK, bounds)
}

// MultiLinks resolves a batch of shared map links. Links that cannot be
// resolved are left out of the response.
func (h *PlacesHandler) MultiLinks(w http.ResponseWriter, r *http.Request) {
	var links []string
	if err := json.NewDecoder(r.Body).Decode(&links); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(links) > maxLinks {
		writeError(w, http.StatusBadRequest, "too many links")
		return
	}
	c := h.client(w, r)
	if c == nil {
		return
	}

	places := provider.ResolveMany(r.Context(), h.logger, links, c.SearchLink)
	writeJSON(w, http.StatusOK, places)
}

func (h *PlacesHandler) Route(w http.ResponseWriter, r *http.Request) {
	var q provider.RouteQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(q.Coordinates) < 2 {
		writeError(w, http.StatusBadRequest, "at least two coordinates are required")
		return
	}
	c := h.client(w, r)
	if c == nil {
		return
	}

	route, err := c.Route(r.Context(), q)
	if errors.Is(err, provider.ErrUnknownProfile) {
		writeError(w, http.StatusBadRequest, "unknown profile")
		return
	}
	if err != nil {
		h.writeProviderError(w, err, "compute route")
		return
	}
	writeJSON(w, http.StatusOK, route)
}
