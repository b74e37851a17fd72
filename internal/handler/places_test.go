package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/tripkeep/internal/model"
	"github.com/dukerupert/tripkeep/internal/provider"
)

const louvre = `{
	"id": "louvre-id",
	"displayName": {"text": "Louvre Museum"},
	"formattedAddress": "75001 Paris, France",
	"location": {"latitude": 48.8606, "longitude": 2.3376},
	"types": ["museum", "tourist_attraction"]
}`

// fakeGoogle serves the subset of the Places, Geocoding, and Routes APIs
// the handlers use.
func fakeGoogle(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/places:searchText", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			TextQuery string `json:"textQuery"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.TextQuery == "nowhere" {
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`{"places":[` + louvre + `]}`))
	})
	mux.HandleFunc("POST /v1/places:searchNearby", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"places":[` + louvre + `,` + louvre + `]}`))
	})
	mux.HandleFunc("GET /maps/api/geocode/json", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("address") == "atlantis" {
			w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		w.Write([]byte(`{"status":"OK","results":[{"geometry":{"viewport":{
			"northeast":{"lat":48.9,"lng":2.4},"southwest":{"lat":48.8,"lng":2.2}}}}]}`))
	})
	mux.HandleFunc("GET /maps/place/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("GET /maps/search/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	})
	mux.HandleFunc("POST /directions/v2:computeRoutes", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"routes":[{"distanceMeters":1200,"duration":"300s",
			"polyline":{"encodedPolyline":"_p~iF~ps|U_ulLnnqC"}}]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func setupPlacesHandler(t *testing.T, apiKey string) (*PlacesHandler, *httptest.Server) {
	t.Helper()
	_, users := setupTestDB(t, "alice")
	if apiKey != "" {
		if _, err := users.ApplySettings("alice", model.SettingsPatch{GoogleAPIKey: &apiKey}); err != nil {
			t.Fatalf("ApplySettings: %v", err)
		}
	}
	srv := fakeGoogle(t)
	cfg := provider.Config{PlacesURL: srv.URL, GeocodeURL: srv.URL, RoutesURL: srv.URL}
	return NewPlacesHandler(users, cfg, discard), srv
}

func TestPlacesRequireAPIKey(t *testing.T) {
	h, _ := setupPlacesHandler(t, "")

	handlers := map[string]struct {
		fn  http.HandlerFunc
		req *http.Request
	}{
		"search":     {h.Search, httptest.NewRequest("GET", "/?q=louvre", nil)},
		"nearby":     {h.Nearby, httptest.NewRequest("GET", "/?lat=1&lng=2", nil)},
		"geocode":    {h.Geocode, httptest.NewRequest("GET", "/?q=paris", nil)},
		"multilinks": {h.MultiLinks, httptest.NewRequest("POST", "/", strings.NewReader(`[]`))},
	}
	for name, tc := range handlers {
		t.Run(name, func(t *testing.T) {
			rec := serve(tc.fn, "alice", tc.req)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got := errorMessage(t, rec); got != "Google Maps API key not configured" {
				t.Errorf("error = %q", got)
			}
		})
	}
}

func TestPlacesSearch(t *testing.T) {
	h, _ := setupPlacesHandler(t, "key")

	rec := serve(h.Search, "alice", httptest.NewRequest("GET", "/?q=louvre", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	places := decodeBody[[]provider.Place](t, rec)
	if len(places) != 1 {
		t.Fatalf("len(places) = %d, want 1", len(places))
	}
	if places[0].Name != "Louvre Museum" || places[0].Category != "Culture" {
		t.Errorf("place = %+v", places[0])
	}

	rec = serve(h.Search, "alice", httptest.NewRequest("GET", "/?q=nowhere", nil))
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Errorf("empty search body = %q, want []", got)
	}

	rec = serve(h.Search, "alice", httptest.NewRequest("GET", "/", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing q status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestPlacesNearby(t *testing.T) {
	h, _ := setupPlacesHandler(t, "key")

	rec := serve(h.Nearby, "alice", httptest.NewRequest("GET", "/?lat=48.86&lng=2.33&radius=500", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if places := decodeBody[[]provider.Place](t, rec); len(places) != 2 {
		t.Errorf("len(places) = %d, want 2", len(places))
	}

	for _, q := range []string{"?lat=1", "?lat=x&lng=2", "?lat=1&lng=2&radius=-5"} {
		rec := serve(h.Nearby, "alice", httptest.NewRequest("GET", "/"+q, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", q, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestPlacesGeocode(t *testing.T) {
	h, _ := setupPlacesHandler(t, "key")

	rec := serve(h.Geocode, "alice", httptest.NewRequest("GET", "/?q=paris", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	b := decodeBody[provider.Boundaries](t, rec)
	if b.Northeast.Lat != 48.9 || b.Southwest.Lng != 2.2 {
		t.Errorf("boundaries = %+v", b)
	}

	rec = serve(h.Geocode, "alice", httptest.NewRequest("GET", "/?q=atlantis", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unresolved status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if got := errorMessage(t, rec); got != "Location not resolved by GMaps" {
		t.Errorf("error = %q", got)
	}
}

func TestPlacesMultiLinksSkipsFailures(t *testing.T) {
	h, srv := setupPlacesHandler(t, "key")

	links, _ := json.Marshal([]string{
		srv.URL + "/maps/place/Louvre+Museum/@48.86,2.33,17z",
		"ftp://example.com/nothing",
		srv.URL + "/maps/search/nowhere",
	})
	rec := serve(h.MultiLinks, "alice", httptest.NewRequest("POST", "/", bytes.NewReader(links)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	places := decodeBody[[]provider.Place](t, rec)
	if len(places) != 1 || places[0].GoogleID != "louvre-id" {
		t.Errorf("places = %+v, want only the louvre", places)
	}
}

func TestPlacesMultiLinksBadBody(t *testing.T) {
	h, _ := setupPlacesHandler(t, "key")
	rec := serve(h.MultiLinks, "alice", httptest.NewRequest("POST", "/", strings.NewReader(`{"links":1}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRoute(t *testing.T) {
	h, _ := setupPlacesHandler(t, "key")

	body := `{"coordinates":[{"lat":38.5,"lng":-120.2},{"lat":40.7,"lng":-120.95}],"profile":"walk"}`
	rec := serve(h.Route, "alice", httptest.NewRequest("POST", "/api/route", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	route := decodeBody[provider.Route](t, rec)
	if route.DistanceMeters != 1200 || route.DurationSec != 300 {
		t.Errorf("route = %+v", route)
	}
	if len(route.Coordinates) != 2 {
		t.Errorf("len(coordinates) = %d, want 2", len(route.Coordinates))
	}
}

func TestRouteRejectsBadInput(t *testing.T) {
	h, _ := setupPlacesHandler(t, "key")

	tests := map[string]string{
		"malformed":       `[`,
		"one coordinate":  `{"coordinates":[{"lat":1,"lng":2}]}`,
		"unknown profile": `{"coordinates":[{"lat":1,"lng":2},{"lat":3,"lng":4}],"profile":"teleport"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(h.Route, "alice", httptest.NewRequest("POST", "/api/route", strings.NewReader(body)))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
