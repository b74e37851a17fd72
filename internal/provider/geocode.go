package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Boundaries is the viewport of a geocoded location.
type Boundaries struct {
	Northeast LatLng `json:"northeast"`
	Southwest LatLng `json:"southwest"`
}

// GeocodeBoundaries returns the viewport of the best match for query, or
// nil when nothing matches.
func (c *Client) GeocodeBoundaries(ctx context.Context, query string) (*Boundaries, error) {
	q := url.Values{"address": {query}, "key": {c.apiKey}}
	res, err := c.do(ctx, request{
		method: http.MethodGet,
		url:    c.cfg.GeocodeURL + "/maps/api/geocode/json?" + q.Encode(),
	})
	if err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}

	switch status := res.Get("status").String(); status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, nil
	default:
		msg := res.Get("error_message").String()
		if msg == "" {
			msg = status
		}
		return nil, fmt.Errorf("geocode: %w", &APIError{Status: http.StatusBadRequest, Message: msg})
	}

	vp := res.Get("results.0.geometry.viewport")
	if !vp.Exists() {
		return nil, nil
	}
	return &Boundaries{
		Northeast: LatLng{Lat: vp.Get("northeast.lat").Float(), Lng: vp.Get("northeast.lng").Float()},
		Southwest: LatLng{Lat: vp.Get("southwest.lat").Float(), Lng: vp.Get("southwest.lng").Float()},
	}, nil
}
