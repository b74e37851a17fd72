package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	ErrMalformedPolyline = errors.New("malformed polyline string")
	ErrUnknownProfile    = errors.New("unknown travel profile")
)

// RouteQuery asks for a route through at least two coordinates.
type RouteQuery struct {
	Coordinates []LatLng `json:"coordinates"`
	Profile     string   `json:"profile"`
}

type Route struct {
	DistanceMeters int          `json:"distance"`
	DurationSec    int          `json:"duration"`
	Coordinates    [][2]float64 `json:"coordinates"`
}

var travelModes = map[string]string{
	"":        "DRIVE",
	"car":     "DRIVE",
	"drive":   "DRIVE",
	"walk":    "WALK",
	"foot":    "WALK",
	"bike":    "BICYCLE",
	"bicycle": "BICYCLE",
}

func waypoint(l LatLng) map[string]any {
	return map[string]any{"location": map[string]any{"latLng": l.body()}}
}

// Route computes a route and decodes its geometry into [lng, lat] pairs.
func (c *Client) Route(ctx context.Context, q RouteQuery) (*Route, error) {
	if len(q.Coordinates) < 2 {
		return nil, errors.New("route: at least two coordinates are required")
	}
	mode, ok := travelModes[strings.ToLower(q.Profile)]
	if !ok {
		return nil, fmt.Errorf("route: %w %q", ErrUnknownProfile, q.Profile)
	}

	body := map[string]any{
		"origin":      waypoint(q.Coordinates[0]),
		"destination": waypoint(q.Coordinates[len(q.Coordinates)-1]),
		"travelMode":  mode,
	}
	if mid := q.Coordinates[1 : len(q.Coordinates)-1]; len(mid) > 0 {
		intermediates := make([]map[string]any, 0, len(mid))
		for _, l := range mid {
			intermediates = append(intermediates, waypoint(l))
		}
		body["intermediates"] = intermediates
	}

	res, err := c.do(ctx, request{
		method:    http.MethodPost,
		url:       c.cfg.RoutesURL + "/directions/v2:computeRoutes",
		body:      body,
		fieldMask: "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline",
	})
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}

	r := res.Get("routes.0")
	if !r.Exists() {
		return nil, errors.New("route: no route found")
	}
	coords, err := DecodePolyline(r.Get("polyline.encodedPolyline").String())
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	duration, _ := strconv.Atoi(strings.TrimSuffix(r.Get("duration").String(), "s"))
	return &Route{
		DistanceMeters: int(r.Get("distanceMeters").Int()),
		DurationSec:    duration,
		Coordinates:    coords,
	}, nil
}

// DecodePolyline decodes an encoded polyline (precision 5) into [lng, lat]
// pairs.
func DecodePolyline(encoded string) ([][2]float64, error) {
	coords := [][2]float64{}
	var lat, lng int
	for i := 0; i < len(encoded); {
		dlat, next, err := decodeValue(encoded, i)
		if err != nil {
			return nil, err
		}
		dlng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		i = next
		lat += dlat
		lng += dlng
		coords = append(coords, [2]float64{float64(lng) * 1e-5, float64(lat) * 1e-5})
	}
	return coords, nil
}

func decodeValue(s string, i int) (int, int, error) {
	var result, shift int
	for {
		if i >= len(s) {
			return 0, 0, ErrMalformedPolyline
		}
		b := int(s[i]) - 63
		i++
		if b < 0 || shift > 30 {
			return 0, 0, ErrMalformedPolyline
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}
	if result&1 != 0 {
		return ^(result >> 1), i, nil
	}
	return result >> 1, i, nil
}
