package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

const placeFields = "id,types,location,priceRange,displayName,formattedAddress," +
	"internationalPhoneNumber,websiteUri,allowsDogs,restroom,photos"

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (l LatLng) body() map[string]float64 {
	return map[string]float64{"latitude": l.Lat, "longitude": l.Lng}
}

// Place is a provider result normalized into the shape of a local place.
type Place struct {
	GoogleID    string   `json:"google_id"`
	Name        string   `json:"name"`
	Place       string   `json:"place"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Price       *float64 `json:"price"`
	Types       []string `json:"types"`
	AllowDog    *bool    `json:"allowdog"`
	Restroom    *bool    `json:"restroom"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Image       string   `json:"image,omitempty"`
}

func prefixed(fields string, prefix string) string {
	parts := strings.Split(fields, ",")
	for i, p := range parts {
		parts[i] = prefix + p
	}
	return strings.Join(parts, ",")
}

// TextSearch runs a free-text query, biased toward near when given.
func (c *Client) TextSearch(ctx context.Context, query string, near *LatLng) ([]gjson.Result, error) {
	body := map[string]any{"textQuery": query}
	if near != nil {
		body["locationBias"] = map[string]any{
			"circle": map[string]any{"center": near.body(), "radius": 5000.0},
		}
	}
	res, err := c.do(ctx, request{
		method:    http.MethodPost,
		url:       c.cfg.PlacesURL + "/v1/places:searchText",
		body:      body,
		fieldMask: prefixed(placeFields, "places."),
	})
	if err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return res.Get("places").Array(), nil
}

// NearbySearch lists places within radius meters of center.
func (c *Client) NearbySearch(ctx context.Context, center LatLng, radius float64) ([]gjson.Result, error) {
	if radius <= 0 {
		radius = 1600
	}
	res, err := c.do(ctx, request{
		method: http.MethodPost,
		url:    c.cfg.PlacesURL + "/v1/places:searchNearby",
		body: map[string]any{
			"maxResultCount": 20,
			"locationRestriction": map[string]any{
				"circle": map[string]any{"center": center.body(), "radius": radius},
			},
		},
		fieldMask: prefixed(placeFields, "places."),
	})
	if err != nil {
		return nil, fmt.Errorf("nearby search: %w", err)
	}
	return res.Get("places").Array(), nil
}

func (c *Client) PlaceDetails(ctx context.Context, placeID string) (gjson.Result, error) {
	res, err := c.do(ctx, request{
		method:    http.MethodGet,
		url:       c.cfg.PlacesURL + "/v1/places/" + url.PathEscape(placeID),
		fieldMask: placeFields,
	})
	if err != nil {
		return gjson.Result{}, fmt.Errorf("place details: %w", err)
	}
	return res, nil
}

// PhotoURL resolves a photo resource name to a public image URI.
func (c *Client) PhotoURL(ctx context.Context, photoName string) (string, error) {
	res, err := c.do(ctx, request{
		method:  http.MethodGet,
		url:     c.cfg.PlacesURL + "/v1/" + photoName + "/media?maxWidthPx=1000&skipHttpRedirect=true",
		timeout: shortTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("photo: %w", err)
	}
	uri := res.Get("photoUri").String()
	if uri == "" {
		return "", fmt.Errorf("photo: no uri for %s", photoName)
	}
	return uri, nil
}

// ResultToPlace normalizes one Places API result. The photo lookup is best
// effort; a failure leaves Image empty.
func (c *Client) ResultToPlace(ctx context.Context, raw gjson.Result) Place {
	p := Place{
		GoogleID: raw.Get("id").String(),
		Name:     raw.Get("displayName.text").String(),
		Lat:      raw.Get("location.latitude").Float(),
		Lng:      raw.Get("location.longitude").Float(),
		Price:    AveragePrice(raw.Get("priceRange.startPrice.units").String(), raw.Get("priceRange.endPrice.units").String()),
		Types:    []string{},
	}

	address := raw.Get("formattedAddress").String()
	p.Place = address
	if p.Place == "" {
		p.Place = p.Name
	}

	for _, t := range raw.Get("types").Array() {
		p.Types = append(p.Types, t.String())
	}
	p.Category = Categorize(p.Types)

	if v := raw.Get("allowsDogs"); v.Exists() {
		b := v.Bool()
		p.AllowDog = &b
	}
	if v := raw.Get("restroom"); v.Exists() {
		b := v.Bool()
		p.Restroom = &b
	}

	var lines []string
	if address != "" {
		lines = append(lines, "Address: "+address)
	}
	if phone := raw.Get("internationalPhoneNumber").String(); phone != "" {
		lines = append(lines, "Phone: "+phone)
	}
	if site := raw.Get("websiteUri").String(); site != "" {
		lines = append(lines, "Website: "+site)
	}
	p.Description = strings.Join(lines, "\n")

	if photo := raw.Get("photos.0.name").String(); photo != "" {
		uri, err := c.PhotoURL(ctx, photo)
		if err != nil {
			c.logger.Debug("place photo unavailable", "place", p.Name, "error", err)
		} else {
			p.Image = uri
		}
	}
	return p
}

// AveragePrice averages the start and end units of a price range. Either
// bound may be absent; nil means neither was usable.
func AveragePrice(start, end string) *float64 {
	s, sErr := strconv.Atoi(start)
	e, eErr := strconv.Atoi(end)
	var v float64
	switch {
	case sErr == nil && eErr == nil:
		v = float64(s+e) / 2
	case sErr == nil:
		v = float64(s)
	case eErr == nil:
		v = float64(e)
	default:
		return nil
	}
	return &v
}
