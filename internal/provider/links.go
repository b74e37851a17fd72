package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

var errUnresolvedLink = errors.New("link does not point to a place")

// LinkTarget is what a shared maps link points at.
type LinkTarget struct {
	Query string
	Near  *LatLng
}

// ResolveShortLink follows redirects from a shared link and extracts the
// place name and, when present, the map center from the final URL.
func (c *Client) ResolveShortLink(ctx context.Context, link string) (*LinkTarget, error) {
	u, err := url.Parse(link)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("resolve link %q: %w", link, errUnresolvedLink)
	}

	ctx, cancel := context.WithTimeout(ctx, shortTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("resolve link: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Message: "Request failed"}
	}

	target := ParseMapsURL(resp.Request.URL)
	if target == nil {
		return nil, fmt.Errorf("resolve link %q: %w", link, errUnresolvedLink)
	}
	return target, nil
}

// ParseMapsURL extracts the target of a maps URL of the form
// /maps/place/<name>/@<lat>,<lng>,<zoom>z or /maps/search/<query>, or a
// q= / query= parameter. It returns nil when no name is found.
func ParseMapsURL(u *url.URL) *LinkTarget {
	segments := strings.Split(strings.Trim(u.EscapedPath(), "/"), "/")
	var t LinkTarget
	for i, seg := range segments {
		if (seg == "place" || seg == "search") && i+1 < len(segments) && t.Query == "" {
			t.Query = unescapeSegment(segments[i+1])
		}
		if strings.HasPrefix(seg, "@") {
			t.Near = parseCenter(seg[1:])
		}
	}
	if t.Query == "" {
		for _, key := range []string{"q", "query"} {
			if v := u.Query().Get(key); v != "" {
				t.Query = v
				break
			}
		}
	}
	if t.Query == "" {
		return nil
	}
	return &t
}

func unescapeSegment(seg string) string {
	seg = strings.ReplaceAll(seg, "+", " ")
	if s, err := url.PathUnescape(seg); err == nil {
		return s
	}
	return seg
}

func parseCenter(s string) *LatLng {
	parts := strings.Split(s, ",")
	if len(parts) < 2 {
		return nil
	}
	lat, err1 := strconv.ParseFloat(parts[0], 64)
	lng, err2 := strconv.ParseFloat(parts[1], 64)
	if err1 != nil || err2 != nil {
		return nil
	}
	return &LatLng{Lat: lat, Lng: lng}
}

// SearchLink resolves a shared link to the first matching place.
func (c *Client) SearchLink(ctx context.Context, link string) (Place, error) {
	target, err := c.ResolveShortLink(ctx, link)
	if err != nil {
		return Place{}, err
	}
	results, err := c.TextSearch(ctx, target.Query, target.Near)
	if err != nil {
		return Place{}, err
	}
	if len(results) == 0 {
		return Place{}, fmt.Errorf("no place found for %q", target.Query)
	}
	return c.ResultToPlace(ctx, results[0]), nil
}
