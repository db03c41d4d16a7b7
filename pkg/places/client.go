package places

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadscout/internal/resilience"
)

const (
	defaultBaseURL    = "https://places.googleapis.com/v1"
	defaultGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

	searchFieldMask  = "places.id,places.displayName,places.formattedAddress,places.websiteUri,places.location,nextPageToken"
	detailsFieldMask = "id,displayName,formattedAddress,websiteUri,location"
)

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the Places API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithGeocodeURL overrides the Geocoding API endpoint.
func WithGeocodeURL(u string) Option {
	return func(c *httpClient) {
		c.geocodeURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps outgoing requests per second. Non-positive means unlimited.
func WithRateLimit(perSecond float64) Option {
	return func(c *httpClient) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithCircuitBreaker routes every request through cb so a failing provider
// is rejected locally instead of being called again.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *httpClient) {
		c.breaker = cb
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	geocodeURL string
	http       *http.Client
	limiter    *rate.Limiter
	breaker    *resilience.CircuitBreaker
}

// NewClient creates a places client for the given API key.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		geocodeURL: defaultGeocodeURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type apiPlace struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress string `json:"formattedAddress"`
	WebsiteURI       string `json:"websiteUri"`
	Location         *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

func (p apiPlace) toPlace() Place {
	out := Place{
		ID:      p.ID,
		Name:    p.DisplayName.Text,
		Website: p.WebsiteURI,
		Address: p.FormattedAddress,
	}
	if p.Location != nil {
		out.Location = &LatLng{Lat: p.Location.Latitude, Lng: p.Location.Longitude}
	}
	return out
}

type searchResponse struct {
	Places        []apiPlace `json:"places"`
	NextPageToken string     `json:"nextPageToken"`
}

type circle struct {
	Center struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"center"`
	Radius float64 `json:"radius"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type searchTextRequest struct {
	TextQuery    string        `json:"textQuery"`
	PageSize     int           `json:"pageSize,omitempty"`
	PageToken    string        `json:"pageToken,omitempty"`
	LocationBias *locationBias `json:"locationBias,omitempty"`
}

// SearchNearby runs a keyword search biased to a circle around the center.
func (c *httpClient) SearchNearby(ctx context.Context, req NearbyRequest) (*Page, error) {
	body := searchTextRequest{
		TextQuery: req.Keyword,
		PageSize:  clampPageSize(req.PageSize),
		PageToken: req.PageToken,
	}
	if req.RadiusMeters > 0 {
		bias := &locationBias{}
		bias.Circle.Center.Latitude = req.Center.Lat
		bias.Circle.Center.Longitude = req.Center.Lng
		bias.Circle.Radius = float64(req.RadiusMeters)
		body.LocationBias = bias
	}
	return c.searchText(ctx, body)
}

// SearchText runs a free-text search.
func (c *httpClient) SearchText(ctx context.Context, req TextRequest) (*Page, error) {
	return c.searchText(ctx, searchTextRequest{
		TextQuery: req.Query,
		PageSize:  clampPageSize(req.PageSize),
		PageToken: req.PageToken,
	})
}

func (c *httpClient) searchText(ctx context.Context, body searchTextRequest) (*Page, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	respBody, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/places:searchText", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", searchFieldMask)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var resp searchResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal search response")
	}

	page := &Page{
		Places:        make([]Place, 0, len(resp.Places)),
		NextPageToken: resp.NextPageToken,
	}
	for _, p := range resp.Places {
		page.Places = append(page.Places, p.toPlace())
	}
	return page, nil
}

// Details fetches a single place by id.
func (c *httpClient) Details(ctx context.Context, placeID string) (*Place, error) {
	if placeID == "" {
		return nil, eris.Wrap(ErrNotFound, "places: empty place id")
	}

	respBody, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/places/"+url.PathEscape(placeID), nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Goog-Api-Key", c.apiKey)
		req.Header.Set("X-Goog-FieldMask", detailsFieldMask)
		return req, nil
	})
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, eris.Wrapf(ErrNotFound, "places: details %s", placeID)
		}
		return nil, err
	}

	var p apiPlace
	if err := json.Unmarshal(respBody, &p); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal details response")
	}
	out := p.toPlace()
	return &out, nil
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves free text to the first matching coordinate.
func (c *httpClient) Geocode(ctx context.Context, query string) (*LatLng, error) {
	params := url.Values{
		"address": {query},
		"key":     {c.apiKey},
	}

	respBody, err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, c.geocodeURL+"?"+params.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}

	var resp geocodeResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, eris.Wrap(err, "places: unmarshal geocode response")
	}

	switch resp.Status {
	case "OK":
		if len(resp.Results) == 0 {
			return nil, eris.Wrapf(ErrNotFound, "places: geocode %q", query)
		}
		loc := resp.Results[0].Geometry.Location
		return &LatLng{Lat: loc.Lat, Lng: loc.Lng}, nil
	case "ZERO_RESULTS":
		return nil, eris.Wrapf(ErrNotFound, "places: geocode %q", query)
	case "OVER_QUERY_LIMIT":
		se := &StatusError{Code: http.StatusTooManyRequests, Message: resp.ErrorMessage}
		return nil, resilience.NewTransientError(se, se.Code)
	case "UNKNOWN_ERROR":
		se := &StatusError{Code: http.StatusServiceUnavailable, Message: resp.ErrorMessage}
		return nil, resilience.NewTransientError(se, se.Code)
	default:
		msg := resp.Status
		if resp.ErrorMessage != "" {
			msg += ": " + resp.ErrorMessage
		}
		return nil, &StatusError{Code: http.StatusBadRequest, Message: msg}
	}
}

// do sends one request built by build. Requests are never retried; a failing
// call counts against the circuit breaker when one is configured.
func (c *httpClient) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit")
	}

	call := func(ctx context.Context) ([]byte, error) {
		req, err := build()
		if err != nil {
			return nil, eris.Wrap(err, "places: create request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "places: send request")
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "places: read response")
		}

		if resp.StatusCode != http.StatusOK {
			se := &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
			if se.Transient() {
				return nil, resilience.NewTransientError(se, se.Code)
			}
			return nil, se
		}
		return body, nil
	}

	if c.breaker == nil {
		return call(ctx)
	}
	body, err := resilience.ExecuteVal(ctx, c.breaker, call)
	if eris.Is(err, resilience.ErrCircuitOpen) {
		return nil, eris.Wrap(err, "places: provider circuit open")
	}
	return body, err
}

// errorMessage pulls the human-readable message out of either API's error body.
func errorMessage(body []byte) string {
	for _, path := range []string{"error.message", "error_message"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	if len(body) > 200 {
		return string(body[:200])
	}
	return string(body)
}
