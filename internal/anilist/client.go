package anilist

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Meta carries per-response metadata alongside the decoded payload. Headers
// travel with their response instead of through shared state.
type Meta struct {
	// Date is the raw HTTP Date header, the ingestion timestamp source.
	Date string
}

// Response is the decoded GraphQL envelope. Only the fields a given query
// selects are populated; the rest stay zero.
type Response struct {
	Data struct {
		User *struct {
			ID int `json:"id"`
		} `json:"User"`
		Media *struct {
			CoverImage struct {
				ExtraLarge string `json:"extraLarge"`
			} `json:"coverImage"`
		} `json:"Media"`
		Page *PagePayload `json:"Page"`
	} `json:"data"`
}

// PagePayload is one page of a paginated query.
type PagePayload struct {
	PageInfo struct {
		HasNextPage bool `json:"hasNextPage"`
	} `json:"pageInfo"`
	Users []UserPayload  `json:"users"`
	Media []MediaPayload `json:"media"`
}

// UserPayload is the nested user-statistics record.
type UserPayload struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Statistics struct {
		Anime FormatStats `json:"anime"`
		Manga FormatStats `json:"manga"`
	} `json:"statistics"`
}

// FormatStats groups score entries for one media format.
type FormatStats struct {
	Scores []ScoreEntry `json:"scores"`
}

// ScoreEntry maps one score value to every title the user gave it to.
type ScoreEntry struct {
	Score    int   `json:"score"`
	MediaIDs []int `json:"mediaIds"`
}

// MediaPayload is one title record from the media query. Optional fields are
// pointers so the consistency filter can distinguish absent from zero.
type MediaPayload struct {
	ID           int  `json:"id"`
	AverageScore *int `json:"averageScore"`
	Popularity   *int `json:"popularity"`
	Title        struct {
		Romaji *string `json:"romaji"`
	} `json:"title"`
	Genres []string `json:"genres"`
}

// Client defines the contract for issuing single-page GraphQL requests.
type Client interface {
	Fetch(ctx context.Context, query string, variables map[string]any) (*Response, Meta, error)
}

// HTTPClient implements Client over HTTPS POST with a client-side rate
// limiter so bulk pagination stays inside the upstream's request budget.
type HTTPClient struct {
	endpoint *url.URL
	client   *http.Client
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewHTTPClient constructs an HTTP-backed AniList client. ratePerSec bounds
// outgoing requests; zero disables the limiter.
func NewHTTPClient(baseURL string, timeout time.Duration, ratePerSec float64, logger zerolog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse anilist url: %w", err)
	}

	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}

	return &HTTPClient{
		endpoint: parsed,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		limiter: limiter,
		logger:  logger,
	}, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

// Fetch posts one query and returns the decoded payload with its response
// metadata. Failures are classified into the package sentinels.
func (c *HTTPClient) Fetch(ctx context.Context, query string, variables map[string]any) (*Response, Meta, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, Meta{}, err
		}
	}

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, Meta{}, fmt.Errorf("encode graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return nil, Meta{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, Meta{}, ErrTimeout
		}
		return nil, Meta{}, err
	}
	defer resp.Body.Close()

	meta := Meta{Date: resp.Header.Get("Date")}

	switch resp.StatusCode {
	case http.StatusOK:
		var payload Response
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, Meta{}, fmt.Errorf("decode anilist response: %w", err)
		}
		return &payload, meta, nil
	case http.StatusNotFound:
		return nil, meta, ErrNotFound
	case http.StatusTooManyRequests:
		c.logger.Warn().Str("retry_after", resp.Header.Get("Retry-After")).Msg("anilist rate limit hit")
		return nil, meta, ErrRateLimited
	default:
		c.logger.Error().Int("status", resp.StatusCode).Msg("unexpected anilist status")
		return nil, meta, fmt.Errorf("anilist: upstream returned %d", resp.StatusCode)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
