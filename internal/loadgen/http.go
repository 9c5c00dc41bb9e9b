package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/okian/cinerank/pkg/logger"
)

// reply is a fully read HTTP response.
type reply struct {
	status int
	body   []byte
}

// Client talks to the recommender API. Transport errors and 5xx responses
// count against a circuit breaker so a struggling server is not hammered.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[reply]
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	log := logger.Named("loadgen")
	settings := gobreaker.Settings{
		Name:        "cinerank-api",
		MaxRequests: breakerHalfOpenRequests,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker[reply](settings),
	}
}

// BreakerState reports the circuit breaker state.
func (c *Client) BreakerState() string {
	return c.breaker.State().String()
}

func (c *Client) do(ctx context.Context, method, path string, body any) (reply, error) {
	return c.breaker.Execute(func() (reply, error) {
		var rd io.Reader
		if body != nil {
			data, err := json.Marshal(body)
			if err != nil {
				return reply{}, fmt.Errorf("failed to marshal request body: %w", err)
			}
			rd = bytes.NewReader(data)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
		if err != nil {
			return reply{}, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return reply{}, err
		}
		defer func() { _ = resp.Body.Close() }()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return reply{}, fmt.Errorf("failed to read response: %w", err)
		}

		r := reply{status: resp.StatusCode, body: data}
		if r.status >= StatusServerError {
			return r, fmt.Errorf("%w: %s %s returned %d", ErrUnexpected, method, path, r.status)
		}
		return r, nil
	})
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	r, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if r.status != StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrUnexpected, path, r.status)
	}
	return json.Unmarshal(r.body, v)
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	r, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if r.status != StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, r.status)
	}
	return nil
}

// Movies pages through GET /movies until the whole catalog is read.
func (c *Client) Movies(ctx context.Context, pageSize int) ([]Movie, error) {
	var all []Movie
	for skip := 0; ; skip += pageSize {
		var page struct {
			Movies []Movie `json:"movies"`
			Total  int     `json:"total"`
		}
		path := "/movies?limit=" + strconv.Itoa(pageSize) + "&skip=" + strconv.Itoa(skip)
		if err := c.getJSON(ctx, path, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Movies...)
		if len(page.Movies) == 0 || len(all) >= page.Total {
			return all, nil
		}
	}
}

// Recommendations fetches GET /users/{id}/recommendations.
func (c *Client) Recommendations(ctx context.Context, userID string, limit int) ([]Recommendation, error) {
	var body struct {
		Recommendations []Recommendation `json:"recommendations"`
	}
	path := "/users/" + url.PathEscape(userID) + "/recommendations?limit=" + strconv.Itoa(limit)
	if err := c.getJSON(ctx, path, &body); err != nil {
		return nil, err
	}
	return body.Recommendations, nil
}

// Stats fetches GET /stats.
func (c *Client) Stats(ctx context.Context) (ServerStats, error) {
	var s ServerStats
	err := c.getJSON(ctx, "/stats", &s)
	return s, err
}

// outcome classifies one rating submission.
type outcome string

const (
	outcomeAccepted  outcome = "accepted"
	outcomeDuplicate outcome = "duplicate"
	outcomeThrottled outcome = "throttled"
	outcomeFailed    outcome = "failed"
)

// SubmitRating posts one event to POST /ratings.
func (c *Client) SubmitRating(ctx context.Context, e Event) (outcome, error) {
	r, err := c.do(ctx, http.MethodPost, "/ratings", e)
	if err != nil {
		return outcomeFailed, err
	}

	switch r.status {
	case StatusAccepted:
		return outcomeAccepted, nil
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(r.body, &ack); err == nil && ack.Duplicate {
			return outcomeDuplicate, nil
		}
		return outcomeFailed, fmt.Errorf("%w: 200 without duplicate flag", ErrUnexpected)
	case StatusTooManyRequests:
		return outcomeThrottled, nil
	default:
		return outcomeFailed, fmt.Errorf("%w: POST /ratings returned %d: %s", ErrUnexpected, r.status, bytes.TrimSpace(r.body))
	}
}
