package ghclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v57/github"
	"github.com/spiffcs/repopin/internal/constants"
	"github.com/spiffcs/repopin/internal/log"
	"github.com/spiffcs/repopin/internal/model"
	"golang.org/x/oauth2"
)

// headerTransport pins the request headers the search endpoint expects.
type headerTransport struct {
	base http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("X-GitHub-Api-Version", constants.APIVersion)
	req.Header.Set("Content-Type", "application/json")
	log.Debug("github request", "method", req.Method, "url", req.URL.String())
	return t.base.RoundTrip(req)
}

// rateLimitTransport wraps an http.RoundTripper to handle GitHub rate limits
type rateLimitTransport struct {
	base  http.RoundTripper
	state *RateLimitState
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.state.IsLimited() {
		return nil, ErrRateLimited
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	remaining, limit, resetAt := parseRateLimitHeaders(resp)
	if remaining >= 0 && limit > 0 {
		t.state.Update(remaining, limit, resetAt)
		log.Trace("rate limit", "remaining", remaining, "limit", limit, "resets_at", resetAt.Format(time.RFC3339))
	}

	if remaining <= constants.RateLimitLowWatermark && remaining > 0 {
		log.Debug("rate limit low", "remaining", remaining, "resets_at", resetAt.Format(time.RFC3339))
	}

	// 403 with an exhausted quota or 429 means we are limited; the response
	// itself still flows back so the caller sees the server's error payload.
	if resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0") {
		t.state.SetLimited(true, resetAt)
	}

	return resp, nil
}

// Client wraps the GitHub API client
type Client struct {
	client    *gh.Client
	rateLimit *RateLimitState
	limit     int
}

// ClientOption is a functional option for configuring a Client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	baseURL string
	limit   int
	base    http.RoundTripper
}

// WithBaseURL points the client at a different API root (GitHub Enterprise
// or a test server).
func WithBaseURL(u string) ClientOption {
	return func(o *clientOptions) {
		o.baseURL = u
	}
}

// WithResultLimit sets how many results a search returns (at most MaxResults).
func WithResultLimit(n int) ClientOption {
	return func(o *clientOptions) {
		o.limit = n
	}
}

// WithTransport replaces the underlying HTTP transport.
func WithTransport(rt http.RoundTripper) ClientOption {
	return func(o *clientOptions) {
		o.base = rt
	}
}

// NewClient creates a new GitHub client. The token is optional: repository
// search works unauthenticated with a lower rate limit.
func NewClient(ctx context.Context, token string, opts ...ClientOption) (*Client, error) {
	o := clientOptions{
		limit: constants.MaxResults,
		base:  http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit <= 0 || o.limit > constants.MaxResults {
		o.limit = constants.MaxResults
	}

	state := NewRateLimitState()
	var transport http.RoundTripper = &rateLimitTransport{
		base:  &headerTransport{base: o.base},
		state: state,
	}

	if token != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
			Base:   transport,
		}
	}

	client := gh.NewClient(&http.Client{Transport: transport})

	if o.baseURL != "" {
		u, err := url.Parse(o.baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid api url %q: %w", o.baseURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		client.BaseURL = u
	}

	return &Client{
		client:    client,
		rateLimit: state,
		limit:     o.limit,
	}, nil
}

// SearchRepositories runs a repository search and returns at most the
// configured number of results, in API order.
func (c *Client) SearchRepositories(ctx context.Context, query string) ([]model.Repository, error) {
	opts := &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: c.limit},
	}

	result, _, err := c.client.Search.Repositories(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search repositories: %w", asSearchRequestFailed(err))
	}

	repos := make([]model.Repository, 0, c.limit)
	for _, r := range result.Repositories {
		if len(repos) == c.limit {
			break
		}
		repos = append(repos, toRepository(r))
	}

	log.Debug("search complete", "query", query, "total", result.GetTotal(), "kept", len(repos))
	return repos, nil
}

// RepositoryByID fetches a single repository by its numeric ID.
func (c *Client) RepositoryByID(ctx context.Context, id int64) (model.Repository, error) {
	r, _, err := c.client.Repositories.GetByID(ctx, id)
	if err != nil {
		return model.Repository{}, fmt.Errorf("failed to get repository %d: %w", id, asSearchRequestFailed(err))
	}
	return toRepository(r), nil
}

// RateLimits fetches the current GitHub API rate limit status.
func (c *Client) RateLimits(ctx context.Context) (*gh.RateLimits, error) {
	limits, _, err := c.client.RateLimit.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate limits: %w", err)
	}
	return limits, nil
}

// RateLimitState exposes the quota observed on responses.
func (c *Client) RateLimitState() *RateLimitState {
	return c.rateLimit
}

// toRepository converts a go-github repository to the domain type.
func toRepository(r *gh.Repository) model.Repository {
	return model.Repository{
		ID:          r.GetID(),
		FullName:    r.GetFullName(),
		Name:        r.GetName(),
		OwnerLogin:  r.GetOwner().GetLogin(),
		StarCount:   r.GetStargazersCount(),
		Description: r.GetDescription(),
		HTMLURL:     r.GetHTMLURL(),
	}
}
