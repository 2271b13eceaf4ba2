package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/cache"
	"github.com/Bjornhona/movie-explorer/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL  = "https://api.themoviedb.org/3"
	defaultTimeout  = 30 * time.Second
	defaultLanguage = "en-US"
	maxRetries      = 3
	retryDelay      = 2 * time.Second
	userAgent       = "MovieExplorer/1.0"

	listCachePrefix   = "movies:list:"
	detailCachePrefix = "movies:detail:"
	listCacheTTL      = 10 * time.Minute
	detailCacheTTL    = 24 * time.Hour
)

// Client talks to the upstream movie catalog API. Listing and detail
// lookups are cached in redis; credentialed and mutating calls never are.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	logger      *logrus.Logger
	limiter     *rate.Limiter
	redis       *redis.Client
	maxRetries  int
	retryDelay  time.Duration
}

type ClientConfig struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
	RateLimit   rate.Limit
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      *logrus.Logger
	Redis       *redis.Client
}

func NewClient(config *ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = logrus.New()
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.RateLimit == 0 {
		config.RateLimit = rate.Limit(4)
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = maxRetries
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = retryDelay
	}

	return &Client{
		baseURL:     config.BaseURL,
		accessToken: config.AccessToken,
		httpClient: &http.Client{
			Timeout: config.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger:     config.Logger,
		limiter:    rate.NewLimiter(config.RateLimit, 1),
		redis:      config.Redis,
		maxRetries: config.MaxRetries,
		retryDelay: config.RetryDelay,
	}
}

// ListMovies fetches one page of a category listing.
func (c *Client) ListMovies(ctx context.Context, category string, page int) (*models.MoviePage, error) {
	if _, ok := models.CategoryByID(category); !ok {
		return nil, fmt.Errorf("unknown category %q", category)
	}
	if page < 1 {
		page = 1
	}

	cacheKey := listCachePrefix + category + ":" + strconv.Itoa(page)
	var cached models.MoviePage
	if hit, err := cache.GetJSON(ctx, c.redis, cacheKey, &cached); err != nil {
		c.logger.WithError(err).Warn("Failed to read listing from cache")
	} else if hit {
		c.logger.WithFields(logrus.Fields{
			"category": category,
			"page":     page,
		}).Debug("Retrieved listing from cache")
		return &cached, nil
	}

	params := url.Values{}
	params.Set("language", defaultLanguage)
	params.Set("page", strconv.Itoa(page))

	body, err := c.get(ctx, fmt.Sprintf("%s/movie/%s?%s", c.baseURL, category, params.Encode()))
	if err != nil {
		return nil, err
	}

	var result models.MoviePage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode listing response: %w", err)
	}

	if err := cache.SetJSON(ctx, c.redis, cacheKey, result, listCacheTTL); err != nil {
		c.logger.WithError(err).Warn("Failed to write listing to cache")
	}

	return &result, nil
}

// GetMovie fetches a single movie by id.
func (c *Client) GetMovie(ctx context.Context, id int, language string) (*models.Movie, error) {
	if language == "" {
		language = defaultLanguage
	}

	cacheKey := detailCachePrefix + strconv.Itoa(id) + ":" + language
	var cached models.Movie
	if hit, err := cache.GetJSON(ctx, c.redis, cacheKey, &cached); err != nil {
		c.logger.WithError(err).Warn("Failed to read movie from cache")
	} else if hit {
		return &cached, nil
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/movie/%d?language=%s", c.baseURL, id, url.QueryEscape(language)))
	if err != nil {
		return nil, err
	}

	var movie models.Movie
	if err := json.Unmarshal(body, &movie); err != nil {
		return nil, fmt.Errorf("failed to decode movie response: %w", err)
	}

	if err := cache.SetJSON(ctx, c.redis, cacheKey, movie, detailCacheTTL); err != nil {
		c.logger.WithError(err).Warn("Failed to write movie to cache")
	}

	return &movie, nil
}

// NewRequestToken starts the three-legged handshake.
func (c *Client) NewRequestToken(ctx context.Context) (*models.RequestTokenResponse, error) {
	body, err := c.get(ctx, c.baseURL+"/authentication/token/new")
	if err != nil {
		return nil, err
	}

	var token models.RequestTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("failed to decode request token response: %w", err)
	}
	if !token.Success || token.RequestToken == "" {
		return nil, fmt.Errorf("catalog refused to issue a request token")
	}
	return &token, nil
}

// CreateSession exchanges an approved request token for a session id.
func (c *Client) CreateSession(ctx context.Context, requestToken string) (*models.SessionResponse, error) {
	body, err := c.post(ctx, c.baseURL+"/authentication/session/new", map[string]string{
		"request_token": requestToken,
	})
	if err != nil {
		return nil, err
	}

	var session models.SessionResponse
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session response: %w", err)
	}
	if !session.Success || session.SessionID == "" {
		return nil, fmt.Errorf("catalog refused to create a session")
	}
	return &session, nil
}

// GetAccount resolves the account behind a session.
func (c *Client) GetAccount(ctx context.Context, sessionID string) (*models.Account, error) {
	body, err := c.get(ctx, c.baseURL+"/account?session_id="+url.QueryEscape(sessionID))
	if err != nil {
		return nil, err
	}

	var account models.Account
	if err := json.Unmarshal(body, &account); err != nil {
		return nil, fmt.Errorf("failed to decode account response: %w", err)
	}
	if account.ID == 0 {
		return nil, fmt.Errorf("account lookup returned no id")
	}
	return &account, nil
}

// WishlistMovies fetches one page of the account's wishlist; same page
// shape as a category listing.
func (c *Client) WishlistMovies(ctx context.Context, accountID, sessionID string, page int) (*models.MoviePage, error) {
	if page < 1 {
		page = 1
	}

	params := url.Values{}
	params.Set("language", defaultLanguage)
	params.Set("page", strconv.Itoa(page))
	params.Set("session_id", sessionID)

	body, err := c.get(ctx, fmt.Sprintf("%s/account/%s/watchlist/movies?%s",
		c.baseURL, url.PathEscape(accountID), params.Encode()))
	if err != nil {
		return nil, err
	}

	var result models.MoviePage
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode wishlist response: %w", err)
	}
	return &result, nil
}

// SetWishlist adds or removes a movie from the account's wishlist.
func (c *Client) SetWishlist(ctx context.Context, accountID, sessionID string, movieID int, add bool) error {
	payload := models.WishlistRequest{
		MediaType: "movie",
		MediaID:   movieID,
		Watchlist: add,
	}

	body, err := c.post(ctx, fmt.Sprintf("%s/account/%s/watchlist?session_id=%s",
		c.baseURL, url.PathEscape(accountID), url.QueryEscape(sessionID)), payload)
	if err != nil {
		return err
	}

	var status models.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return fmt.Errorf("failed to decode wishlist mutation response: %w", err)
	}
	if !status.Success {
		if status.StatusMessage != "" {
			return fmt.Errorf("%s", status.StatusMessage)
		}
		return fmt.Errorf("wishlist mutation was not accepted")
	}
	return nil
}

// AccountStates checks whether the session's account has the movie in its
// wishlist.
func (c *Client) AccountStates(ctx context.Context, movieID int, sessionID string) (*models.AccountStates, error) {
	body, err := c.get(ctx, fmt.Sprintf("%s/movie/%d/account_states?session_id=%s",
		c.baseURL, movieID, url.QueryEscape(sessionID)))
	if err != nil {
		return nil, err
	}

	var states models.AccountStates
	if err := json.Unmarshal(body, &states); err != nil {
		return nil, fmt.Errorf("failed to decode account states response: %w", err)
	}
	return &states, nil
}

func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	var rErr error

	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		c.setHeaders(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			rErr = fmt.Errorf("failed to make HTTP request: %w", err)
			c.retryLogger(attempt, requestURL, err)
			c.waitForRetry(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			rErr = fmt.Errorf("catalog returned status code %d", resp.StatusCode)
			c.retryLogger(attempt, requestURL, rErr)
			c.waitForRetry(ctx, attempt)
			continue
		}

		body, err := readRespBody(resp)
		resp.Body.Close()
		if err != nil {
			rErr = fmt.Errorf("failed to read response body: %w", err)
			c.retryLogger(attempt, requestURL, err)
			c.waitForRetry(ctx, attempt)
			continue
		}

		c.logger.WithFields(logrus.Fields{
			"url":           requestURL,
			"attempt":       attempt,
			"status":        resp.StatusCode,
			"response_size": len(body),
		}).Debug("Catalog request successful")

		return body, nil
	}

	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries, rErr)
}

// post issues a mutating call; mutations are never retried.
func (c *Client) post(ctx context.Context, requestURL string, payload any) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readRespBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	// the catalog answers mutations with 200 or 201
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		var status models.StatusResponse
		if err := json.Unmarshal(body, &status); err == nil && status.StatusMessage != "" {
			return nil, fmt.Errorf("%s", status.StatusMessage)
		}
		return nil, fmt.Errorf("catalog returned status code %d", resp.StatusCode)
	}

	return body, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
	}
}

func (c *Client) retryLogger(attempt int, url string, err error) {
	c.logger.WithFields(logrus.Fields{
		"attempt": attempt + 1,
		"url":     url,
		"error":   err.Error(),
	}).Warn("Catalog request failed, retrying...")
}

func (c *Client) waitForRetry(ctx context.Context, attempt int) {
	if attempt >= c.maxRetries-1 {
		return
	}
	delay := time.Duration(attempt+1) * c.retryDelay
	c.logger.WithField("delay", delay).Debug("waiting before retry")
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func readRespBody(resp *http.Response) ([]byte, error) {
	// limit response size to prevent memory issue
	const maxResponseSize = 5 * 1024 * 1024 // 5MB

	if resp.ContentLength > maxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes", resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxResponseSize {
		return nil, fmt.Errorf("response too large: exceeded %d bytes", maxResponseSize)
	}
	return body, nil
}
