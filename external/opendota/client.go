// Package opendota is the OpenDota API client backing the tracker's
// cascading fetches.
package opendota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
	"github.com/riskibarqy/dota-tracker/internal/platform/cache"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
	"github.com/riskibarqy/dota-tracker/internal/platform/resilience"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

const (
	defaultBaseURL  = "https://api.opendota.com/api"
	defaultCacheTTL = 5 * time.Minute
	maxBodyBytes    = 6 << 20
)

var errOpenDotaTransient = crerr.New("opendota transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxRetries     int
	CacheTTL       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client implements usecase.SourceGateway. Team and league summaries go
// through a TTL cache which force-refreshes bypass; match and player
// fetches are deduplicated by the entity stores, so they only share
// in-flight calls.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
	summaries      *cache.Store
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg),
		circuitEnabled: breakerCfg.Enabled,
		summaries:      cache.NewStore(ttl),
	}
}

func (c *Client) FetchTeam(ctx context.Context, teamID int64, force bool) (usecase.SourceTeam, error) {
	if teamID <= 0 {
		return usecase.SourceTeam{}, fmt.Errorf("team id must be greater than zero")
	}

	key := fmt.Sprintf("team-%d", teamID)
	load := func(ctx context.Context) (any, error) {
		var payload teamPayload
		if err := c.doJSON(ctx, fmt.Sprintf("/teams/%d", teamID), &payload); err != nil {
			return nil, fmt.Errorf("fetch team team_id=%d: %w", teamID, err)
		}
		return payload.toSource(), nil
	}

	if force {
		value, err := load(ctx)
		if err != nil {
			return usecase.SourceTeam{}, err
		}
		c.summaries.Set(ctx, key, value)
		return value.(usecase.SourceTeam), nil
	}

	value, err := c.summaries.GetOrLoad(ctx, key, load)
	if err != nil {
		return usecase.SourceTeam{}, err
	}
	return value.(usecase.SourceTeam), nil
}

func (c *Client) FetchLeague(ctx context.Context, leagueID int64, force bool) (usecase.SourceLeague, error) {
	if leagueID <= 0 {
		return usecase.SourceLeague{}, fmt.Errorf("league id must be greater than zero")
	}

	key := fmt.Sprintf("league-%d", leagueID)
	load := func(ctx context.Context) (any, error) {
		var info leaguePayload
		if err := c.doJSON(ctx, fmt.Sprintf("/leagues/%d", leagueID), &info); err != nil {
			return nil, fmt.Errorf("fetch league league_id=%d: %w", leagueID, err)
		}

		var rows []leagueMatchPayload
		if err := c.doJSON(ctx, fmt.Sprintf("/leagues/%d/matches", leagueID), &rows); err != nil {
			return nil, fmt.Errorf("fetch league matches league_id=%d: %w", leagueID, err)
		}

		out := usecase.SourceLeague{
			ID:      leagueID,
			Name:    strings.TrimSpace(info.Name),
			Tier:    strings.TrimSpace(info.Tier),
			Matches: make([]usecase.SourceLeagueMatch, 0, len(rows)),
		}
		for _, row := range rows {
			if row.MatchID <= 0 {
				continue
			}
			out.Matches = append(out.Matches, usecase.SourceLeagueMatch{
				MatchID:       row.MatchID,
				RadiantTeamID: row.RadiantTeamID,
				DireTeamID:    row.DireTeamID,
			})
		}
		return out, nil
	}

	if force {
		value, err := load(ctx)
		if err != nil {
			return usecase.SourceLeague{}, err
		}
		c.summaries.Set(ctx, key, value)
		return value.(usecase.SourceLeague), nil
	}

	value, err := c.summaries.GetOrLoad(ctx, key, load)
	if err != nil {
		return usecase.SourceLeague{}, err
	}
	return value.(usecase.SourceLeague), nil
}

func (c *Client) FetchMatch(ctx context.Context, matchID int64) (match.Match, error) {
	if matchID <= 0 {
		return match.Match{}, fmt.Errorf("match id must be greater than zero")
	}

	var payload matchPayload
	if err := c.doJSON(ctx, fmt.Sprintf("/matches/%d", matchID), &payload); err != nil {
		return match.Match{}, fmt.Errorf("fetch match match_id=%d: %w", matchID, err)
	}
	if payload.MatchID <= 0 {
		payload.MatchID = matchID
	}
	return payload.toDomain(), nil
}

func (c *Client) FetchPlayer(ctx context.Context, accountID int64) (player.Player, error) {
	if accountID <= 0 {
		return player.Player{}, fmt.Errorf("account id must be greater than zero")
	}

	var payload playerPayload
	if err := c.doJSON(ctx, fmt.Sprintf("/players/%d", accountID), &payload); err != nil {
		return player.Player{}, fmt.Errorf("fetch player account_id=%d: %w", accountID, err)
	}
	return payload.toDomain(accountID), nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "opendota circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: match data provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	if c.apiKey != "" {
		values := url.Values{}
		values.Set("api_key", c.apiKey)
		fullURL += "?" + values.Encode()
	}

	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errOpenDotaTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode provider payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: send request: %v", errOpenDotaTransient, err)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("%w: read response body: %v", errOpenDotaTransient, readErr)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case isRetryableStatus(resp.StatusCode):
				lastErr = fmt.Errorf("%w: provider status=%d body=%s", errOpenDotaTransient, resp.StatusCode, abbreviateBody(raw))
			default:
				return nil, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "opendota request failed", "url", redactAPIURL(fullURL), "error", lastErr)
	return nil, lastErr
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func redactAPIURL(raw string) string {
	if idx := strings.Index(raw, "api_key="); idx >= 0 {
		return raw[:idx] + "api_key=REDACTED"
	}
	return raw
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
