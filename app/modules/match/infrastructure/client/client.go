package matchclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	matchdomain "github.com/scuffedaim/matchview/app/modules/match/domain"
	"github.com/scuffedaim/matchview/app/observability/attr"
	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 8 << 20

// Config holds upstream API configuration.
type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Client reads match scores, beatmaps and players from the upstream API.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewClient creates a Client. A non-positive RequestsPerSecond disables
// outbound rate limiting.
func NewClient(cfg Config, logger *slog.Logger, tracer trace.Tracer) *Client {
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "matchview/1.0"
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(limit, burst),
		logger:    logger,
		tracer:    tracer,
	}
}

// FetchMatchScores returns every score recorded for a match.
func (c *Client) FetchMatchScores(ctx context.Context, matchID matchdomain.MatchID) ([]matchdomain.Score, error) {
	ctx, span := c.tracer.Start(ctx, "MatchClient.FetchMatchScores", trace.WithAttributes(
		attribute.String("match_id", matchID.String()),
	))
	defer span.End()

	body, err := c.get(ctx, "/v2/scores/match/"+url.PathEscape(matchID.String()), nil)
	if err != nil {
		return nil, recordErr(span, err)
	}
	data, err := envelope(body, "data")
	if err != nil {
		return nil, recordErr(span, err)
	}
	if !data.IsArray() {
		return nil, recordErr(span, fmt.Errorf("%w: scores payload is %s", ErrMalformedResponse, data.Type))
	}

	var wire []wireScore
	if err := json.Unmarshal([]byte(data.Raw), &wire); err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}

	scores := make([]matchdomain.Score, 0, len(wire))
	for _, w := range wire {
		s, err := w.toDomain()
		if err != nil {
			return nil, recordErr(span, err)
		}
		scores = append(scores, s)
	}
	span.SetAttributes(attribute.Int("score_count", len(scores)))
	return scores, nil
}

// FetchBeatmap returns beatmap metadata by md5, or ErrNotFound.
func (c *Client) FetchBeatmap(ctx context.Context, hash matchdomain.BeatmapHash) (*matchdomain.BeatmapInfo, error) {
	ctx, span := c.tracer.Start(ctx, "MatchClient.FetchBeatmap", trace.WithAttributes(
		attribute.String("map_md5", hash.String()),
	))
	defer span.End()

	body, err := c.get(ctx, "/v1/get_map_info", url.Values{"md5": {hash.String()}})
	if err != nil {
		return nil, recordErr(span, err)
	}
	data, err := envelope(body, "map")
	if err != nil {
		return nil, recordErr(span, err)
	}

	var info matchdomain.BeatmapInfo
	if err := json.Unmarshal([]byte(data.Raw), &info); err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	// scores reference maps by the requested hash, whatever casing upstream echoes
	info.MD5 = hash
	return &info, nil
}

// FetchPlayer returns a player profile by id, or ErrNotFound.
func (c *Client) FetchPlayer(ctx context.Context, id matchdomain.PlayerID) (*matchdomain.PlayerInfo, error) {
	ctx, span := c.tracer.Start(ctx, "MatchClient.FetchPlayer", trace.WithAttributes(
		attribute.Int64("player_id", int64(id)),
	))
	defer span.End()

	body, err := c.get(ctx, "/v2/players/"+strconv.FormatInt(int64(id), 10), nil)
	if err != nil {
		return nil, recordErr(span, err)
	}
	data, err := envelope(body, "data")
	if err != nil {
		return nil, recordErr(span, err)
	}

	var info matchdomain.PlayerInfo
	if err := json.Unmarshal([]byte(data.Raw), &info); err != nil {
		return nil, recordErr(span, fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	if info.ID == 0 {
		info.ID = id
	}
	return &info, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("GET %s: read body: %w", path, err)
	}

	c.logger.DebugContext(ctx, "upstream request",
		attr.String("path", path),
		attr.Int("status", resp.StatusCode),
		attr.Duration("elapsed", time.Since(start)),
	)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %d from %s", ErrUpstreamStatus, resp.StatusCode, path)
	}
	return body, nil
}

// envelope extracts field from a JSON response body.
func envelope(body []byte, field string) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: invalid JSON", ErrMalformedResponse)
	}
	res := gjson.GetBytes(body, field)
	if !res.Exists() || res.Type == gjson.Null {
		return gjson.Result{}, ErrNotFound
	}
	return res, nil
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
