package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/pkg/config"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
	"github.com/noah-isme/manabi-api/pkg/jobs"
)

var (
	urlPattern      = regexp.MustCompile(`https?://[^\s<>"'` + "`" + `]+`)
	zoomMeetingPath = regexp.MustCompile(`^/(?:j|wc/join|wc|s)/(\d{9,11})`)
)

// Upstream statuses meaning the provider refuses this URL on purpose.
var blockedStatuses = map[int]struct{}{
	http.StatusForbidden:                  {},
	http.StatusLocked:                     {},
	http.StatusTooManyRequests:            {},
	http.StatusUnavailableForLegalReasons: {},
}

const (
	maxPreviewBody = 1 << 20

	// PreviewWorkers is the fixed size of the preview fetch pool.
	PreviewWorkers = 3
)

type previewCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, pattern string) error
}

// LinkPreviewService builds preview cards for URLs found in chat messages.
type LinkPreviewService struct {
	cfg     config.LinkPreviewConfig
	client  *http.Client
	cache   previewCache
	metrics *MetricsService
	logger  *zap.Logger
}

// NewLinkPreviewService constructs the service. A nil client gets one with the configured timeout.
func NewLinkPreviewService(cfg config.LinkPreviewConfig, client *http.Client, cache previewCache, metrics *MetricsService, logger *zap.Logger) *LinkPreviewService {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.linkpreview.net/"
	}
	if cfg.OEmbedURL == "" {
		cfg.OEmbedURL = "https://www.youtube.com/oembed"
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkPreviewService{cfg: cfg, client: client, cache: cache, metrics: metrics, logger: logger}
}

// ExtractURLs returns the distinct http(s) URLs in text in order of appearance.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;:!?)]}")
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}

// Preview resolves one URL, using the cache when possible.
func (s *LinkPreviewService) Preview(ctx context.Context, rawURL string) (*dto.LinkPreview, error) {
	if !s.cfg.Enabled {
		return nil, appErrors.Clone(appErrors.ErrNotConfigured, "link previews are disabled")
	}
	target, err := parsePreviewURL(rawURL)
	if err != nil {
		return nil, err
	}
	key := s.cacheKey(target.String())
	var cached dto.LinkPreview
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return &cached, nil
		}
	}

	preview, err := s.fetch(ctx, target)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, preview, s.cfg.CacheTTL)
	}
	return &preview, nil
}

// Batch previews every distinct URL in texts with a fixed pool of workers.
// URLs that fail to resolve get a placeholder card instead of an error.
func (s *LinkPreviewService) Batch(ctx context.Context, texts []string) (map[string]dto.LinkPreview, error) {
	seen := make(map[string]struct{})
	var urls []string
	for _, text := range texts {
		for _, u := range ExtractURLs(text) {
			if _, ok := seen[u]; ok {
				continue
			}
			seen[u] = struct{}{}
			urls = append(urls, u)
		}
	}

	results := make(map[string]dto.LinkPreview, len(urls))
	if len(urls) == 0 {
		return results, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(PreviewWorkers)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			preview, err := s.Preview(gctx, u)
			if err != nil {
				s.logger.Debug("link preview degraded to placeholder", zap.String("url", u), zap.Error(err))
				preview = placeholderPreview(u)
			}
			mu.Lock()
			results[u] = *preview
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// Warm fetches previews for the URLs in a message so later renders hit the cache.
func (s *LinkPreviewService) Warm(ctx context.Context, text string) error {
	if !s.cfg.Enabled || len(ExtractURLs(text)) == 0 {
		return nil
	}
	_, err := s.Batch(ctx, []string{text})
	return err
}

// Purge drops every cached preview.
func (s *LinkPreviewService) Purge(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, s.cfg.CachePrefix+"*"); err != nil {
		return appErrors.Internal(err, "failed to purge preview cache")
	}
	return nil
}

func (s *LinkPreviewService) fetch(ctx context.Context, target *url.URL) (dto.LinkPreview, error) {
	start := time.Now()
	switch {
	case isZoomHost(target.Hostname()):
		preview := zoomPreview(target)
		s.metrics.ObservePreviewFetch(dto.ProviderZoom, "ok", time.Since(start))
		return preview, nil
	case isYouTubeHost(target.Hostname()):
		preview, err := s.youtubePreview(ctx, target.String())
		outcome := "ok"
		if err != nil {
			s.logger.Debug("youtube oembed failed", zap.String("url", target.String()), zap.Error(err))
			preview = dto.LinkPreview{URL: target.String(), Title: "YouTube", Provider: dto.ProviderBasic}
			outcome = "degraded"
		}
		s.metrics.ObservePreviewFetch(dto.ProviderYouTube, outcome, time.Since(start))
		return preview, nil
	default:
		preview, err := s.genericPreview(ctx, target.String())
		outcome := "ok"
		switch {
		case err != nil:
			outcome = "error"
		case preview.Blocked:
			outcome = "blocked"
		}
		s.metrics.ObservePreviewFetch(dto.ProviderLinkPreview, outcome, time.Since(start))
		return preview, err
	}
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (s *LinkPreviewService) youtubePreview(ctx context.Context, target string) (dto.LinkPreview, error) {
	endpoint, err := url.Parse(s.cfg.OEmbedURL)
	if err != nil {
		return dto.LinkPreview{}, err
	}
	q := endpoint.Query()
	q.Set("url", target)
	q.Set("format", "json")
	endpoint.RawQuery = q.Encode()

	var body oembedResponse
	status, err := s.getJSON(ctx, endpoint.String(), &body)
	if err != nil {
		return dto.LinkPreview{}, err
	}
	if status != http.StatusOK {
		return dto.LinkPreview{}, fmt.Errorf("oembed status %d", status)
	}
	return dto.LinkPreview{
		URL:         target,
		Title:       body.Title,
		Description: body.AuthorName,
		Image:       body.ThumbnailURL,
		Provider:    dto.ProviderYouTube,
	}, nil
}

type linkPreviewAPIResponse struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	URL         string `json:"url"`
}

func (s *LinkPreviewService) genericPreview(ctx context.Context, target string) (dto.LinkPreview, error) {
	if s.cfg.APIKey == "" {
		return dto.LinkPreview{}, appErrors.Clone(appErrors.ErrNotConfigured, "LINKPREVIEW_KEY is not set")
	}
	endpoint, err := url.Parse(s.cfg.APIBaseURL)
	if err != nil {
		return dto.LinkPreview{}, appErrors.Internal(err, "invalid link preview endpoint")
	}
	q := endpoint.Query()
	q.Set("key", s.cfg.APIKey)
	q.Set("q", target)
	endpoint.RawQuery = q.Encode()

	var body linkPreviewAPIResponse
	status, err := s.getJSON(ctx, endpoint.String(), &body)
	if _, blocked := blockedStatuses[status]; blocked {
		return dto.LinkPreview{URL: target, Provider: dto.ProviderLinkPreview, Blocked: true}, nil
	}
	if err != nil {
		return dto.LinkPreview{}, appErrors.Upstream(err, "link preview provider unreachable")
	}
	if status != http.StatusOK {
		return dto.LinkPreview{}, appErrors.Upstream(fmt.Errorf("status %d", status), fmt.Sprintf("upstream %d", status))
	}
	return dto.LinkPreview{
		URL:         target,
		Title:       body.Title,
		Description: body.Description,
		Image:       body.Image,
		Provider:    dto.ProviderLinkPreview,
	}, nil
}

// getJSON performs a GET and decodes a 200 body into dest. Non-200 statuses are returned without decoding.
func (s *LinkPreviewService) getJSON(ctx context.Context, endpoint string, dest interface{}) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxPreviewBody))
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPreviewBody)).Decode(dest); err != nil {
		return resp.StatusCode, fmt.Errorf("decode preview: %w", err)
	}
	return resp.StatusCode, nil
}

func (s *LinkPreviewService) cacheKey(target string) string {
	sum := sha256.Sum256([]byte(target))
	return s.cfg.CachePrefix + hex.EncodeToString(sum[:])
}

func parsePreviewURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "url is required")
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "url must be an absolute http(s) URL")
	}
	return u, nil
}

func isZoomHost(host string) bool {
	host = strings.ToLower(host)
	return host == "zoom.us" || strings.HasSuffix(host, ".zoom.us") || host == "zoom.com" || strings.HasSuffix(host, ".zoom.com")
}

func isYouTubeHost(host string) bool {
	switch strings.ToLower(host) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com", "youtu.be", "www.youtu.be":
		return true
	}
	return false
}

func zoomPreview(u *url.URL) dto.LinkPreview {
	preview := dto.LinkPreview{URL: u.String(), Title: "Zoom Meeting", Provider: dto.ProviderZoom}
	if m := zoomMeetingPath.FindStringSubmatch(u.Path); m != nil {
		preview.MeetingID = m[1]
		preview.Description = "Meeting ID: " + formatMeetingID(m[1])
	}
	if pwd := u.Query().Get("pwd"); pwd != "" {
		preview.Passcode = pwd
	}
	return preview
}

// formatMeetingID groups digits the way Zoom displays them, e.g. 123 4567 8901.
func formatMeetingID(id string) string {
	switch len(id) {
	case 9:
		return id[:3] + " " + id[3:6] + " " + id[6:]
	case 10:
		return id[:3] + " " + id[3:6] + " " + id[6:]
	case 11:
		return id[:3] + " " + id[3:7] + " " + id[7:]
	}
	return id
}

func placeholderPreview(u string) *dto.LinkPreview {
	title := u
	if parsed, err := url.Parse(u); err == nil && parsed.Host != "" {
		title = parsed.Host
	}
	return &dto.LinkPreview{URL: u, Title: title, Provider: dto.ProviderPlaceholder}
}

// JobTypeWarmPreview identifies queued preview warm-up jobs. Their payload is the message text.
const JobTypeWarmPreview = "linkpreview.warm"

// WarmJobHandler adapts Warm to the background queue.
func (s *LinkPreviewService) WarmJobHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		text, ok := job.Payload.(string)
		if !ok || job.Type != JobTypeWarmPreview {
			s.logger.Warn("unexpected preview job", zap.String("job_id", job.ID), zap.String("type", job.Type))
			return nil
		}
		return s.Warm(ctx, text)
	}
}
