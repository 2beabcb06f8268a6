package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/dto"
	"github.com/noah-isme/manabi-api/pkg/config"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

type memoryPreviewCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	purged  []string
}

func newMemoryPreviewCache() *memoryPreviewCache {
	return &memoryPreviewCache{entries: map[string][]byte{}}
}

func (c *memoryPreviewCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	raw, ok := c.entries[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryPreviewCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memoryPreviewCache) Invalidate(ctx context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purged = append(c.purged, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
	return nil
}

func newPreviewService(t *testing.T, handler http.HandlerFunc, cache previewCache) (*LinkPreviewService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.LinkPreviewConfig{
		Enabled:     true,
		APIKey:      "test-key",
		APIBaseURL:  srv.URL + "/preview",
		OEmbedURL:   srv.URL + "/oembed",
		Timeout:     time.Second,
		CachePrefix: "linkpreview:",
	}
	return NewLinkPreviewService(cfg, srv.Client(), cache, nil, nil), srv
}

func TestExtractURLs(t *testing.T) {
	text := "see https://example.com/a, and (http://foo.dev/x) or https://example.com/a again"
	assert.Equal(t, []string{"https://example.com/a", "http://foo.dev/x"}, ExtractURLs(text))
	assert.Empty(t, ExtractURLs("no links here"))
}

func TestLinkPreviewZoomParsedLocally(t *testing.T) {
	var calls int32
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, nil)

	preview, err := svc.Preview(context.Background(), "https://us02web.zoom.us/j/12345678901?pwd=abc123")
	require.NoError(t, err)
	assert.Equal(t, dto.ProviderZoom, preview.Provider)
	assert.Equal(t, "12345678901", preview.MeetingID)
	assert.Equal(t, "abc123", preview.Passcode)
	assert.Equal(t, "Meeting ID: 123 4567 8901", preview.Description)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestLinkPreviewYouTubeOEmbed(t *testing.T) {
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oembed", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "https://www.youtube.com/watch?v=abc", r.URL.Query().Get("url"))
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "Lesson 1", "author_name": "Sensei", "thumbnail_url": "https://img/1.jpg"})
	}, nil)

	preview, err := svc.Preview(context.Background(), "https://www.youtube.com/watch?v=abc")
	require.NoError(t, err)
	assert.Equal(t, dto.ProviderYouTube, preview.Provider)
	assert.Equal(t, "Lesson 1", preview.Title)
	assert.Equal(t, "https://img/1.jpg", preview.Image)
}

func TestLinkPreviewYouTubeDegradesToBasic(t *testing.T) {
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}, nil)

	preview, err := svc.Preview(context.Background(), "https://youtu.be/abc")
	require.NoError(t, err)
	assert.Equal(t, dto.ProviderBasic, preview.Provider)
	assert.Equal(t, "YouTube", preview.Title)
}

func TestLinkPreviewGenericProvider(t *testing.T) {
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/preview", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "https://example.com/post", r.URL.Query().Get("q"))
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "Post", "description": "Body", "image": "https://example.com/i.png"})
	}, nil)

	preview, err := svc.Preview(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, dto.ProviderLinkPreview, preview.Provider)
	assert.Equal(t, "Post", preview.Title)
	assert.False(t, preview.Blocked)
}

func TestLinkPreviewBlockedStatuses(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusLocked, http.StatusTooManyRequests, http.StatusUnavailableForLegalReasons} {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
			}, nil)

			preview, err := svc.Preview(context.Background(), "https://example.com/private")
			require.NoError(t, err)
			assert.True(t, preview.Blocked)
		})
	}
}

func TestLinkPreviewUpstreamFailure(t *testing.T) {
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, nil)

	_, err := svc.Preview(context.Background(), "https://example.com/broken")
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUpstreamUnavailable))
}

func TestLinkPreviewMissingKey(t *testing.T) {
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	svc.cfg.APIKey = ""

	_, err := svc.Preview(context.Background(), "https://example.com/post")
	assert.True(t, errors.Is(err, appErrors.ErrNotConfigured))
}

func TestLinkPreviewRejectsInvalidURL(t *testing.T) {
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {}, nil)

	_, err := svc.Preview(context.Background(), "")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	_, err = svc.Preview(context.Background(), "ftp://example.com")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestLinkPreviewUsesCache(t *testing.T) {
	var calls int32
	cache := newMemoryPreviewCache()
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "Cached"})
	}, cache)

	for i := 0; i < 3; i++ {
		preview, err := svc.Preview(context.Background(), "https://example.com/cached")
		require.NoError(t, err)
		assert.Equal(t, "Cached", preview.Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	require.NoError(t, svc.Purge(context.Background()))
	assert.Equal(t, []string{"linkpreview:*"}, cache.purged)
	assert.Empty(t, cache.entries)
}

func TestLinkPreviewBatchDedupesAndBoundsConcurrency(t *testing.T) {
	var inFlight, peak, calls int32
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		current := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		if strings.Contains(r.URL.Query().Get("q"), "broken") {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "ok"})
	}, nil)

	texts := []string{
		"https://a.example.com https://b.example.com",
		"https://c.example.com and https://a.example.com",
		"https://d.example.com https://e.example.com https://broken.example.com",
	}
	results, err := svc.Batch(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, results, 6)
	assert.Equal(t, int32(6), atomic.LoadInt32(&calls))
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
	assert.Equal(t, dto.ProviderPlaceholder, results["https://broken.example.com"].Provider)
	assert.Equal(t, "broken.example.com", results["https://broken.example.com"].Title)
	assert.Equal(t, "ok", results["https://a.example.com"].Title)
}

func TestLinkPreviewBatchRunsThreeFetchesAtOnce(t *testing.T) {
	var inFlight, peak int32
	release := make(chan struct{})
	var once sync.Once
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {
		current := atomic.AddInt32(&inFlight, 1)
		defer atomic.AddInt32(&inFlight, -1)
		for {
			old := atomic.LoadInt32(&peak)
			if current <= old || atomic.CompareAndSwapInt32(&peak, old, current) {
				break
			}
		}
		if current >= 3 {
			once.Do(func() { close(release) })
		}
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "ok"})
	}, nil)

	texts := []string{"https://a.example.com https://b.example.com https://c.example.com https://d.example.com https://e.example.com https://f.example.com"}
	results, err := svc.Batch(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, results, 6)
	assert.Equal(t, 3, PreviewWorkers)
	assert.Equal(t, int32(PreviewWorkers), atomic.LoadInt32(&peak))
}

func TestLinkPreviewDisabled(t *testing.T) {
	svc, _ := newPreviewService(t, func(w http.ResponseWriter, r *http.Request) {}, nil)
	svc.cfg.Enabled = false

	_, err := svc.Preview(context.Background(), "https://example.com")
	assert.True(t, errors.Is(err, appErrors.ErrNotConfigured))
	assert.NoError(t, svc.Warm(context.Background(), "https://example.com"))
}
