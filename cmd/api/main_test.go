package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/manabi-api/internal/repository"
	"github.com/noah-isme/manabi-api/internal/service"
	"github.com/noah-isme/manabi-api/pkg/config"
)

func TestNewCacheRepositoryFallsBackToMemory(t *testing.T) {
	repo := newCacheRepository(nil, zap.NewNop())
	_, ok := repo.(*repository.MemoryCacheRepository)
	assert.True(t, ok)
}

func TestPreviewsAreCachedWithoutRedis(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_ = json.NewEncoder(w).Encode(map[string]string{"title": "Lesson"})
	}))
	t.Cleanup(srv.Close)

	cacheSvc := service.NewCacheService(newCacheRepository(nil, zap.NewNop()), nil, 0, nil, true)
	previews := service.NewLinkPreviewService(config.LinkPreviewConfig{
		Enabled:     true,
		APIKey:      "test-key",
		APIBaseURL:  srv.URL + "/preview",
		Timeout:     time.Second,
		CacheTTL:    time.Minute,
		CachePrefix: "linkpreview:",
	}, srv.Client(), cacheSvc, nil, nil)

	for i := 0; i < 3; i++ {
		results, err := previews.Batch(context.Background(), []string{"see https://example.com/lesson"})
		require.NoError(t, err)
		assert.Equal(t, "Lesson", results["https://example.com/lesson"].Title)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
