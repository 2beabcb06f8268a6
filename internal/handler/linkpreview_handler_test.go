package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/manabi-api/internal/dto"
	appErrors "github.com/noah-isme/manabi-api/pkg/errors"
)

type linkPreviewServiceMock struct {
	preview   *dto.LinkPreview
	batch     map[string]dto.LinkPreview
	err       error
	lastTexts []string
	purged    bool
}

func (m *linkPreviewServiceMock) Preview(ctx context.Context, rawURL string) (*dto.LinkPreview, error) {
	return m.preview, m.err
}

func (m *linkPreviewServiceMock) Batch(ctx context.Context, texts []string) (map[string]dto.LinkPreview, error) {
	m.lastTexts = texts
	return m.batch, m.err
}

func (m *linkPreviewServiceMock) Purge(ctx context.Context) error {
	m.purged = true
	return m.err
}

func TestLinkPreviewHandlerRequiresURL(t *testing.T) {
	h := NewLinkPreviewHandler(&linkPreviewServiceMock{})

	c, w := newTestContext(http.MethodGet, "/linkpreview", "", studentClaims)
	h.Preview(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkPreviewHandlerBlockedIsOK(t *testing.T) {
	h := NewLinkPreviewHandler(&linkPreviewServiceMock{preview: &dto.LinkPreview{URL: "https://x.test", Provider: dto.ProviderLinkPreview, Blocked: true}})

	c, w := newTestContext(http.MethodGet, "/linkpreview?url=https://x.test", "", studentClaims)
	h.Preview(c)

	require.Equal(t, http.StatusOK, w.Code)
	var preview dto.LinkPreview
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &preview))
	assert.True(t, preview.Blocked)
}

func TestLinkPreviewHandlerErrorStatuses(t *testing.T) {
	cases := map[int]error{
		http.StatusInternalServerError: appErrors.Clone(appErrors.ErrNotConfigured, "missing key"),
		http.StatusBadGateway:          appErrors.Clone(appErrors.ErrUpstreamUnavailable, "upstream 500"),
	}
	for status, err := range cases {
		h := NewLinkPreviewHandler(&linkPreviewServiceMock{err: err})
		c, w := newTestContext(http.MethodGet, "/linkpreview?url=https://x.test", "", studentClaims)
		h.Preview(c)
		assert.Equal(t, status, w.Code)
	}
}

func TestLinkPreviewHandlerBatch(t *testing.T) {
	svc := &linkPreviewServiceMock{batch: map[string]dto.LinkPreview{
		"https://a.test": {URL: "https://a.test", Provider: dto.ProviderPlaceholder},
	}}
	h := NewLinkPreviewHandler(svc)

	c, w := newTestContext(http.MethodPost, "/linkpreview/batch", `{"texts":["see https://a.test"]}`, studentClaims)
	h.Batch(c)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.EqualValues(t, 1, env.Meta["count"])
	var body dto.BatchPreviewResponse
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, dto.ProviderPlaceholder, body.Previews["https://a.test"].Provider)
	assert.Equal(t, []string{"see https://a.test"}, svc.lastTexts)

	c, w = newTestContext(http.MethodPost, "/linkpreview/batch", `{"texts":[]}`, studentClaims)
	h.Batch(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLinkPreviewHandlerPurge(t *testing.T) {
	svc := &linkPreviewServiceMock{}
	h := NewLinkPreviewHandler(svc)

	c, w := newTestContext(http.MethodDelete, "/linkpreview/cache", "", teacherClaims)
	h.Purge(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.purged)
}
