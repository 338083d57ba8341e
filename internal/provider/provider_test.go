package provider_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docarena/docarena/internal/extract"
	"github.com/docarena/docarena/internal/provider"
	"github.com/docarena/docarena/internal/source"
)

func TestRegistryKnownProvider(t *testing.T) {
	t.Parallel()

	ext, err := provider.New(provider.Options{Provider: "mock"})
	require.NoError(t, err)
	assert.Equal(t, "mock", ext.Name())
}

func TestRegistryUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := provider.New(provider.Options{Provider: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestMockAnswersPerFile(t *testing.T) {
	t.Parallel()

	mock := provider.NewMock(map[string]map[string]any{
		"a.pdf": {"DOC_TYPE": "NFe"},
	})

	records, err := mock.Call(context.Background(), extract.Request{
		Files: []source.File{{Path: "/in/a.pdf", Name: "a.pdf"}, {Path: "/in/b.pdf", Name: "b.pdf"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "NFe", records[0].Fields["DOC_TYPE"])
	assert.Empty(t, records[1].Fields)
	assert.Positive(t, records[0].Usage.TotalTokens)
}

func TestWithRetryRecoversFromTransientFailure(t *testing.T) {
	t.Parallel()

	mock := provider.NewMock(nil)
	mock.FailFirst = 2

	wrapped := provider.WithRetry(mock, 3, time.Millisecond, nil)

	records, err := wrapped.Call(context.Background(), extract.Request{
		Files: []source.File{{Path: "/in/a.pdf", Name: "a.pdf"}},
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, 3, mock.Calls())
}

func TestWithRetryGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	mock := provider.NewMock(nil)
	mock.FailFirst = 10

	wrapped := provider.WithRetry(mock, 2, time.Millisecond, nil)

	_, err := wrapped.Call(context.Background(), extract.Request{})
	require.Error(t, err)
	assert.Equal(t, 2, mock.Calls())
}

func TestWithRetryHonorsContextCancellation(t *testing.T) {
	t.Parallel()

	mock := provider.NewMock(nil)
	mock.FailFirst = 10

	wrapped := provider.WithRetry(mock, 5, 10*time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := wrapped.Call(ctx, extract.Request{})
	require.Error(t, err)
	assert.LessOrEqual(t, mock.Calls(), 1)
}

func TestHTTPExtractorRoundTrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc.pdf")
	require.NoError(t, os.WriteFile(docPath, []byte("content"), 0o600))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "g0", req["group_id"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"results": []map[string]any{{
				"identifier": docPath,
				"fields":     map[string]any{"DOC_TYPE": "NFe"},
				"usage":      map[string]int{"prompt_tokens": 10, "candidates_tokens": 5, "total_tokens": 18},
			}},
		})
	}))
	defer server.Close()

	ext, err := provider.NewHTTP("test", provider.Options{Endpoint: server.URL, APIKey: "secret", Model: "m1"})
	require.NoError(t, err)

	records, err := ext.Call(context.Background(), extract.Request{
		GroupID: "g0",
		Files:   []source.File{{Path: docPath, Name: "doc.pdf"}},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "NFe", records[0].Fields["DOC_TYPE"])
	assert.Equal(t, 3, records[0].Usage.Other())
}

func TestHTTPExtractorNonOKStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ext, err := provider.NewHTTP("test", provider.Options{Endpoint: server.URL})
	require.NoError(t, err)

	_, err = ext.Call(context.Background(), extract.Request{})
	assert.Error(t, err)
}

func TestHTTPExtractorRequiresEndpoint(t *testing.T) {
	t.Parallel()

	_, err := provider.NewHTTP("test", provider.Options{})
	assert.Error(t, err)
}
