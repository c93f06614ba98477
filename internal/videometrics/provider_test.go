package videometrics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/submission_review/internal/httputil"
)

func TestVideoIDFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
		ok   bool
	}{
		{"https://www.tiktok.com/@alice/video/7234567890123456789", "7234567890123456789", true},
		{"https://www.tiktok.com/@alice/video/123?is_from_webapp=1", "123", true},
		{"https://www.instagram.com/reel/Cx1/", "", false},
		{"https://www.tiktok.com/@alice", "", false},
	}
	for _, tt := range tests {
		got, ok := VideoIDFromURL(tt.url)
		assert.Equal(t, tt.ok, ok, tt.url)
		assert.Equal(t, tt.want, got, tt.url)
	}
}

func TestHTTPProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/video/query/" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token" {
			t.Errorf("expected auth header, got %q", got)
		}
		var body videoQuery
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(body.Filters.VideoIDs) != 1 {
			t.Errorf("unexpected filters %+v", body.Filters)
		}
		if body.Filters.VideoIDs[0] == "404" {
			w.Write([]byte(`{"data":{"videos":[]},"error":{"code":"ok","message":""}}`))
			return
		}
		w.Write([]byte(`{"data":{"videos":[{"id":"1","view_count":1200,"like_count":80,"share_count":7,"comment_count":12}]},"error":{"code":"ok"}}`))
	}))
	defer server.Close()

	client := httputil.NewClient(httputil.ClientConfig{BaseURL: server.URL, Token: "token", Timeout: time.Second})
	provider, err := NewHTTPProvider(client, nil)
	require.NoError(t, err)

	m, err := provider.FetchVideoMetrics(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, int64(1200), m.Views)
	assert.Equal(t, int64(80), m.Likes)
	assert.Equal(t, int64(7), m.Shares)
	assert.Equal(t, int64(12), m.Comments)

	_, err = provider.FetchVideoMetrics(context.Background(), "404")
	assert.True(t, errors.Is(err, ErrVideoNotFound), "got %v", err)
}

func TestParseVideoQueryErrors(t *testing.T) {
	_, err := parseVideoQuery([]byte(`{"error":{"code":"access_token_invalid","message":"expired"}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access_token_invalid")

	_, err = parseVideoQuery([]byte(`not json`))
	assert.Error(t, err)
}
