// Package videometrics pulls engagement counters for approved TikTok
// submissions and stores the latest snapshot per submission.
package videometrics

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/submission_review/internal/domain/engagement"
	"github.com/R3E-Network/submission_review/internal/httputil"
	"github.com/R3E-Network/submission_review/internal/logging"
)

// ErrVideoNotFound is returned when the platform does not know the video.
var ErrVideoNotFound = errors.New("videometrics: video not found")

// Provider fetches metrics for a platform video id.
type Provider interface {
	FetchVideoMetrics(ctx context.Context, videoID string) (engagement.Metrics, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, videoID string) (engagement.Metrics, error)

func (f ProviderFunc) FetchVideoMetrics(ctx context.Context, videoID string) (engagement.Metrics, error) {
	return f(ctx, videoID)
}

var videoIDPattern = regexp.MustCompile(`/video/(\d+)`)

// VideoIDFromURL extracts the numeric id from a TikTok video URL such as
// https://www.tiktok.com/@user/video/7234567890123456789.
func VideoIDFromURL(raw string) (string, bool) {
	m := videoIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

const (
	queryPath   = "/v2/video/query/?fields=id,view_count,like_count,share_count,comment_count"
	errorCodeOK = "ok"
)

// HTTPProvider queries the TikTok display API.
type HTTPProvider struct {
	client *httputil.Client
	log    *logging.Logger
}

// NewHTTPProvider wraps an authenticated client whose base URL points at the
// API host.
func NewHTTPProvider(client *httputil.Client, log *logging.Logger) (*HTTPProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if log == nil {
		log = logging.NewDefault("videometrics")
	}
	return &HTTPProvider{client: client, log: log}, nil
}

type videoQuery struct {
	Filters struct {
		VideoIDs []string `json:"video_ids"`
	} `json:"filters"`
}

func (p *HTTPProvider) FetchVideoMetrics(ctx context.Context, videoID string) (engagement.Metrics, error) {
	var req videoQuery
	req.Filters.VideoIDs = []string{videoID}

	body, err := p.client.PostJSON(ctx, queryPath, req)
	if err != nil {
		return engagement.Metrics{}, fmt.Errorf("query video %s: %w", videoID, err)
	}
	return parseVideoQuery(body)
}

func parseVideoQuery(body []byte) (engagement.Metrics, error) {
	if !gjson.ValidBytes(body) {
		return engagement.Metrics{}, fmt.Errorf("video query: malformed response")
	}
	res := gjson.ParseBytes(body)
	if code := res.Get("error.code"); code.Exists() && code.String() != errorCodeOK {
		return engagement.Metrics{}, fmt.Errorf("video query: %s: %s", code.String(), res.Get("error.message").String())
	}

	video := res.Get("data.videos.0")
	if !video.Exists() {
		return engagement.Metrics{}, ErrVideoNotFound
	}
	return engagement.Metrics{
		Views:    video.Get("view_count").Int(),
		Likes:    video.Get("like_count").Int(),
		Shares:   video.Get("share_count").Int(),
		Comments: video.Get("comment_count").Int(),
	}, nil
}
