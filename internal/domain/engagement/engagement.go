// Package engagement models video performance metrics pulled from the
// hosting platform for approved submissions.
package engagement

import "time"

// Metrics are the counters reported by the platform for one video.
type Metrics struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
}

// Snapshot is the latest stored metrics for a submission.
type Snapshot struct {
	SubmissionID string    `json:"submissionId"`
	VideoID      string    `json:"videoId"`
	Metrics
	FetchedAt time.Time `json:"fetchedAt"`
}
