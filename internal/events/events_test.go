package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/submission_review/internal/domain/submission"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func TestMultiFansOutAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("down")}
	m := Multi{ok, nil, failing}

	err := m.Publish(context.Background(), Event{Type: SubmissionCreated, SubmissionID: "s1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)
}

type fakeWriter struct {
	msgs []kafka.Message
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisherKeysBySubmission(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, topic: "submissions"}

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := p.Publish(context.Background(), Event{
		Type:         SubmissionReviewed,
		SubmissionID: "s1",
		Status:       submission.StatusApproved,
		Action:       submission.ActionApprove,
		OccurredAt:   at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "s1", string(msg.Key))
	assert.Equal(t, at, msg.Time)
	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, SubmissionReviewed, decoded.Type)
	assert.Equal(t, submission.ActionApprove, decoded.Action)
}

func TestNewKafkaPublisherValidates(t *testing.T) {
	_, err := NewKafkaPublisher(KafkaConfig{Topic: "x"})
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}})
	assert.Error(t, err)
	_, err = NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "x", RequiredAcks: "most"})
	assert.Error(t, err)
}

func TestKafkaPublisherRequiredAcks(t *testing.T) {
	for raw, want := range map[string]kafka.RequiredAcks{
		"":     kafka.RequireOne,
		"one":  kafka.RequireOne,
		"none": kafka.RequireNone,
		"all":  kafka.RequireAll,
	} {
		p, err := NewKafkaPublisher(KafkaConfig{Brokers: []string{"localhost:9092"}, Topic: "x", RequiredAcks: raw})
		require.NoError(t, err, raw)
		w, ok := p.w.(*kafka.Writer)
		require.True(t, ok)
		assert.Equal(t, want, w.RequiredAcks, raw)
	}
}

func TestHubBroadcastsToClients(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, hub.Publish(context.Background(), Event{Type: SubmissionCreated, SubmissionID: "s1"}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var got Event
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "s1", got.SubmissionID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubRejectsDisallowedOrigin(t *testing.T) {
	check := originChecker([]string{"https://admin.example.com"})
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
	req.Header.Set("Origin", "https://admin.example.com")
	assert.True(t, check(req))
}
