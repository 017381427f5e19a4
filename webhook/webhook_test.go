package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliver_Signed(t *testing.T) {
	var gotSig string
	var got Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotSig = r.Header.Get(SignatureHeader)
		assert.Equal(t, Sign("s3cret", body), gotSig)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := &Notifier{Secret: "s3cret"}
	err := n.Deliver(context.Background(), srv.URL, &Event{
		Type:      EventBatchCompleted,
		JobID:     "job-1",
		Timestamp: 1700000000,
		Data:      map[string]int{"total": 2},
	})
	require.NoError(t, err)
	assert.Contains(t, gotSig, "sha256=")
	assert.Equal(t, "job-1", got.JobID)
	assert.Equal(t, EventBatchCompleted, got.Type)
}

func TestDeliver_Unsigned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get(SignatureHeader))
	}))
	defer srv.Close()

	require.NoError(t, (&Notifier{}).Deliver(context.Background(), srv.URL, &Event{Type: EventBatchCompleted}))
}

func TestDeliver_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := (&Notifier{}).Deliver(context.Background(), srv.URL, &Event{Type: EventBatchCompleted})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestDeliverAsync_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	n := &Notifier{Delays: []time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond}}
	select {
	case err := <-n.DeliverAsync(srv.URL, &Event{Type: EventBatchCompleted}):
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("delivery did not finish")
	}
	assert.Equal(t, int32(3), calls.Load())
}

func TestDeliverAsync_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := &Notifier{Delays: []time.Duration{0, time.Millisecond}}
	err := <-n.DeliverAsync(srv.URL, &Event{Type: EventBatchCompleted})
	assert.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
