package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/msg"
	"cloud-hospital/queue/queue-tracker/pkg/tracking"

	"github.com/imroc/req/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, handler http.HandlerFunc) *HttpFetcher {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return ProvideHttpFetcher(req.C().SetBaseURL(server.URL), infra.NewNopLoggerFactory())
}

func TestFetchSnapshot(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/queue/trackqueue", r.URL.Path)
		assert.Equal(t, "Q-42", r.URL.Query().Get("queue_id"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"queue_id":"Q-42","patient_firstname":"Somchai","patient_lastname":"Jaidee","queueNumber":"A0099","remaining_queue":5,"dept_name":"Cardiology","room_number":"-","created_at":"ignored"}}`))
	})

	snapshot, err := fetcher.FetchSnapshot(context.Background(), "Q-42")
	require.NoError(t, err)
	assert.Equal(t, &msg.TicketSnapshot{
		QueueId:          "Q-42",
		PatientFirstname: "Somchai",
		PatientLastname:  "Jaidee",
		QueueNumber:      "A0099",
		RemainingQueue:   5,
		DeptName:         "Cardiology",
		RoomNumber:       msg.UnassignedRoom,
	}, snapshot)
}

func TestFetchSnapshotErrorBody(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"Queue not found","code":"E404"}`))
	})

	_, err := fetcher.FetchSnapshot(context.Background(), "Q-404")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Queue not found", apiErr.UserMessage())
}

func TestFetchSnapshotErrorWithoutMessage(t *testing.T) {
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`internal error`))
	})

	_, err := fetcher.FetchSnapshot(context.Background(), "Q-42")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Failed to fetch queue details.", apiErr.Message)
}

func TestFetchSnapshotMalformed(t *testing.T) {
	for _, body := range []string{`{"message":"ok"}`, `not json`, `{"data":null}`} {
		fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(body))
		})

		_, err := fetcher.FetchSnapshot(context.Background(), "Q-42")
		assert.ErrorIs(t, err, tracking.ErrMalformedSnapshot, body)
	}
}

func TestFetchSnapshotContextDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	fetcher := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := fetcher.FetchSnapshot(ctx, "Q-42")

	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, trackQueuePath, netErr.Url)
}
