package tracking

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/msg"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fetchResult struct {
	snapshot *msg.TicketSnapshot
	err      error
}

type fakeFetcher struct {
	calls   atomic.Int32
	results chan fetchResult

	// When set, the fetch only returns once a result is sent, even after
	// its context is done.
	ignoreContext bool
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{results: make(chan fetchResult, 1)}
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, queueId msg.QueueId) (*msg.TicketSnapshot, error) {
	f.calls.Add(1)
	if f.ignoreContext {
		r := <-f.results
		return r.snapshot, r.err
	}

	select {
	case r := <-f.results:
		return r.snapshot, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *fakeFetcher) resolve(snapshot *msg.TicketSnapshot) {
	f.results <- fetchResult{snapshot: snapshot}
}

func (f *fakeFetcher) fail(err error) {
	f.results <- fetchResult{err: err}
}

var errConnReset = errors.New("connection reset by peer")

type fakeConn struct {
	written chan []byte
	inbound chan []byte
	failed  chan error

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		written: make(chan []byte, 16),
		inbound: make(chan []byte, 16),
		failed:  make(chan error, 1),
		closed:  make(chan struct{}),
	}
}

func (c *fakeConn) WriteJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.written <- b
	return nil
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case m, ok := <-c.inbound:
		if !ok {
			return nil, ErrChannelClosed
		}
		return m, nil
	case err := <-c.failed:
		return nil, err
	case <-c.closed:
		return nil, errors.New("use of closed network connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(raw string) {
	c.inbound <- []byte(raw)
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

type fakeDialer struct {
	dials atomic.Int32
	conns chan *fakeConn

	// Returned by the first len(errs) dials.
	mu   sync.Mutex
	errs []error
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 8)}
}

func (d *fakeDialer) Dial(ctx context.Context) (Conn, error) {
	d.dials.Add(1)

	d.mu.Lock()
	if len(d.errs) > 0 {
		err := d.errs[0]
		d.errs = d.errs[1:]
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()

	conn := newFakeConn()
	d.conns <- conn
	return conn, nil
}

func (d *fakeDialer) nextConn(t *testing.T) *fakeConn {
	t.Helper()
	select {
	case conn := <-d.conns:
		return conn
	case <-time.After(time.Second):
		t.Fatal("channel never dialed")
		return nil
	}
}

func newTestSession(queueId msg.QueueId, fetcher SnapshotFetcher, dialer Dialer, options Options) *Session {
	return NewSession(queueId, fetcher, dialer, options, zap.NewNop().Sugar())
}

func waitForView(t *testing.T, s *Session, cond func(View) bool) View {
	t.Helper()
	require.Eventually(t, func() bool {
		return cond(s.View())
	}, time.Second, 5*time.Millisecond)
	return s.View()
}

func readSubscribe(t *testing.T, conn *fakeConn) msg.TrackQueueRequest {
	t.Helper()
	select {
	case raw := <-conn.written:
		var req msg.TrackQueueRequest
		require.NoError(t, json.Unmarshal(raw, &req))
		return req
	case <-time.After(time.Second):
		t.Fatal("subscribe message never sent")
		return msg.TrackQueueRequest{}
	}
}

func ticketQ42() *msg.TicketSnapshot {
	return &msg.TicketSnapshot{
		QueueId:          "Q-42",
		PatientFirstname: "Somchai",
		PatientLastname:  "Jaidee",
		QueueNumber:      "A0099",
		RemainingQueue:   5,
		DeptName:         "Cardiology",
		RoomNumber:       msg.UnassignedRoom,
	}
}
