package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/msg"

	"github.com/emirpasic/gods/queues/linkedlistqueue"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Options struct {
	// 0 means no timeout.
	SnapshotTimeout time.Duration
	ConnectTimeout  time.Duration

	Reconnect ReconnectPolicy

	// Optional.
	Metrics *infra.Metrics
}

type eventKind int

const (
	snapshotResolved eventKind = iota
	snapshotFailed
	channelConnecting
	channelOpened
	channelMessage
	channelFailed
	channelClosed
)

// Every asynchronous operation posts its outcome tagged with the
// generation it was started with. Outcomes from an older generation, or
// arriving after Close, are dropped.
type event struct {
	generation uint64
	kind       eventKind
	snapshot   *msg.TicketSnapshot
	raw        []byte
	err        *Error
}

// Session tracks one ticket: an authoritative snapshot read, merged with
// partial updates pushed on a channel subscribed to the same ticket.
type Session struct {
	id      string
	queueId msg.QueueId
	fetcher SnapshotFetcher
	dialer  Dialer
	options Options
	logger  *zap.SugaredLogger

	// Outcomes of the fetch and channel goroutines, consumed in arrival
	// order by the event loop.
	events chan event
	done   chan struct{}

	// Guards everything below. Only the event loop, Start and Close
	// mutate it.
	mu            sync.Mutex
	generation    uint64
	started       bool
	closed        bool
	cancel        context.CancelFunc
	state         State
	channelStatus ChannelStatus
	snapshot      *msg.TicketSnapshot
	lastErr       *Error

	// Partial updates received before the snapshot resolved, replayed in
	// receipt order once it does.
	pending *linkedlistqueue.Queue

	// Latest view only. Closed after Close.
	updates chan View
}

func NewSession(queueId msg.QueueId, fetcher SnapshotFetcher, dialer Dialer, options Options, logger *zap.SugaredLogger) *Session {
	id := uuid.NewString()
	queueId = queueId.Normalize()
	return &Session{
		id:      id,
		queueId: queueId,
		fetcher: fetcher,
		dialer:  dialer,
		options: options,
		logger:  logger.With("session", id, "queueId", queueId),
		events:  make(chan event, 64),
		done:    make(chan struct{}),
		state:   Idle,
		pending: linkedlistqueue.New(),
		updates: make(chan View, 1),
	}
}

func (s *Session) Id() string {
	return s.id
}

func (s *Session) QueueId() msg.QueueId {
	return s.queueId
}

// Start fetches the snapshot and opens the channel concurrently. Without
// a queue id the session stays idle. Calling it again is a no-op.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queueId.IsEmpty() {
		s.logger.Debugf("no queue id, session stays idle")
		return
	}
	if s.started || s.closed {
		return
	}

	s.started = true
	s.generation++
	generation := s.generation

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.state = FetchingSnapshot
	s.channelStatus = ChannelConnecting
	if s.options.Metrics != nil {
		s.options.Metrics.ActiveSessions.Inc()
	}
	s.publishLocked()
	s.logger.Infof("session started")

	go s.run()
	go s.fetchSnapshot(ctx, generation)
	go s.runChannel(ctx, generation)
}

// Close tears the session down from any state. In-flight fetches and
// channel deliveries finishing afterwards no longer change anything.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	s.closed = true
	s.generation++
	wasStarted := s.started
	s.state = Closed
	if wasStarted {
		s.channelStatus = ChannelClosed
	}
	s.publishLocked()
	close(s.updates)
	close(s.done)
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if wasStarted && s.options.Metrics != nil {
		s.options.Metrics.ActiveSessions.Dec()
	}
	s.logger.Infof("session closed")
}

// OnPushUpdate feeds one raw channel message to the session, as if it was
// read from its own channel. Ignored unless the session is running.
func (s *Session) OnPushUpdate(raw []byte) {
	s.mu.Lock()
	running := s.started && !s.closed
	generation := s.generation
	s.mu.Unlock()

	if !running {
		return
	}
	s.post(event{generation: generation, kind: channelMessage, raw: raw})
}

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Updates delivers the session's view after every change. A slow reader
// only sees the latest one. The channel is closed after Close.
func (s *Session) Updates() <-chan View {
	return s.updates
}

func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) run() {
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		case <-s.done:
			return
		}
	}
}

func (s *Session) post(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) handle(ev event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || ev.generation != s.generation {
		s.logger.Debugf("dropped stale event kind[%v] generation[%v]", ev.kind, ev.generation)
		return
	}

	switch ev.kind {
	case snapshotResolved:
		s.onSnapshot(ev.snapshot)

	case snapshotFailed:
		if s.state != FetchingSnapshot {
			return
		}
		s.recordError(ev.err)
		s.state = Live
		s.replayPending()

	case channelConnecting:
		s.channelStatus = ChannelConnecting

	case channelOpened:
		s.channelStatus = ChannelOpen

	case channelMessage:
		s.onPushUpdate(ev.raw)

	case channelFailed:
		s.recordError(ev.err)

	case channelClosed:
		s.channelStatus = ChannelClosed
	}

	s.publishLocked()
}

func (s *Session) onSnapshot(snapshot *msg.TicketSnapshot) {
	if s.state != FetchingSnapshot {
		return
	}

	s.snapshot = snapshot.Clone()
	s.snapshot.QueueId = s.queueId
	s.state = Live
	s.logger.Infof("snapshot resolved ticket[%+v] pending[%v]", s.snapshot, s.pending.Size())
	s.replayPending()
}

func (s *Session) onPushUpdate(raw []byte) {
	update, err := msg.ParsePartialUpdate(raw)
	if err != nil {
		s.recordError(newError(ChannelMessageParseFailed, "Error parsing live update.", err))
		return
	}

	if update.QueueId != s.queueId {
		s.logger.Debugf("ignored update for queueId[%v]", update.QueueId)
		if s.options.Metrics != nil {
			s.options.Metrics.SessionErrors.WithLabelValues(IdentifierMismatch.String()).Inc()
		}
		return
	}

	if s.state == FetchingSnapshot {
		s.pending.Enqueue(update)
		return
	}
	s.merge(update)
}

func (s *Session) replayPending() {
	for !s.pending.Empty() {
		value, _ := s.pending.Dequeue()
		s.merge(value.(*msg.PartialUpdate))
	}
}

// Without a snapshot, the update seeds one. Absent fields stay zero.
func (s *Session) merge(update *msg.PartialUpdate) {
	if s.snapshot == nil {
		s.snapshot = &msg.TicketSnapshot{QueueId: s.queueId}
	}
	update.ApplyTo(s.snapshot)
	s.logger.Debugf("merged update ticket[%+v]", s.snapshot)

	if s.options.Metrics != nil {
		s.options.Metrics.UpdatesApplied.Inc()
	}
}

func (s *Session) recordError(err *Error) {
	s.lastErr = err
	s.logger.Warnf("recorded error %v", err)
	if s.options.Metrics != nil {
		s.options.Metrics.SessionErrors.WithLabelValues(err.Kind.String()).Inc()
	}
}

func (s *Session) viewLocked() View {
	return View{
		QueueId:       s.queueId,
		State:         s.state,
		ChannelStatus: s.channelStatus,
		Snapshot:      s.snapshot.Clone(),
		LastError:     s.lastErr,
	}
}

// Callers hold mu, so at most one sender runs and the drain below leaves
// room for the send.
func (s *Session) publishLocked() {
	view := s.viewLocked()
	select {
	case s.updates <- view:
	default:
		select {
		case <-s.updates:
		default:
		}
		s.updates <- view
	}
}

func (s *Session) fetchSnapshot(ctx context.Context, generation uint64) {
	fetchCtx := ctx
	if timeout := s.options.SnapshotTimeout; timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	snapshot, err := s.fetcher.FetchSnapshot(fetchCtx, s.queueId)
	if ctx.Err() != nil {
		return
	}

	if err == nil && snapshot == nil {
		err = ErrMalformedSnapshot
	}
	if err != nil {
		s.post(event{generation: generation, kind: snapshotFailed, err: classifySnapshotError(err)})
		return
	}

	s.post(event{generation: generation, kind: snapshotResolved, snapshot: snapshot})
}

func (s *Session) runChannel(ctx context.Context, generation uint64) {
	attempt := 0
	for {
		conn, err := s.dial(ctx)
		if ctx.Err() != nil {
			if conn != nil {
				conn.Close()
			}
			return
		}

		if err != nil {
			s.post(event{generation: generation, kind: channelFailed, err: classifyChannelError(err)})
		} else {
			delivered := s.serve(ctx, generation, conn)
			if ctx.Err() != nil {
				return
			}
			// A channel that drops before delivering anything counts as a
			// failed attempt, so accept-then-drop peers stay bounded.
			if delivered {
				attempt = 0
			}
		}

		if attempt >= s.options.Reconnect.MaxAttempts {
			s.logger.Infof("channel closed, not reopening after attempt[%v]", attempt)
			s.post(event{generation: generation, kind: channelClosed})
			return
		}

		delay := s.options.Reconnect.Delay(attempt)
		attempt++
		s.logger.Infof("reopening channel attempt[%v] in delay[%v]", attempt, delay)
		s.post(event{generation: generation, kind: channelConnecting})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Session) dial(ctx context.Context) (Conn, error) {
	dialCtx := ctx
	if timeout := s.options.ConnectTimeout; timeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.dialer.Dial(dialCtx)
}

// serve subscribes on an open channel and forwards its messages until it
// fails or the session is closed. It reports whether any message was
// forwarded.
func (s *Session) serve(ctx context.Context, generation uint64, conn Conn) bool {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer func() {
		stop()
		conn.Close()
	}()

	if !s.post(event{generation: generation, kind: channelOpened}) {
		return false
	}

	if err := conn.WriteJSON(msg.NewTrackQueueRequest(s.queueId)); err != nil {
		if ctx.Err() == nil {
			s.post(event{generation: generation, kind: channelFailed, err: classifyChannelError(err)})
		}
		return false
	}
	s.logger.Debugf("subscribed")

	delivered := false
	for {
		raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return delivered
			}
			if errors.Is(err, ErrChannelClosed) {
				s.logger.Infof("channel closed by peer")
			} else {
				s.post(event{generation: generation, kind: channelFailed, err: classifyChannelError(err)})
			}
			return delivered
		}

		if !s.post(event{generation: generation, kind: channelMessage, raw: raw}) {
			return delivered
		}
		delivered = true
	}
}
