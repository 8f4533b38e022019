package viewer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/msg"
	"cloud-hospital/queue/queue-tracker/pkg/tracking"

	"github.com/gorilla/websocket"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 8192

	// Send pings to peer with this period.
	pingPeriod = 5 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = pingPeriod * 5 / 2

	// Time allowed to persist one view.
	saveWait = 3 * time.Second
)

type SessionFactory interface {
	NewSession(queueId msg.QueueId) *tracking.Session
}

type StateSaver interface {
	Save(ctx context.Context, view tracking.View) error
}

// Viewer is a middleman between a browser websocket and the tracking
// session of the ticket it is looking at.
type Viewer struct {
	id   string
	ip   string
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	sendWsMessage chan *msg.WsMessage

	hub     *Hub
	factory SessionFactory
	saver   StateSaver
	logger  *zap.SugaredLogger

	// Guards session. Views are delivered under it, so a replaced session
	// can no longer reach the browser once Track returns.
	mu      sync.Mutex
	session *tracking.Session

	// Latest view per ticket waiting to be saved, drained by saveLoop.
	saveMu       sync.Mutex
	pendingSaves map[msg.QueueId]tracking.View
	saveReady    chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func NewViewer(conn *websocket.Conn, ip string, sendBufferSize int, hub *Hub, factory SessionFactory, saver StateSaver, logger *zap.SugaredLogger) *Viewer {
	id := random.String(16)
	return &Viewer{
		id:            id,
		ip:            ip,
		conn:          conn,
		sendWsMessage: make(chan *msg.WsMessage, sendBufferSize),
		hub:           hub,
		factory:       factory,
		saver:         saver,
		logger:        logger.With("viewer", id),
		pendingSaves:  make(map[msg.QueueId]tracking.View),
		saveReady:     make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

func (v *Viewer) Id() string {
	return v.id
}

// Run registers the viewer and starts tracking queueId right away. It does
// not block.
func (v *Viewer) Run(queueId msg.QueueId) {
	if !v.hub.add(v) {
		v.logger.Infof("hub stopped, refusing viewer ip[%v]", v.ip)
		v.conn.Close()
		return
	}

	go v.writePump()
	go v.readPump()
	go v.saveLoop()
	v.Track(queueId)
}

// Track replaces the tracked ticket. The previous session, if any, is
// closed first so none of its views reach the browser afterwards.
func (v *Viewer) Track(queueId msg.QueueId) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session != nil {
		v.session.Close()
		v.session = nil
	}
	if v.isDone() {
		return
	}

	if queueId.IsEmpty() {
		v.logger.Infof("no queueId to track")
		v.send(msg.NoDataCode, &msg.NoDataServerEvent{Reason: msg.ErrMissingQueueId.Error()})
		return
	}

	session := v.factory.NewSession(queueId)
	v.session = session
	v.logger.Infof("tracking queueId[%v] session[%v]", queueId, session.Id())

	go v.forward(session)
	session.Start()
}

func (v *Viewer) forward(session *tracking.Session) {
	for view := range session.Updates() {
		if view.State == tracking.Closed {
			continue
		}
		if !v.deliver(session, view) {
			return
		}
	}
}

func (v *Viewer) deliver(session *tracking.Session, view tracking.View) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.session != session {
		return false
	}
	if !v.send(msg.TrackStateCode, view.ToEvent()) {
		return false
	}
	if view.Snapshot != nil {
		v.queueSave(view)
	}
	return true
}

// Saves never hold up delivery. Views piling up for the same ticket
// collapse into the latest one.
func (v *Viewer) queueSave(view tracking.View) {
	if v.saver == nil {
		return
	}

	v.saveMu.Lock()
	v.pendingSaves[view.QueueId] = view
	v.saveMu.Unlock()

	select {
	case v.saveReady <- struct{}{}:
	default:
	}
}

func (v *Viewer) saveLoop() {
	for {
		select {
		case <-v.saveReady:
			v.saveMu.Lock()
			views := v.pendingSaves
			v.pendingSaves = make(map[msg.QueueId]tracking.View)
			v.saveMu.Unlock()

			for _, view := range views {
				v.save(view)
			}

		case <-v.done:
			return
		}
	}
}

func (v *Viewer) save(view tracking.View) {
	ctx, cancel := context.WithTimeout(context.Background(), saveWait)
	defer cancel()
	if err := v.saver.Save(ctx, view); err != nil {
		v.logger.Warnf("cannot save view of queueId[%v] %v", view.QueueId, err)
	}
}

func (v *Viewer) send(code msg.EventCode, event interface{}) bool {
	wsMessage, err := msg.NewWsMessage(code, event)
	if err != nil {
		v.logger.Errorf("cannot marshal event code[%v] %v", code, err)
		return false
	}

	select {
	case v.sendWsMessage <- wsMessage:
		return true
	case <-v.done:
		return false
	}
}

func (v *Viewer) isDone() bool {
	select {
	case <-v.done:
		return true
	default:
		return false
	}
}

// Close stops tracking, leaves the hub and drops the connection. Safe to
// call from any goroutine, more than once.
func (v *Viewer) Close() {
	v.closeOnce.Do(func() {
		close(v.done)

		v.mu.Lock()
		if v.session != nil {
			v.session.Close()
			v.session = nil
		}
		v.mu.Unlock()

		v.hub.remove(v)
		v.conn.Close()
		v.logger.Infof("viewer closed")
	})
}

func (v *Viewer) readPump() {
	defer v.Close()

	v.conn.SetReadLimit(maxMessageSize)

	// Heartbeat. Close connection if browser does not respond to ping for too long.
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		wsMessage := &msg.WsMessage{}
		if err := v.conn.ReadJSON(wsMessage); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				v.logger.Errorf("read err %v", err)
			} else {
				v.logger.Debugf("read closing %v", err)
			}
			return
		}

		switch wsMessage.EventCode {
		case msg.TrackCode:
			event := &msg.TrackClientEvent{}
			if err := json.Unmarshal(wsMessage.EventData, event); err != nil {
				v.logger.Warnf("invalid track event data[%s] %v", wsMessage.EventData, err)
				continue
			}
			v.Track(event.QueueId)

		default:
			v.logger.Warnf("unknown eventCode[%v]", wsMessage.EventCode)
		}
	}
}

func (v *Viewer) writePump() {
	pingTicker := time.NewTicker(pingPeriod)

	defer func() {
		pingTicker.Stop()
		v.Close()
	}()

	for {
		select {
		case wsMessage := <-v.sendWsMessage:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteJSON(wsMessage); err != nil {
				v.logger.Errorf("cannot write json to ws conn %v", err)
				return
			}

		case <-pingTicker.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				v.logger.Debugf("ping err %v", err)
				return
			}

		case <-v.done:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			v.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
