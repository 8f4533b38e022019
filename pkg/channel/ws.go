package channel

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cloud-hospital/queue/queue-tracker/pkg/config"
	"cloud-hospital/queue/queue-tracker/pkg/infra"
	"cloud-hospital/queue/queue-tracker/pkg/tracking"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024
)

// WsDialer opens push-update channels on the queue service websocket.
type WsDialer struct {
	url          string
	pingInterval time.Duration
	dialer       *websocket.Dialer
	logger       *zap.SugaredLogger
}

func ProvideWsDialer(cfg *config.Config, loggerFactory *infra.LoggerFactory) *WsDialer {
	return NewWsDialer(*cfg.ChannelUrl, cfg.PingInterval(), loggerFactory.Create("Channel").Sugar())
}

func NewWsDialer(url string, pingInterval time.Duration, logger *zap.SugaredLogger) *WsDialer {
	return &WsDialer{
		url:          url,
		pingInterval: pingInterval,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: websocket.DefaultDialer.HandshakeTimeout,
		},
		logger: logger,
	}
}

func (d *WsDialer) Dial(ctx context.Context) (tracking.Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, d.url, nil)
	if err != nil {
		if resp != nil {
			d.logger.Errorf("dial url[%v] failed with status[%v] %v", d.url, resp.Status, err)
		} else {
			d.logger.Errorf("dial url[%v] failed %v", d.url, err)
		}
		return nil, err
	}
	d.logger.Debugf("connected url[%v]", d.url)

	return newWsConn(conn, d.pingInterval, d.logger), nil
}

type wsConn struct {
	conn         *websocket.Conn
	pingInterval time.Duration
	logger       *zap.SugaredLogger

	// Serializes WriteJSON. Pings go through WriteControl, which may run
	// concurrently with everything else.
	writeLock sync.Mutex

	closed    chan struct{}
	closeOnce sync.Once
}

func newWsConn(conn *websocket.Conn, pingInterval time.Duration, logger *zap.SugaredLogger) *wsConn {
	c := &wsConn{
		conn:         conn,
		pingInterval: pingInterval,
		logger:       logger,
		closed:       make(chan struct{}),
	}

	conn.SetReadLimit(maxMessageSize)
	if pingInterval > 0 {
		// Heartbeat. Reads fail if the peer does not answer pings for too long.
		pongWait := pingInterval * 5 / 2
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		go c.pingPump()
	}
	return c
}

func (c *wsConn) WriteJSON(v interface{}) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, message, err := c.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, fmt.Errorf("%w: %v", tracking.ErrChannelClosed, err)
		}
		return nil, err
	}
	return message, nil
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = c.conn.Close()
	})
	return err
}

func (c *wsConn) pingPump() {
	pingTicker := time.NewTicker(c.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case <-pingTicker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.Warnf("ping err %v", err)
				return
			}
		}
	}
}
