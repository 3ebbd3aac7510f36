package notifier

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)

// WebsocketObserver writes change events as text frames. Send is only called
// from the hub's writer goroutine; pings and close use WriteControl, which
// gorilla allows concurrently with other writes.
type WebsocketObserver struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func NewWebsocketObserver(conn *websocket.Conn, writeTimeout time.Duration) *WebsocketObserver {
	return &WebsocketObserver{conn: conn, writeTimeout: writeTimeout}
}

func (o *WebsocketObserver) Send(payload []byte) error {
	if err := o.conn.SetWriteDeadline(time.Now().Add(o.writeTimeout)); err != nil {
		return err
	}
	return o.conn.WriteMessage(websocket.TextMessage, payload)
}

func (o *WebsocketObserver) Ping() error {
	return o.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(o.writeTimeout))
}

func (o *WebsocketObserver) Close() error {
	o.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = o.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(o.writeTimeout))
		o.closeErr = o.conn.Close()
	})
	return o.closeErr
}

// ReadUntilClosed drains client frames, extending the read deadline on every
// pong, and returns when the client goes away or stops answering pings.
func (o *WebsocketObserver) ReadUntilClosed() error {
	o.conn.SetReadLimit(512)
	if err := o.conn.SetReadDeadline(time.Now().Add(PongWait)); err != nil {
		return err
	}
	o.conn.SetPongHandler(func(string) error {
		return o.conn.SetReadDeadline(time.Now().Add(PongWait))
	})

	for {
		if _, _, err := o.conn.ReadMessage(); err != nil {
			return err
		}
	}
}
