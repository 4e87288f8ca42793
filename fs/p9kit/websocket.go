package p9kit

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"tractor.dev/counterfs"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	Subprotocols:    []string{"9p2000.L"},
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WebsocketHandler serves 9P over WebSocket, one binary message per 9P
// message.
func WebsocketHandler(fsys *counterfs.FS, opts Options) http.Handler {
	log := opts.logger().With("component", "p9kit")
	srv := NewServer(fsys, opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug("upgrade", "remote", r.RemoteAddr, "err", err)
			return
		}
		c := NewWebsocketConn(ws)
		log.Debug("connected", "remote", r.RemoteAddr)
		if err := srv.Handle(c, c); err != nil && err != io.EOF {
			log.Debug("disconnected", "remote", r.RemoteAddr, "err", err)
		}
	})
}

// DialWebsocket connects to a WebsocketHandler and returns a conn suitable
// for p9.NewClient.
func DialWebsocket(ctx context.Context, url string) (net.Conn, error) {
	d := *websocket.DefaultDialer
	d.Subprotocols = []string{"9p2000.L"}
	ws, _, err := d.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return NewWebsocketConn(ws), nil
}

type messageConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

// WebsocketConn turns a message oriented websocket into the byte stream
// 9P expects. Writes are split on 9P size prefixes so every complete 9P
// message goes out as exactly one binary frame.
type WebsocketConn struct {
	conn messageConn

	rmu     sync.Mutex
	pending []byte

	wmu         sync.Mutex
	writeBuffer []byte
}

var _ net.Conn = (*WebsocketConn)(nil)

func NewWebsocketConn(ws *websocket.Conn) *WebsocketConn {
	return &WebsocketConn{conn: ws}
}

func (c *WebsocketConn) Read(p []byte) (int, error) {
	c.rmu.Lock()
	defer c.rmu.Unlock()
	for len(c.pending) == 0 {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			}
			return 0, err
		}
		if typ != websocket.BinaryMessage {
			continue
		}
		c.pending = data
	}
	n := copy(p, c.pending)
	c.pending = c.pending[n:]
	return n, nil
}

func (c *WebsocketConn) Write(p []byte) (int, error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.writeBuffer = append(c.writeBuffer, p...)
	for len(c.writeBuffer) >= 4 {
		// 9P size fields are little endian and count themselves
		size := int(binary.LittleEndian.Uint32(c.writeBuffer))
		if size < 4 || len(c.writeBuffer) < size {
			break
		}
		if err := c.conn.WriteMessage(websocket.BinaryMessage, c.writeBuffer[:size]); err != nil {
			return 0, err
		}
		c.writeBuffer = c.writeBuffer[size:]
	}
	if len(c.writeBuffer) == 0 {
		c.writeBuffer = nil
	}
	return len(p), nil
}

func (c *WebsocketConn) Close() error         { return c.conn.Close() }
func (c *WebsocketConn) LocalAddr() net.Addr  { return c.conn.LocalAddr() }
func (c *WebsocketConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }

func (c *WebsocketConn) SetDeadline(t time.Time) error {
	if err := c.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return c.conn.SetWriteDeadline(t)
}

func (c *WebsocketConn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *WebsocketConn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
