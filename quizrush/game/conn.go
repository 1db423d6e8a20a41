package game

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/rousseya/quizrush-server/quizrush/game/message"
)

// socketClosed is the synthetic message Conn delivers to its receive
// channel once its read loop has stopped, so a connection handler blocked
// on ReadMessageBlock always has something to wake it up with.
type socketClosed struct{}

// Conn wraps a websocket connection so callers read and write ClientMsg /
// ServerMsg values instead of raw frames.
type Conn struct {
	wsConn *websocket.Conn

	recvChan   chan interface{}
	recvBuffer bytes.Buffer

	stopped int32

	writeLock sync.Mutex
}

// NewConn wraps an already-upgraded websocket connection.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{
		wsConn:   conn,
		recvChan: make(chan interface{}, 4),
	}
}

// StartReadLoop blocks, decoding incoming text frames as ClientMsg values
// and delivering them to the receive channel, until the connection is
// stopped or the socket errors out. Run this on its own goroutine.
func (c *Conn) StartReadLoop() {
	if atomic.LoadInt32(&c.stopped) != 0 {
		c.recvChan <- socketClosed{}
		return
	}

	logger.Debug("started ws reading loop for %s", c.wsConn.RemoteAddr())

	for {
		messageType, r, err := c.wsConn.NextReader()

		if atomic.LoadInt32(&c.stopped) != 0 {
			break
		}

		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Error("unexpected error while reading from websocket: %s", err)
			}
			break
		}

		if messageType != websocket.TextMessage {
			continue
		}

		c.recvBuffer.Reset()
		if _, err := c.recvBuffer.ReadFrom(r); err != nil {
			logger.Error("error while buffering websocket message: %s", err)
			continue
		}

		msg, err := message.Decode(c.recvBuffer.Bytes())
		if err != nil {
			logger.Error("error while decoding websocket message: %s", err)
			continue
		}
		c.recvChan <- msg
	}

	logger.Debug("stopped ws reading loop")
	c.recvChan <- socketClosed{}
}

// WriteMessage encodes msg as JSON and sends it over the websocket.
func (c *Conn) WriteMessage(msg message.ServerMsg) {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()

	data, err := message.Encode(msg)
	if err != nil {
		panic(fmt.Sprintf("websocket: attempted to send unencodeable message: %s", err))
	}

	if err := c.wsConn.WriteMessage(websocket.TextMessage, data); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			logger.Error("unexpected error while writing to websocket: %s", err)
		}
		c.stop()
	}
}

// Close closes the underlying websocket and stops the read loop.
func (c *Conn) Close() {
	if err := c.wsConn.Close(); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			logger.Error("unexpected error while closing websocket: %s", err)
		}
	}
	c.stop()
}

// ReadMessageBlock waits for the next message from the client, or the
// socketClosed sentinel once the connection has gone away.
func (c *Conn) ReadMessageBlock() interface{} {
	return <-c.recvChan
}

// IsStopped reports whether this connection has been stopped by Close or by
// a failed write. A read loop that ends on a socket error does not set it.
func (c *Conn) IsStopped() bool {
	return atomic.LoadInt32(&c.stopped) != 0
}

func (c *Conn) stop() {
	atomic.StoreInt32(&c.stopped, 1)
}
