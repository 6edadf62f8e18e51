package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

// Deadlines for the exam stream. Reads are generous since a taker may sit
// on a question for minutes; writes that stall this long mean a dead peer.
const (
	writeDeadline = 10 * time.Second
	readDeadline  = 5 * time.Minute
)

// WriteTyped sends one typed event frame to the client.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return err
	}
	return conn.WriteJSON(v)
}

// WriteError sends an error event without closing the connection; the
// handler decides whether the stream survives.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON decodes the next client frame, renewing the idle deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	if err := conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
		return err
	}
	return conn.ReadJSON(v)
}
