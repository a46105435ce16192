package main

import (
	"encoding/json"
	"net"
	"sync"

	"go.uber.org/zap"
)

const (
	readBufSize = 4096
	sendBufSize = 256
)

// Client wraps one player's TCP connection: a read loop that reassembles and
// dispatches inbound packets, and a writer goroutine fed by a buffered
// channel so one slow socket never blocks a broadcast.
type Client struct {
	game *Game
	conn net.Conn
	log  *zap.SugaredLogger

	metrics  *Metrics
	playerID uint64

	send      chan []byte
	closeOnce sync.Once
}

// NewClient wraps an accepted connection. The caller admits it to the game
// and then starts the pumps.
func NewClient(game *Game, conn net.Conn, log *zap.SugaredLogger, metrics *Metrics) *Client {
	return &Client{
		game:    game,
		conn:    conn,
		log:     log,
		metrics: metrics,
		send:    make(chan []byte, sendBufSize),
	}
}

// SendPacket marshals and queues one outbound packet. If the buffer is full
// the packet is dropped: the client resynchronizes from later authoritative
// broadcasts, and a genuinely dead socket is reaped by its own read loop.
func (c *Client) SendPacket(pkt any) {
	data, err := json.Marshal(pkt)
	if err != nil {
		c.log.Errorf("marshal packet for player %d: %v", c.playerID, err)
		return
	}
	defer func() { recover() }() // send on closed channel during teardown
	select {
	case c.send <- data:
	default:
		c.metrics.PacketsDropped.Add(1)
		c.log.Warnf("player %d send buffer full, dropping packet", c.playerID)
	}
}

// writePump writes queued packets to the socket until the channel closes or
// a write fails. A failed recipient is not retried; the read loop notices
// the dead socket and runs disconnect cleanup.
func (c *Client) writePump() {
	for data := range c.send {
		if _, err := c.conn.Write(data); err != nil {
			c.log.Warnf("write to player %d failed: %v", c.playerID, err)
			return
		}
	}
}

// readPump reads the socket, reassembles frames by brace depth and
// dispatches them in arrival order. Any protocol error aborts the
// connection; the deferred cleanup removes the player and, if the lobby
// empties, resets the session.
func (c *Client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			c.log.Errorf("panic handling player %d: %v", c.playerID, r)
		}
		c.game.Leave(c.playerID)
		c.conn.Close()
		c.closeOnce.Do(func() { close(c.send) })
	}()

	splitter := &streamSplitter{}
	buf := make([]byte, readBufSize)

	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.log.Infof("player %d disconnected: %v", c.playerID, err)
			return
		}

		frames, err := splitter.Feed(buf[:n])
		if err != nil {
			c.log.Warnf("player %d sent malformed stream: %v", c.playerID, err)
			return
		}
		for _, frame := range frames {
			c.metrics.PacketsIn.Add(1)
			pkt, err := DecodePacket(frame)
			if err != nil {
				c.log.Warnf("player %d protocol error: %v", c.playerID, err)
				return
			}
			c.dispatch(pkt)
		}
	}
}

// dispatch routes one decoded packet. Action packets claiming another
// player's id are ignored (basic ownership check).
func (c *Client) dispatch(pkt any) {
	switch p := pkt.(type) {
	case *JoinPacket:
		c.game.HandleJoin(c.playerID, p.Nickname)
	case *PlayerMovePacket:
		if p.PlayerId != c.playerID {
			return
		}
		c.game.HandleMove(c.playerID, p.TargetGridPos)
	case *PlaceBalloonPacket:
		if p.PlayerId != c.playerID {
			return
		}
		c.game.HandlePlaceBalloon(c.playerID, p.GridPos, p.Range)
	case *UseNeedlePacket:
		if p.PlayerId != c.playerID {
			return
		}
		c.game.HandleUseNeedle(c.playerID)
	}
}
