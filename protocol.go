package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// PacketType is the integer discriminant carried by every wire message.
type PacketType int

const (
	// Connection lifecycle
	PacketJoin       PacketType = 1 // client -> server
	PacketDisconnect PacketType = 2 // server -> client

	// Movement
	PacketPlayerMove  PacketType = 10 // client -> server
	PacketPlayerState PacketType = 11 // server -> client

	// Full state (sent to a player on join)
	PacketGameState PacketType = 20 // server -> client

	// Water balloons
	PacketPlaceBalloon   PacketType = 30 // client -> server, echoed to all
	PacketBalloonExplode PacketType = 31 // server -> client
	PacketUseNeedle      PacketType = 32 // client -> server

	// Match flow
	PacketGameStartCountdown PacketType = 40 // server -> client
	PacketGameStart          PacketType = 41 // server -> client
	PacketGameTimer          PacketType = 42 // server -> client
	PacketGameOver           PacketType = 43 // server -> client

	// Player status
	PacketPlayerTrapped PacketType = 50 // server -> client
	PacketPlayerRescued PacketType = 51 // server -> client
	PacketPlayerDie     PacketType = 52 // server -> client

	// Blocks and items
	PacketBlockDestroy PacketType = 60 // server -> client
	PacketItemSpawn    PacketType = 61 // server -> client
	PacketItemPickup   PacketType = 62 // server -> client
)

// Cell is one tile coordinate on the grid. Field names are uppercase on the
// wire; deployed clients depend on that.
type Cell struct {
	X int `json:"X"`
	Y int `json:"Y"`
}

// Add returns c offset by d scaled by dist.
func (c Cell) Add(d Cell, dist int) Cell {
	return Cell{X: c.X + d.X*dist, Y: c.Y + d.Y*dist}
}

// Header is embedded at the top of every packet.
type Header struct {
	Type      PacketType `json:"Type"`
	Timestamp int64      `json:"Timestamp"` // ms since epoch
}

// header returns a stamped Header for an outbound packet.
func header(t PacketType) Header {
	return Header{Type: t, Timestamp: time.Now().UnixMilli()}
}

// --- Client -> Server ---

// JoinPacket announces a nickname after the TCP connect is accepted.
type JoinPacket struct {
	Header
	Nickname string `json:"Nickname"`
}

// PlayerMovePacket reports the client's new grid cell.
type PlayerMovePacket struct {
	Header
	PlayerId      uint64 `json:"PlayerId"`
	TargetGridPos Cell   `json:"TargetGridPos"`
}

// PlaceBalloonPacket requests a balloon at a cell. The server echoes the
// packet to every player when the placement is accepted.
type PlaceBalloonPacket struct {
	Header
	PlayerId uint64 `json:"PlayerId"`
	GridPos  Cell   `json:"GridPos"`
	Range    int    `json:"Range"`
}

// UseNeedlePacket asks to break out of a trap bubble.
type UseNeedlePacket struct {
	Header
	PlayerId uint64 `json:"PlayerId"`
}

// --- Server -> Client ---

// DisconnectPacket tells remaining players that someone left.
type DisconnectPacket struct {
	Header
	PlayerId uint64 `json:"PlayerId"`
}

// PlayerStatePacket carries one refreshed player snapshot.
type PlayerStatePacket struct {
	Header
	Player PlayerSnapshot `json:"Player"`
}

// GameStatePacket is the join-time sync: the requester's own id plus every
// current player snapshot.
type GameStatePacket struct {
	Header
	MyPlayerId uint64           `json:"MyPlayerId"`
	Players    []PlayerSnapshot `json:"Players"`
}

// BalloonExplodePacket carries a detonation's full affected-cell set,
// center first.
type BalloonExplodePacket struct {
	Header
	GridPos       Cell   `json:"GridPos"`
	AffectedCells []Cell `json:"AffectedCells"`
}

// GameStartCountdownPacket ticks the pre-match countdown.
type GameStartCountdownPacket struct {
	Header
	Remaining int `json:"Remaining"`
}

// GameStartPacket marks the transition from countdown to active play.
type GameStartPacket struct {
	Header
}

// GameTimerPacket syncs the remaining match time once per second.
type GameTimerPacket struct {
	Header
	RemainingTime float64 `json:"RemainingTime"`
}

// GameOverPacket ends the match. WinnerPlayerId 0 means a draw.
type GameOverPacket struct {
	Header
	WinnerPlayerId uint64 `json:"WinnerPlayerId"`
	Reason         string `json:"Reason"` // "killed", "timeout" or "draw"
}

// PlayerTrappedPacket announces a player caught in a blast.
type PlayerTrappedPacket struct {
	Header
	PlayerId uint64 `json:"PlayerId"`
}

// PlayerRescuedPacket announces a trapped player breaking free. RescuerId
// equals PlayerId for a self-rescue with a needle.
type PlayerRescuedPacket struct {
	Header
	PlayerId  uint64 `json:"PlayerId"`
	RescuerId uint64 `json:"RescuerId"`
}

// PlayerDiePacket announces a death.
type PlayerDiePacket struct {
	Header
	PlayerId uint64 `json:"PlayerId"`
}

// BlockDestroyPacket announces a destructible block being cleared.
type BlockDestroyPacket struct {
	Header
	GridPos Cell `json:"GridPos"`
}

// ItemSpawnPacket announces an item appearing on a cleared cell.
type ItemSpawnPacket struct {
	Header
	ItemId   string   `json:"ItemId"`
	ItemType ItemType `json:"ItemType"`
	GridPos  Cell     `json:"GridPos"`
}

// ItemPickupPacket announces an item being consumed by a player.
type ItemPickupPacket struct {
	Header
	ItemId   string   `json:"ItemId"`
	PlayerId uint64   `json:"PlayerId"`
	ItemType ItemType `json:"ItemType"`
}

// PeekType extracts the discriminant from a raw frame without decoding the
// type-specific body.
func PeekType(data []byte) (PacketType, error) {
	var h Header
	if err := json.Unmarshal(data, &h); err != nil {
		return 0, fmt.Errorf("peek packet type: %w", err)
	}
	if h.Type == 0 {
		return 0, fmt.Errorf("packet missing Type field")
	}
	return h.Type, nil
}

func decodeInto[T any](data []byte) (any, error) {
	p := new(T)
	if err := json.Unmarshal(data, p); err != nil {
		return nil, err
	}
	return p, nil
}

// decodeTable maps each client -> server discriminant to its decoder. A
// discriminant outside this table is a protocol error and aborts the
// offending connection.
var decodeTable = map[PacketType]func([]byte) (any, error){
	PacketJoin:         decodeInto[JoinPacket],
	PacketPlayerMove:   decodeInto[PlayerMovePacket],
	PacketPlaceBalloon: decodeInto[PlaceBalloonPacket],
	PacketUseNeedle:    decodeInto[UseNeedlePacket],
}

// DecodePacket turns one reassembled frame into a typed inbound packet.
func DecodePacket(data []byte) (any, error) {
	t, err := PeekType(data)
	if err != nil {
		return nil, err
	}
	dec, ok := decodeTable[t]
	if !ok {
		return nil, fmt.Errorf("unknown packet type %d", t)
	}
	pkt, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("decode packet type %d: %w", t, err)
	}
	return pkt, nil
}
