package main

// Status is a player's base state. Dead is terminal: a dead player receives
// no further position, status or timer mutations.
type Status int

const (
	StatusNormal Status = iota
	StatusTrapped
	StatusDead
	StatusRiding // on a shark; plays like Normal but renders differently
)

// MoveState mirrors the client-side animation state carried in snapshots.
type MoveState int

const (
	MoveIdle MoveState = iota
	MoveMoving
)

// Stats are a player's upgradable attributes.
type Stats struct {
	MoveCostTick  int  `json:"MoveCostTick"`  // ticks per cell, lower is faster
	BalloonCount  int  `json:"BalloonCount"`  // max simultaneous balloons
	BalloonRange  int  `json:"BalloonRange"`  // blast length per direction
	NeedleCount   int  `json:"NeedleCount"`   // self-rescue charges
	HasKick       bool `json:"HasKick"`
	HasGlove      bool `json:"HasGlove"`
	IsRidingShark bool `json:"IsRidingShark"`
}

// DefaultStats returns the stats every player spawns with.
func DefaultStats() Stats {
	return Stats{
		MoveCostTick: 6,
		BalloonCount: 1,
		BalloonRange: 1,
	}
}

// Stat caps. Pickups past a cap are consumed without effect.
const (
	maxBalloonCount = 15
	maxBalloonRange = 10
	minMoveCostTick = 1
)

// Player is one connected player's authoritative state. Owned by the Game
// aggregate; all mutation happens under the Game's lock.
type Player struct {
	ID       uint64
	Nickname string
	Pos      Cell
	Stats    Stats
	Status   Status

	// TrappedFor counts whole seconds since the trap started; advanced by
	// the match clock and zeroed on every transition out of Trapped.
	TrappedFor float64

	// PlacedBalloons counts this player's currently waiting balloons.
	PlacedBalloons int
}

// spawnCells is the fixed spawn rotation; players get slot (id-1) mod len.
var spawnCells = []Cell{
	{X: -6, Y: -5},
	{X: -4, Y: -5},
	{X: -6, Y: -3},
	{X: -4, Y: -3},
}

// spawnCell returns the rotation-assigned spawn cell for a player id.
func spawnCell(id uint64) Cell {
	return spawnCells[int(id-1)%len(spawnCells)]
}

// NewPlayer creates a player at its rotation spawn cell with default stats.
func NewPlayer(id uint64) *Player {
	return &Player{
		ID:     id,
		Pos:    spawnCell(id),
		Stats:  DefaultStats(),
		Status: StatusNormal,
	}
}

// Alive reports whether the player has not died.
func (p *Player) Alive() bool {
	return p.Status != StatusDead
}

// Trapped reports whether the player is currently caught in a bubble.
func (p *Player) Trapped() bool {
	return p.Status == StatusTrapped
}

// Trap moves an alive, untrapped player into Trapped and restarts the
// trapped timer. Returns false if the transition does not apply.
func (p *Player) Trap() bool {
	if !p.Alive() || p.Trapped() {
		return false
	}
	p.Status = StatusTrapped
	p.TrappedFor = 0
	return true
}

// Rescue moves a trapped player back to Normal. Returns false if the player
// is not trapped (or already dead).
func (p *Player) Rescue() bool {
	if !p.Alive() || !p.Trapped() {
		return false
	}
	p.Status = StatusNormal
	p.TrappedFor = 0
	return true
}

// Kill moves an alive player to Dead. Dead is terminal.
func (p *Player) Kill() bool {
	if !p.Alive() {
		return false
	}
	p.Status = StatusDead
	p.TrappedFor = 0
	return true
}

// PlayerSnapshot is the wire representation of a player.
type PlayerSnapshot struct {
	PlayerId           uint64    `json:"PlayerId"`
	Nickname           string    `json:"Nickname"`
	GridPos            Cell      `json:"GridPos"`
	MoveState          MoveState `json:"MoveState"`
	BaseState          Status    `json:"BaseState"`
	Stats              Stats     `json:"Stats"`
	PlacedBalloonCount int       `json:"PlacedBalloonCount"`
}

// Snapshot converts the player to its wire representation.
func (p *Player) Snapshot() PlayerSnapshot {
	return PlayerSnapshot{
		PlayerId:           p.ID,
		Nickname:           p.Nickname,
		GridPos:            p.Pos,
		MoveState:          MoveIdle,
		BaseState:          p.Status,
		Stats:              p.Stats,
		PlacedBalloonCount: p.PlacedBalloons,
	}
}
