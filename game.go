package main

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseLobby     Phase = iota // accepting joins
	PhaseCountdown              // lobby full, counting down to start
	PhaseActive                 // match running
	PhaseEnded                  // result broadcast, waiting for disconnects
)

// Broadcaster delivers one outbound packet to one player without blocking.
type Broadcaster interface {
	SendPacket(pkt any)
}

// Admission errors. The listener closes the socket without a reply.
var (
	ErrLobbyFull   = errors.New("lobby full")
	ErrMatchActive = errors.New("match already active")
)

// Game owns all mutable match state: the player registry, the balloon and
// item registries and the session phase. Every connection handler, the match
// clock and the fuse queue mutate it under one mutex, so each operation is
// individually atomic; there is no global ordering across connections.
type Game struct {
	mu  sync.Mutex
	cfg Config
	log *zap.SugaredLogger

	gameMap   *GameMap
	metrics   *Metrics
	analytics *Analytics

	players  map[uint64]*Player
	sinks    map[uint64]Broadcaster
	balloons map[Cell]*Balloon
	items    map[string]*Item

	phase        Phase
	timeLeft     float64
	startedAt    time.Time
	nextPlayerID uint64
	nextItemID   int

	fuses *fuseQueue
	rng   *rand.Rand
}

// NewGame creates the match-state aggregate. The map must already be loaded.
func NewGame(cfg Config, gm *GameMap, log *zap.SugaredLogger, metrics *Metrics, analytics *Analytics) *Game {
	g := &Game{
		cfg:          cfg,
		log:          log,
		gameMap:      gm,
		metrics:      metrics,
		analytics:    analytics,
		players:      make(map[uint64]*Player),
		sinks:        make(map[uint64]Broadcaster),
		balloons:     make(map[Cell]*Balloon),
		items:        make(map[string]*Item),
		phase:        PhaseLobby,
		timeLeft:     cfg.MatchSeconds,
		nextPlayerID: 1,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	g.fuses = newFuseQueue(g)
	return g
}

// Run starts the background goroutines (match clock, fuse queue). They exit
// when stop is closed.
func (g *Game) Run(stop <-chan struct{}) {
	go g.runClock(stop)
	go g.fuses.run(stop)
}

// Join admits a new connection, assigns the next player id and the rotation
// spawn cell, and registers the outbound sink. Fails while the lobby is full
// or a match is underway.
func (g *Game) Join(sink Broadcaster) (*Player, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.phase != PhaseLobby {
		return nil, ErrMatchActive
	}
	if len(g.players) >= g.cfg.MaxPlayers {
		return nil, ErrLobbyFull
	}

	id := g.nextPlayerID
	g.nextPlayerID++
	p := NewPlayer(id)
	g.players[id] = p
	g.sinks[id] = sink

	g.log.Infof("player %d joined, spawn (%d,%d), %d/%d in lobby",
		id, p.Pos.X, p.Pos.Y, len(g.players), g.cfg.MaxPlayers)

	if len(g.players) == g.cfg.MaxPlayers {
		g.phase = PhaseCountdown
		go g.runCountdown()
	}
	return p, nil
}

// HandleJoin processes the nickname handshake: the requester gets the full
// game state, everyone else gets the newcomer's snapshot.
func (g *Game) HandleJoin(playerID uint64, nickname string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok {
		return
	}
	p.Nickname = nickname

	snaps := make([]PlayerSnapshot, 0, len(g.players))
	for _, other := range g.players {
		snaps = append(snaps, other.Snapshot())
	}
	g.sendTo(playerID, &GameStatePacket{
		Header:     header(PacketGameState),
		MyPlayerId: playerID,
		Players:    snaps,
	})
	g.broadcastExcept(playerID, &PlayerStatePacket{
		Header: header(PacketPlayerState),
		Player: p.Snapshot(),
	})
	g.log.Infof("player %d is %q", playerID, nickname)
}

// Leave removes a disconnected player. Their waiting balloons stay
// registered and still detonate on schedule. The last player leaving resets
// the whole session.
func (g *Game) Leave(playerID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.players[playerID]; !ok {
		return
	}
	delete(g.players, playerID)
	delete(g.sinks, playerID)
	g.log.Infof("player %d left, %d remaining", playerID, len(g.players))

	g.broadcastExcept(playerID, &DisconnectPacket{
		Header:   header(PacketDisconnect),
		PlayerId: playerID,
	})

	if len(g.players) == 0 {
		g.reset()
	}
}

// reset restores the lobby state: map reloaded, registries cleared, id
// assignment restarted. Caller holds g.mu.
func (g *Game) reset() {
	if err := g.gameMap.Load(); err != nil {
		g.log.Errorf("map reload failed: %v", err)
	}
	g.players = make(map[uint64]*Player)
	g.sinks = make(map[uint64]Broadcaster)
	g.balloons = make(map[Cell]*Balloon)
	g.items = make(map[string]*Item)
	g.phase = PhaseLobby
	g.timeLeft = g.cfg.MatchSeconds
	g.nextPlayerID = 1
	g.nextItemID = 0
	g.fuses.clear()
	g.log.Info("lobby empty, session reset")
}

// HandleMove commits a client-reported cell and evaluates item pickup.
// Dead and trapped players cannot move. The reported cell is trusted as-is;
// there is no server-side adjacency or obstacle check (known trust
// boundary, clients resynchronize from the authoritative broadcast).
func (g *Game) HandleMove(playerID uint64, target Cell) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok || !p.Alive() || p.Trapped() {
		return
	}
	p.Pos = target
	g.checkPickup(p)

	g.broadcast(&PlayerStatePacket{
		Header: header(PacketPlayerState),
		Player: p.Snapshot(),
	})
}

// HandleUseNeedle spends one needle charge to break a trapped player free.
// Silently ignored unless the player is trapped, alive and holds a charge.
func (g *Game) HandleUseNeedle(playerID uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok || !p.Alive() || !p.Trapped() {
		return
	}
	if p.Stats.NeedleCount <= 0 {
		return
	}
	p.Stats.NeedleCount--
	p.Rescue()

	g.broadcast(&PlayerRescuedPacket{
		Header:    header(PacketPlayerRescued),
		PlayerId:  playerID,
		RescuerId: playerID,
	})
	g.broadcast(&PlayerStatePacket{
		Header: header(PacketPlayerState),
		Player: p.Snapshot(),
	})
	g.log.Infof("player %d used a needle, %d left", playerID, p.Stats.NeedleCount)
}

// killPlayer transitions a player to Dead, announces it and re-evaluates the
// end-of-match condition. Caller holds g.mu.
func (g *Game) killPlayer(victimID uint64) {
	p, ok := g.players[victimID]
	if !ok || !p.Kill() {
		return
	}
	g.broadcast(&PlayerDiePacket{
		Header:   header(PacketPlayerDie),
		PlayerId: victimID,
	})
	g.analytics.Track(EvtPlayerDeath, victimID, "")
	g.log.Infof("player %d died", victimID)
	g.checkMatchEnd()
}

// alivePlayers returns the players not yet dead. Caller holds g.mu.
func (g *Game) alivePlayers() []*Player {
	alive := make([]*Player, 0, len(g.players))
	for _, p := range g.players {
		if p.Alive() {
			alive = append(alive, p)
		}
	}
	return alive
}

// checkMatchEnd ends the match when zero or one player remains alive.
// Caller holds g.mu.
func (g *Game) checkMatchEnd() {
	if g.phase != PhaseActive {
		return
	}
	alive := g.alivePlayers()
	switch len(alive) {
	case 0:
		g.endMatch(0, "draw")
	case 1:
		g.endMatch(alive[0].ID, "killed")
	}
}

// endMatch broadcasts the result and freezes the session until every player
// disconnects. Caller holds g.mu.
func (g *Game) endMatch(winnerID uint64, reason string) {
	g.phase = PhaseEnded
	g.broadcast(&GameOverPacket{
		Header:         header(PacketGameOver),
		WinnerPlayerId: winnerID,
		Reason:         reason,
	})

	duration := time.Since(g.startedAt).Seconds()
	g.analytics.Track(EvtMatchEnd, winnerID, reason)
	g.analytics.RecordMatch(winnerID, reason, duration, g.matchPlayerRows())
	g.log.Infof("match over: winner=%d reason=%s duration=%.0fs", winnerID, reason, duration)
}

// matchPlayerRows snapshots per-player results for the history store.
// Caller holds g.mu.
func (g *Game) matchPlayerRows() []MatchPlayerRow {
	rows := make([]MatchPlayerRow, 0, len(g.players))
	for _, p := range g.players {
		rows = append(rows, MatchPlayerRow{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Survived: p.Alive(),
		})
	}
	return rows
}

// sendTo delivers a packet to one player. Caller holds g.mu.
func (g *Game) sendTo(playerID uint64, pkt any) {
	if sink, ok := g.sinks[playerID]; ok {
		sink.SendPacket(pkt)
	}
}

// broadcast fans a packet out to every connected player. Delivery is
// independent per recipient; a slow or broken sink drops or fails on its
// own without holding up the rest. Caller holds g.mu.
func (g *Game) broadcast(pkt any) {
	g.metrics.Broadcasts.Add(1)
	for _, sink := range g.sinks {
		sink.SendPacket(pkt)
	}
}

// broadcastExcept fans out to everyone but one player. Caller holds g.mu.
func (g *Game) broadcastExcept(exclude uint64, pkt any) {
	g.metrics.Broadcasts.Add(1)
	for id, sink := range g.sinks {
		if id == exclude {
			continue
		}
		sink.SendPacket(pkt)
	}
}

// PlayerCount returns the number of connected players.
func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.players)
}

// CurrentPhase returns the session phase.
func (g *Game) CurrentPhase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}
