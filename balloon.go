package main

import (
	"sort"
	"time"
)

// BalloonStatus tracks a device through its lifecycle.
type BalloonStatus int

const (
	BalloonWaiting BalloonStatus = iota
	BalloonExploding
	BalloonDestroyed
)

// Balloon is a placed device occupying one cell. The registry holds at most
// one balloon per cell; removing the entry is the detonation claim.
type Balloon struct {
	Owner     uint64
	Pos       Cell
	Range     int
	Status    BalloonStatus
	PlacedAt  time.Time
	ExplodeAt time.Time
}

// blastDirs is the deterministic propagation order: +X, -X, +Y, -Y.
var blastDirs = []Cell{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// HandlePlaceBalloon registers a device at the cell and schedules its
// detonation one fuse delay out. Fails silently if the cell already holds
// one; the insert-if-absent under the lock means exactly one of two racing
// placements wins.
func (g *Game) HandlePlaceBalloon(playerID uint64, pos Cell, blastRange int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.players[playerID]
	if !ok || !p.Alive() || p.Trapped() {
		return false
	}
	if _, occupied := g.balloons[pos]; occupied {
		return false
	}

	now := time.Now()
	b := &Balloon{
		Owner:     playerID,
		Pos:       pos,
		Range:     blastRange,
		Status:    BalloonWaiting,
		PlacedAt:  now,
		ExplodeAt: now.Add(g.cfg.FuseDelay),
	}
	g.balloons[pos] = b
	p.PlacedBalloons++

	g.broadcast(&PlaceBalloonPacket{
		Header:   header(PacketPlaceBalloon),
		PlayerId: playerID,
		GridPos:  pos,
		Range:    blastRange,
	})
	g.analytics.Track(EvtBalloonPlaced, playerID, "")
	g.log.Infof("player %d placed balloon at (%d,%d) range %d", playerID, pos.X, pos.Y, blastRange)

	g.fuses.schedule(pos, blastRange, b.ExplodeAt)
	return true
}

// Detonate claims and fires the device at the cell. The delete under the
// lock is the claim: if the entry is already gone the call is a no-op, so
// detonation logic never runs twice for one device.
func (g *Game) Detonate(pos Cell, blastRange int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	b, ok := g.balloons[pos]
	if !ok {
		return
	}
	delete(g.balloons, pos)
	b.Status = BalloonExploding

	if owner, ok := g.players[b.Owner]; ok && owner.PlacedBalloons > 0 {
		owner.PlacedBalloons--
	}

	affected := g.computeBlast(pos, blastRange)
	g.metrics.Detonations.Add(1)
	g.log.Infof("balloon at (%d,%d) exploded, %d cells affected", pos.X, pos.Y, len(affected))

	g.trapPlayersIn(affected)

	g.broadcast(&BalloonExplodePacket{
		Header:        header(PacketBalloonExplode),
		GridPos:       pos,
		AffectedCells: affected,
	})
	b.Status = BalloonDestroyed
}

// computeBlast walks each direction from the center up to blastRange cells.
// A wall stops the ray before being included; a block is included,
// destroyed, and stops the ray. Block destruction broadcasts and rolls an
// item drop inline, so those events precede the explosion packet. Caller
// holds g.mu.
func (g *Game) computeBlast(center Cell, blastRange int) []Cell {
	affected := []Cell{center}

	for _, dir := range blastDirs {
		for dist := 1; dist <= blastRange; dist++ {
			cell := center.Add(dir, dist)

			if g.gameMap.IsWall(cell) {
				break
			}
			if g.gameMap.IsBlock(cell) {
				affected = append(affected, cell)
				g.destroyBlock(cell)
				break
			}
			affected = append(affected, cell)
		}
	}
	return affected
}

// destroyBlock clears a block cell, announces it and rolls the item drop.
// The idempotent map removal guards against double drops. Caller holds g.mu.
func (g *Game) destroyBlock(pos Cell) {
	if !g.gameMap.DestroyBlock(pos) {
		return
	}
	g.metrics.BlocksDestroyed.Add(1)
	g.broadcast(&BlockDestroyPacket{
		Header:  header(PacketBlockDestroy),
		GridPos: pos,
	})
	g.onBlockDestroyed(pos)
}

// trapPlayersIn traps every alive, untrapped player standing in the
// affected set. Caller holds g.mu.
func (g *Game) trapPlayersIn(affected []Cell) {
	for _, p := range g.players {
		if !p.Alive() || p.Trapped() {
			continue
		}
		for _, cell := range affected {
			if cell != p.Pos {
				continue
			}
			p.Trap()
			g.broadcast(&PlayerTrappedPacket{
				Header:   header(PacketPlayerTrapped),
				PlayerId: p.ID,
			})
			g.broadcast(&PlayerStatePacket{
				Header: header(PacketPlayerState),
				Player: p.Snapshot(),
			})
			g.analytics.Track(EvtPlayerTrapped, p.ID, "")
			g.log.Infof("player %d trapped at (%d,%d)", p.ID, p.Pos.X, p.Pos.Y)
			break
		}
	}
}

// fuseQueue holds pending detonations in due-time order and fires each one
// exactly once from a single goroutine. Replaces one-shot timers per device:
// ordering is deterministic and entries could be cancelled if a future item
// needs it.
type fuseQueue struct {
	game    *Game
	pending []fuseEntry // sorted by due, earliest first
	wake    chan struct{}
}

type fuseEntry struct {
	pos        Cell
	blastRange int
	due        time.Time
}

func newFuseQueue(g *Game) *fuseQueue {
	return &fuseQueue{
		game: g,
		wake: make(chan struct{}, 1),
	}
}

// schedule enqueues a detonation. Caller holds the game lock; the queue
// itself is only touched under it.
func (q *fuseQueue) schedule(pos Cell, blastRange int, due time.Time) {
	q.pending = append(q.pending, fuseEntry{pos: pos, blastRange: blastRange, due: due})
	// Fixed fuse delay keeps appends nearly sorted; sort anyway so a
	// config change can't break the order.
	sort.SliceStable(q.pending, func(i, j int) bool {
		return q.pending[i].due.Before(q.pending[j].due)
	})
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// clear drops all pending entries on session reset. Caller holds the game
// lock.
func (q *fuseQueue) clear() {
	q.pending = nil
}

// next pops the head entry if it is due, or reports how long until it is.
func (q *fuseQueue) next() (fuseEntry, time.Duration, bool) {
	q.game.mu.Lock()
	defer q.game.mu.Unlock()

	if len(q.pending) == 0 {
		return fuseEntry{}, 0, false
	}
	head := q.pending[0]
	wait := time.Until(head.due)
	if wait > 0 {
		return fuseEntry{}, wait, false
	}
	q.pending = q.pending[1:]
	return head, 0, true
}

// run drains the queue until stop closes.
func (q *fuseQueue) run(stop <-chan struct{}) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		entry, wait, fire := q.next()
		if fire {
			q.game.Detonate(entry.pos, entry.blastRange)
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if wait > 0 {
			timer.Reset(wait)
		} else {
			timer.Reset(time.Hour)
		}

		select {
		case <-timer.C:
		case <-q.wake:
		case <-stop:
			return
		}
	}
}
