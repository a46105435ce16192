package main

import "time"

// runClock drives the per-second match clock until stop closes. Each tick
// advances the match timer, trapped timers and the capture sweep.
func (g *Game) runClock(stop <-chan struct{}) {
	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.tick()
		case <-stop:
			return
		}
	}
}

// runCountdown broadcasts the pre-match countdown at 1 Hz, then flips the
// session to Active. Started when the lobby fills; aborts quietly if the
// lobby empties (session reset) mid-count.
func (g *Game) runCountdown() {
	for remaining := g.cfg.CountdownSeconds; remaining > 0; remaining-- {
		g.mu.Lock()
		if g.phase != PhaseCountdown {
			g.mu.Unlock()
			return
		}
		g.broadcast(&GameStartCountdownPacket{
			Header:    header(PacketGameStartCountdown),
			Remaining: remaining,
		})
		g.mu.Unlock()
		time.Sleep(g.cfg.TickInterval)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.phase != PhaseCountdown {
		return
	}
	g.phase = PhaseActive
	g.timeLeft = g.cfg.MatchSeconds
	g.startedAt = time.Now()
	g.broadcast(&GameStartPacket{Header: header(PacketGameStart)})
	g.analytics.Track(EvtMatchStart, 0, "")
	g.log.Info("match started")
}

// tick advances one match-clock second.
func (g *Game) tick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.metrics.Ticks.Add(1)
	if g.phase != PhaseActive {
		return
	}

	g.timeLeft--
	g.broadcast(&GameTimerPacket{
		Header:        header(PacketGameTimer),
		RemainingTime: g.timeLeft,
	})

	g.advanceTrappedTimers()
	if g.phase != PhaseActive {
		return // a trap timeout just ended the match
	}

	g.captureSweep()
	if g.phase != PhaseActive {
		return
	}

	if g.timeLeft <= 0 {
		g.handleTimeout()
	}
}

// advanceTrappedTimers adds one second to every trapped player's timer and
// kills those whose trap ran out. Caller holds g.mu.
func (g *Game) advanceTrappedTimers() {
	for _, p := range g.players {
		if !p.Alive() || !p.Trapped() {
			continue
		}
		p.TrappedFor++
		if p.TrappedFor >= g.cfg.TrappedSeconds {
			g.log.Infof("player %d trap timed out", p.ID)
			g.killPlayer(p.ID)
		}
	}
}

// captureSweep kills any trapped player sharing a cell with an untrapped,
// alive opponent. Deliberately one-sided: the untrapped party survives.
// Caller holds g.mu.
func (g *Game) captureSweep() {
	for _, trapped := range g.players {
		if !trapped.Alive() || !trapped.Trapped() {
			continue
		}
		for _, other := range g.players {
			if other.ID == trapped.ID || !other.Alive() || other.Trapped() {
				continue
			}
			if other.Pos == trapped.Pos {
				g.log.Infof("player %d captured player %d", other.ID, trapped.ID)
				g.analytics.Track(EvtPlayerKill, other.ID, "")
				g.killPlayer(trapped.ID)
				break
			}
		}
	}
}

// handleTimeout ends the match when the timer reaches zero: a sole survivor
// wins on "timeout", anything else is a draw. Caller holds g.mu.
func (g *Game) handleTimeout() {
	alive := g.alivePlayers()
	if len(alive) == 1 {
		g.endMatch(alive[0].ID, "timeout")
		return
	}
	g.endMatch(0, "draw")
}
