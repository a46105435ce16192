package main

import (
	"sync"
	"testing"
)

func cellSet(cells []Cell) map[Cell]struct{} {
	set := make(map[Cell]struct{}, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}
	return set
}

func TestPlaceBalloonRejectsOccupiedCell(t *testing.T) {
	g := newTestGame(t, nil, nil, nil)
	p1, p2, _, _ := joinTwo(t, g)

	if !g.HandlePlaceBalloon(p1.ID, Cell{X: 0, Y: 0}, 1) {
		t.Fatal("first placement should succeed")
	}
	if g.HandlePlaceBalloon(p2.ID, Cell{X: 0, Y: 0}, 1) {
		t.Fatal("second placement on the same cell should fail")
	}
	if p1.PlacedBalloons != 1 || p2.PlacedBalloons != 0 {
		t.Errorf("placed counts wrong: %d, %d", p1.PlacedBalloons, p2.PlacedBalloons)
	}
}

func TestPlaceBalloonRejectedWhileTrappedOrDead(t *testing.T) {
	g := newTestGame(t, nil, nil, nil)
	p1, _, _, _ := joinTwo(t, g)

	p1.Trap()
	if g.HandlePlaceBalloon(p1.ID, Cell{X: 0, Y: 0}, 1) {
		t.Error("trapped player must not place balloons")
	}
	p1.Kill()
	if g.HandlePlaceBalloon(p1.ID, Cell{X: 0, Y: 0}, 1) {
		t.Error("dead player must not place balloons")
	}
}

func TestPlaceBalloonEchoesToEveryone(t *testing.T) {
	g := newTestGame(t, nil, nil, nil)
	p1, _, s1, s2 := joinTwo(t, g)

	g.HandlePlaceBalloon(p1.ID, Cell{X: 2, Y: -1}, 3)

	for _, s := range []*recordingSink{s1, s2} {
		echoes := s.ofType(PacketPlaceBalloon)
		if len(echoes) != 1 {
			t.Fatalf("expected 1 echo, got %d", len(echoes))
		}
		pkt := echoes[0].(*PlaceBalloonPacket)
		if pkt.PlayerId != p1.ID || (pkt.GridPos != Cell{X: 2, Y: -1}) || pkt.Range != 3 {
			t.Errorf("echo fields wrong: %+v", pkt)
		}
	}
}

func TestConcurrentPlacementExactlyOneWinner(t *testing.T) {
	g := newTestGame(t, nil, nil, nil)
	p1, p2, _, _ := joinTwo(t, g)

	var wg sync.WaitGroup
	results := make([]bool, 2)
	for i, id := range []uint64{p1.ID, p2.ID} {
		wg.Add(1)
		go func(slot int, playerID uint64) {
			defer wg.Done()
			results[slot] = g.HandlePlaceBalloon(playerID, Cell{X: 0, Y: 0}, 1)
		}(i, id)
	}
	wg.Wait()

	if results[0] == results[1] {
		t.Fatalf("exactly one placement should win, got %v and %v", results[0], results[1])
	}
}

func TestBlastOpenMapRangeTwo(t *testing.T) {
	g := newTestGame(t, nil, nil, nil)
	p1, _, _, s2 := joinTwo(t, g)

	// Keep both players out of the blast.
	g.HandleMove(p1.ID, Cell{X: 20, Y: 20})

	g.mu.Lock()
	g.balloons[Cell{X: 0, Y: 0}] = &Balloon{Owner: p1.ID, Pos: Cell{X: 0, Y: 0}, Range: 2}
	g.mu.Unlock()
	g.Detonate(Cell{X: 0, Y: 0}, 2)

	explosions := s2.ofType(PacketBalloonExplode)
	if len(explosions) != 1 {
		t.Fatalf("expected 1 explosion packet, got %d", len(explosions))
	}
	pkt := explosions[0].(*BalloonExplodePacket)
	if (pkt.GridPos != Cell{X: 0, Y: 0}) {
		t.Errorf("explosion center wrong: %v", pkt.GridPos)
	}
	if pkt.AffectedCells[0] != (Cell{X: 0, Y: 0}) {
		t.Error("center must come first in the affected set")
	}
	want := cellSet([]Cell{
		{0, 0},
		{1, 0}, {2, 0},
		{-1, 0}, {-2, 0},
		{0, 1}, {0, 2},
		{0, -1}, {0, -2},
	})
	if len(pkt.AffectedCells) != len(want) {
		t.Fatalf("expected %d affected cells, got %d: %v", len(want), len(pkt.AffectedCells), pkt.AffectedCells)
	}
	for _, c := range pkt.AffectedCells {
		if _, ok := want[c]; !ok {
			t.Errorf("unexpected affected cell %v", c)
		}
	}
}

func TestBlastWallStopsRayExcluded(t *testing.T) {
	g := newTestGame(t, []Cell{{X: 1, Y: 0}}, nil, nil)
	p1, _, _, s2 := joinTwo(t, g)
	g.HandleMove(p1.ID, Cell{X: 20, Y: 20})

	g.mu.Lock()
	g.balloons[Cell{X: 0, Y: 0}] = &Balloon{Owner: p1.ID, Pos: Cell{X: 0, Y: 0}, Range: 2}
	g.mu.Unlock()
	g.Detonate(Cell{X: 0, Y: 0}, 2)

	pkt := s2.ofType(PacketBalloonExplode)[0].(*BalloonExplodePacket)
	got := cellSet(pkt.AffectedCells)
	if _, ok := got[Cell{X: 1, Y: 0}]; ok {
		t.Error("wall cell must not be affected")
	}
	if _, ok := got[Cell{X: 2, Y: 0}]; ok {
		t.Error("cell behind the wall must not be affected")
	}
	if _, ok := got[Cell{X: -2, Y: 0}]; !ok {
		t.Error("opposite ray should still run its full range")
	}
}

func TestBlastBlockIncludedDestroyedAndStops(t *testing.T) {
	g := newTestGame(t, nil, []Cell{{X: 1, Y: 0}}, nil)
	p1, _, _, s2 := joinTwo(t, g)
	g.HandleMove(p1.ID, Cell{X: 20, Y: 20})

	g.mu.Lock()
	g.balloons[Cell{X: 0, Y: 0}] = &Balloon{Owner: p1.ID, Pos: Cell{X: 0, Y: 0}, Range: 2}
	g.mu.Unlock()
	g.Detonate(Cell{X: 0, Y: 0}, 2)

	pkt := s2.ofType(PacketBalloonExplode)[0].(*BalloonExplodePacket)
	got := cellSet(pkt.AffectedCells)
	if _, ok := got[Cell{X: 1, Y: 0}]; !ok {
		t.Error("block cell must be in the affected set")
	}
	if _, ok := got[Cell{X: 2, Y: 0}]; ok {
		t.Error("ray must stop at the block")
	}
	if g.gameMap.IsBlock(Cell{X: 1, Y: 0}) {
		t.Error("block should be destroyed")
	}
	if s2.countOf(PacketBlockDestroy) != 1 {
		t.Error("expected a block destroy broadcast")
	}
	// DropPercent defaults to 100, so the cleared cell spawns an item.
	spawns := s2.ofType(PacketItemSpawn)
	if len(spawns) != 1 {
		t.Fatalf("expected 1 item spawn, got %d", len(spawns))
	}
	if sp := spawns[0].(*ItemSpawnPacket); (sp.GridPos != Cell{X: 1, Y: 0}) {
		t.Errorf("item should spawn on the cleared cell, got %v", sp.GridPos)
	}
}

func TestDetonateClaimsExactlyOnce(t *testing.T) {
	g := newTestGame(t, nil, nil, nil)
	p1, _, _, _ := joinTwo(t, g)

	g.mu.Lock()
	g.balloons[Cell{X: 0, Y: 0}] = &Balloon{Owner: p1.ID, Pos: Cell{X: 0, Y: 0}, Range: 1}
	g.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Detonate(Cell{X: 0, Y: 0}, 1)
		}()
	}
	wg.Wait()

	if n := g.metrics.Detonations.Load(); n != 1 {
		t.Fatalf("expected exactly 1 detonation, got %d", n)
	}
}

func TestBlastTrapsStandingPlayers(t *testing.T) {
	g := newTestGame(t, nil, nil, nil)
	p1, p2, s1, _ := joinTwo(t, g)

	g.HandleMove(p1.ID, Cell{X: 1, Y: 0})
	g.HandleMove(p2.ID, Cell{X: 20, Y: 20})

	g.mu.Lock()
	g.balloons[Cell{X: 0, Y: 0}] = &Balloon{Owner: p2.ID, Pos: Cell{X: 0, Y: 0}, Range: 1}
	g.mu.Unlock()
	g.Detonate(Cell{X: 0, Y: 0}, 1)

	if !p1.Trapped() {
		t.Fatal("player in the blast should be trapped")
	}
	if p2.Trapped() {
		t.Fatal("player outside the blast should be untouched")
	}
	trapped := s1.ofType(PacketPlayerTrapped)
	if len(trapped) != 1 {
		t.Fatalf("expected 1 trapped packet, got %d", len(trapped))
	}
	if pkt := trapped[0].(*PlayerTrappedPacket); pkt.PlayerId != p1.ID {
		t.Errorf("trapped packet names wrong player %d", pkt.PlayerId)
	}
}

func TestFuseFiresOnSchedule(t *testing.T) {
	g := newTestGame(t, nil, nil, func(c *Config) { c.MaxPlayers = 3 })
	stop := make(chan struct{})
	defer close(stop)
	g.Run(stop)

	// Two joins in a three-seat lobby keep the session in the lobby phase,
	// so the match clock stays inert while the fuse queue runs.
	s := &recordingSink{}
	p, err := g.Join(s)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if !g.HandlePlaceBalloon(p.ID, Cell{X: 5, Y: 5}, 1) {
		t.Fatal("placement failed")
	}
	waitFor(t, func() bool { return g.metrics.Detonations.Load() == 1 })

	if s.countOf(PacketBalloonExplode) != 1 {
		t.Error("expected the scheduled detonation to broadcast")
	}
	if p.PlacedBalloons != 0 {
		t.Error("placed count should return to zero after detonation")
	}
}

func TestOrphanedBalloonStillDetonates(t *testing.T) {
	g := newTestGame(t, nil, nil, func(c *Config) { c.MaxPlayers = 3 })
	stop := make(chan struct{})
	defer close(stop)
	g.Run(stop)

	s1, s2 := &recordingSink{}, &recordingSink{}
	p1, err := g.Join(s1)
	if err != nil {
		t.Fatalf("join 1: %v", err)
	}
	if _, err := g.Join(s2); err != nil {
		t.Fatalf("join 2: %v", err)
	}

	if !g.HandlePlaceBalloon(p1.ID, Cell{X: 5, Y: 5}, 1) {
		t.Fatal("placement failed")
	}
	g.Leave(p1.ID)

	waitFor(t, func() bool { return g.metrics.Detonations.Load() == 1 })
	if s2.countOf(PacketBalloonExplode) != 1 {
		t.Error("remaining player should see the orphaned detonation")
	}
}
