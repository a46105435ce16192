package main

import (
	"os"
	"testing"
)

func TestMapLoadParsesTiles(t *testing.T) {
	path := writeTestMap(t,
		[]Cell{{X: 0, Y: 0}, {X: 1, Y: 0}},
		[]Cell{{X: 5, Y: 5}},
	)
	m := NewGameMap(path)
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if m.WallCount() != 2 || m.BlockCount() != 1 {
		t.Fatalf("counts wrong: %d walls, %d blocks", m.WallCount(), m.BlockCount())
	}
	if !m.IsWall(Cell{X: 1, Y: 0}) {
		t.Error("expected wall at (1,0)")
	}
	if !m.IsBlock(Cell{X: 5, Y: 5}) {
		t.Error("expected block at (5,5)")
	}
	if m.IsWall(Cell{X: 5, Y: 5}) || m.IsBlock(Cell{X: 1, Y: 0}) {
		t.Error("walls and blocks must not bleed into each other")
	}
}

func TestDestroyBlockIdempotent(t *testing.T) {
	m := NewGameMap(writeTestMap(t, nil, []Cell{{X: 3, Y: 3}}))
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	if !m.DestroyBlock(Cell{X: 3, Y: 3}) {
		t.Fatal("first destroy should report removal")
	}
	if m.DestroyBlock(Cell{X: 3, Y: 3}) {
		t.Fatal("second destroy must be a no-op")
	}
	if m.DestroyBlock(Cell{X: 9, Y: 9}) {
		t.Fatal("destroying an empty cell must be a no-op")
	}
	if m.BlockCount() != 0 {
		t.Errorf("expected 0 blocks, got %d", m.BlockCount())
	}
}

func TestReloadRestoresDestroyedBlocks(t *testing.T) {
	m := NewGameMap(writeTestMap(t, nil, []Cell{{X: 3, Y: 3}, {X: 4, Y: 4}}))
	if err := m.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}
	m.DestroyBlock(Cell{X: 3, Y: 3})

	if err := m.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !m.IsBlock(Cell{X: 3, Y: 3}) {
		t.Error("reload should restore the destroyed block")
	}
	if m.BlockCount() != 2 {
		t.Errorf("expected 2 blocks after reload, got %d", m.BlockCount())
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	m := NewGameMap("does-not-exist.json")
	if err := m.Load(); err == nil {
		t.Fatal("expected an error for a missing map file")
	}
}

func TestLoadMalformedFileFails(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "map-*.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"walls": [`); err != nil {
		t.Fatal(err)
	}
	f.Close()

	m := NewGameMap(f.Name())
	if err := m.Load(); err == nil {
		t.Fatal("expected an error for a malformed map file")
	}
}
