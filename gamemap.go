package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// GameMap holds the static map: permanent walls and destructible blocks,
// both keyed by cell. Walls never change after Load; blocks only shrink
// until the next Load.
type GameMap struct {
	mu     sync.RWMutex
	path   string
	walls  map[Cell]struct{}
	blocks map[Cell]struct{}
}

// map file layout, produced by the external map export step
type tilePos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type mapFile struct {
	Walls  []tilePos `json:"walls"`
	Blocks []tilePos `json:"blocks"`
}

// NewGameMap creates an empty map bound to a file path. Call Load before use.
func NewGameMap(path string) *GameMap {
	return &GameMap{
		path:   path,
		walls:  make(map[Cell]struct{}),
		blocks: make(map[Cell]struct{}),
	}
}

// Load reads the wall and block coordinate lists from the map file,
// replacing the current sets. Used at startup and on every session reset.
func (m *GameMap) Load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("read map file: %w", err)
	}
	var mf mapFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("parse map file %s: %w", m.path, err)
	}

	walls := make(map[Cell]struct{}, len(mf.Walls))
	for _, t := range mf.Walls {
		walls[Cell{X: t.X, Y: t.Y}] = struct{}{}
	}
	blocks := make(map[Cell]struct{}, len(mf.Blocks))
	for _, t := range mf.Blocks {
		blocks[Cell{X: t.X, Y: t.Y}] = struct{}{}
	}

	m.mu.Lock()
	m.walls = walls
	m.blocks = blocks
	m.mu.Unlock()
	return nil
}

// IsWall reports whether the cell holds a permanent wall.
func (m *GameMap) IsWall(c Cell) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.walls[c]
	return ok
}

// IsBlock reports whether the cell holds a destructible block.
func (m *GameMap) IsBlock(c Cell) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[c]
	return ok
}

// DestroyBlock removes the block at the cell if present and reports whether
// a removal happened. Calling it again for the same cell is a no-op, so a
// block can never drop two items.
func (m *GameMap) DestroyBlock(c Cell) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blocks[c]; !ok {
		return false
	}
	delete(m.blocks, c)
	return true
}

// WallCount returns the number of wall cells.
func (m *GameMap) WallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.walls)
}

// BlockCount returns the number of remaining block cells.
func (m *GameMap) BlockCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}
