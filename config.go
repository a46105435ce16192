package main

import "time"

// Config holds all tunables for one server process.
type Config struct {
	Addr      string // game TCP listen address
	AdminAddr string // admin HTTP listen address, "" disables
	MapPath   string // static map file (walls + blocks)
	DBPath    string // SQLite match history, "" disables
	LogPath   string // rolling log file

	MaxPlayers       int           // lobby capacity
	CountdownSeconds int           // pre-match countdown
	MatchSeconds     float64       // match duration
	FuseDelay        time.Duration // balloon placement -> detonation
	TrappedSeconds   float64       // trapped -> dead without rescue
	DropPercent      int           // item drop chance per destroyed block, 0-100

	// TickInterval is the wall-clock length of one match-clock second.
	// Tests shrink it so timer-driven paths run fast.
	TickInterval time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		Addr:             ":12345",
		AdminAddr:        ":8081",
		MapPath:          "map.json",
		DBPath:           "",
		LogPath:          "arcade.log",
		MaxPlayers:       2,
		CountdownSeconds: 10,
		MatchSeconds:     180,
		FuseDelay:        3 * time.Second,
		TrappedSeconds:   30,
		DropPercent:      100,
		TickInterval:     time.Second,
	}
}
