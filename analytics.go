package main

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Analytics event types.
const (
	EvtMatchStart    = "match_start"
	EvtMatchEnd      = "match_end"
	EvtPlayerTrapped = "player_trapped"
	EvtPlayerDeath   = "player_death"
	EvtPlayerKill    = "player_kill"
	EvtBalloonPlaced = "balloon_placed"
	EvtItemPickup    = "item_pickup"
)

// AnalyticsEvent is one trackable game event.
type AnalyticsEvent struct {
	Type      string
	PlayerID  uint64
	Data      string
	Timestamp time.Time
}

// Analytics records game events to the history store with batched background
// writes so the game path never waits on SQLite. A nil *Analytics is valid
// and drops everything, which is how the server runs without a database.
type Analytics struct {
	db     *DB
	log    *zap.SugaredLogger
	events chan AnalyticsEvent
	stop   chan struct{}
	wg     sync.WaitGroup
}

// NewAnalytics starts the background writer. Returns nil if db is nil.
func NewAnalytics(db *DB, log *zap.SugaredLogger) *Analytics {
	if db == nil {
		return nil
	}
	a := &Analytics{
		db:     db,
		log:    log,
		events: make(chan AnalyticsEvent, 1024),
		stop:   make(chan struct{}),
	}
	a.wg.Add(1)
	go a.writer()
	return a
}

// Track enqueues an event without blocking; when the channel is full the
// event is dropped rather than stalling the game loop.
func (a *Analytics) Track(evtType string, playerID uint64, data string) {
	if a == nil {
		return
	}
	select {
	case a.events <- AnalyticsEvent{
		Type:      evtType,
		PlayerID:  playerID,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}:
	default:
	}
}

// RecordMatch persists a finished match. The write happens off the caller's
// goroutine; the rows are already snapshotted so the match state can move on.
func (a *Analytics) RecordMatch(winnerID uint64, reason string, duration float64, players []MatchPlayerRow) {
	if a == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if _, err := a.db.InsertMatch(winnerID, reason, duration, players); err != nil {
			a.log.Errorf("record match: %v", err)
		}
	}()
}

// Stop flushes and shuts down the writer.
func (a *Analytics) Stop() {
	if a == nil {
		return
	}
	close(a.stop)
	a.wg.Wait()
}

func (a *Analytics) writer() {
	defer a.wg.Done()

	batch := make([]AnalyticsEvent, 0, 64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := a.db.InsertEvents(batch); err != nil {
			a.log.Errorf("flush analytics batch: %v", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case evt := <-a.events:
			batch = append(batch, evt)
			if len(batch) >= 50 {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-a.stop:
			// drain whatever is queued, then flush once more
			for {
				select {
				case evt := <-a.events:
					batch = append(batch, evt)
				default:
					flush()
					return
				}
			}
		}
	}
}
