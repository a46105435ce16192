package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// The admin listener is observability only: health, counters and a
// read-only spectator feed. It never mutates match state and is separate
// from the game port so it can be firewalled off.

var watchUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Spectator feed is read-only and bound to an internal address.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ArenaSnapshot is the spectator view of the whole match, msgpack-encoded
// on the watch feed.
type ArenaSnapshot struct {
	Phase      int              `msgpack:"phase"`
	TimeLeft   float64          `msgpack:"time_left"`
	Players    []PlayerSnapshot `msgpack:"players"`
	Balloons   []Cell           `msgpack:"balloons"`
	Items      []Item           `msgpack:"items"`
	BlocksLeft int              `msgpack:"blocks_left"`
	Timestamp  int64            `msgpack:"ts"`
}

// SpectatorSnapshot assembles the current arena view.
func (g *Game) SpectatorSnapshot() ArenaSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	snap := ArenaSnapshot{
		Phase:      int(g.phase),
		TimeLeft:   g.timeLeft,
		BlocksLeft: g.gameMap.BlockCount(),
		Timestamp:  time.Now().UnixMilli(),
	}
	for _, p := range g.players {
		snap.Players = append(snap.Players, p.Snapshot())
	}
	for pos := range g.balloons {
		snap.Balloons = append(snap.Balloons, pos)
	}
	for _, it := range g.items {
		snap.Items = append(snap.Items, *it)
	}
	return snap
}

// StartAdmin serves /healthz, /metrics and the /watch spectator WebSocket on
// its own listener. Returns the server so main can shut it down.
func StartAdmin(addr string, game *Game, metrics *Metrics, log *zap.SugaredLogger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: adminMux(game, metrics, log)}
	go func() {
		log.Infof("admin listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("admin listener: %v", err)
		}
	}()
	return srv
}

func adminMux(game *Game, metrics *Metrics, log *zap.SugaredLogger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"players":  game.PlayerCount(),
			"phase":    int(game.CurrentPhase()),
			"counters": metrics.Snapshot(),
		})
	})

	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		conn, err := watchUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warnf("watch upgrade: %v", err)
			return
		}
		go watchLoop(conn, game, log)
	})
	return mux
}

// watchLoop streams a msgpack arena snapshot to one spectator every second
// until the socket breaks.
func watchLoop(conn *websocket.Conn, game *Game, log *zap.SugaredLogger) {
	defer conn.Close()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		data, err := msgpack.Marshal(game.SpectatorSnapshot())
		if err != nil {
			log.Errorf("marshal arena snapshot: %v", err)
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}
}
