package main

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite match-history store. The live match never touches it
// synchronously; writes arrive in batches from the analytics goroutine.
type DB struct {
	conn *sql.DB
}

// MatchRow is a completed match record.
type MatchRow struct {
	ID        int64
	WinnerID  uint64
	Reason    string
	Duration  float64
	CreatedAt time.Time
}

// MatchPlayerRow is one player's participation in a match.
type MatchPlayerRow struct {
	PlayerID uint64
	Nickname string
	Survived bool
}

// OpenDB opens (or creates) the SQLite database and runs migrations.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL mode keeps analytics writes off the readers' backs
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		winner_id INTEGER NOT NULL DEFAULT 0,
		reason TEXT NOT NULL DEFAULT '',
		duration REAL NOT NULL DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS match_players (
		match_id INTEGER NOT NULL REFERENCES matches(id),
		player_id INTEGER NOT NULL,
		nickname TEXT NOT NULL DEFAULT '',
		survived INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (match_id, player_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		type TEXT NOT NULL,
		player_id INTEGER NOT NULL DEFAULT 0,
		data TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	`
	if _, err := db.conn.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// InsertMatch writes a completed match and its per-player rows.
func (db *DB) InsertMatch(winnerID uint64, reason string, duration float64, players []MatchPlayerRow) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO matches (winner_id, reason, duration) VALUES (?, ?, ?)",
		winnerID, reason, duration,
	)
	if err != nil {
		return 0, err
	}
	matchID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, p := range players {
		if _, err := db.conn.Exec(
			"INSERT INTO match_players (match_id, player_id, nickname, survived) VALUES (?, ?, ?, ?)",
			matchID, p.PlayerID, p.Nickname, p.Survived,
		); err != nil {
			return matchID, err
		}
	}
	return matchID, nil
}

// GetMatch reads one match back by id.
func (db *DB) GetMatch(id int64) (*MatchRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, winner_id, reason, duration, created_at FROM matches WHERE id = ?", id,
	)
	m := &MatchRow{}
	err := row.Scan(&m.ID, &m.WinnerID, &m.Reason, &m.Duration, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

// InsertEvents writes a batch of analytics events in one transaction.
func (db *DB) InsertEvents(batch []AnalyticsEvent) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT INTO events (type, player_id, data, created_at) VALUES (?, ?, ?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, evt := range batch {
		if _, err := stmt.Exec(evt.Type, evt.PlayerID, evt.Data, evt.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// CountEvents returns how many events of one type were recorded.
func (db *DB) CountEvents(evtType string) (int, error) {
	var n int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM events WHERE type = ?", evtType).Scan(&n)
	return n, err
}
