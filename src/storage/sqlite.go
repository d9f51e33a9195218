package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"traffic-observer/src/logger"
	"traffic-observer/src/models"

	_ "modernc.org/sqlite"
)

// -----------------------------------------------------------------------------

type AsyncSQLiteDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncSQLiteDB(cfg *models.MConfig, log *logger.Logger) (*AsyncSQLiteDB, error) {
	return &AsyncSQLiteDB{
		Config: cfg,
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Initialize() error {
	dsn := d.Config.Storage.DBPath

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		d.Logger.Warning("Failed to set WAL mode: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		d.Logger.Warning("Failed to set synchronous mode: %v", err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) createTables() error {
	// traffic_logs is history; it survives restarts, retention trims it.
	query := `
		CREATE TABLE IF NOT EXISTS traffic_logs (
			signal_id TEXT,
			timestamp INTEGER,
			density REAL,
			vehicle_count INTEGER,
			speed REAL,
			created_at INTEGER,
			PRIMARY KEY (signal_id, timestamp)
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create traffic_logs: %w", err)
	}

	// Single-row table holding the last reconciled dashboard state as JSON.
	query = `
		CREATE TABLE IF NOT EXISTS view_snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			state TEXT,
			saved_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create view_snapshots: %w", err)
	}

	query = `
		CREATE TABLE IF NOT EXISTS credentials (
			email TEXT PRIMARY KEY,
			token TEXT,
			saved_at INTEGER
		);
	`
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create credentials: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveTrafficLogsBulk(points []models.MTrafficLogPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO traffic_logs (signal_id, timestamp, density, vehicle_count, speed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range points {
		createdAt := p.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := stmt.Exec(p.SignalID, p.Timestamp, p.Density, p.VehicleCount, p.Speed, createdAt.Unix())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveViewSnapshot(state *models.MDashboardState) error {
	if state == nil {
		return nil
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = d.DB.Exec(`
		INSERT INTO view_snapshots (id, state, saved_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, saved_at = excluded.saved_at
	`, string(blob), time.Now().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadViewSnapshot() (*models.MDashboardState, error) {
	var blob string
	err := d.DB.QueryRow("SELECT state FROM view_snapshots WHERE id = 1").Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state models.MDashboardState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) CleanupOldData() error {
	retentionDays := d.Config.Poll.HistoryRetentionDays
	if retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	res, err := d.DB.Exec("DELETE FROM traffic_logs WHERE timestamp < ?", cutoff)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		d.Logger.Info("Cleaned up %d traffic log rows older than %d days", rows, retentionDays)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Credential store
// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) SaveToken(email, token string) error {
	_, err := d.DB.Exec(`
		INSERT INTO credentials (email, token, saved_at) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET token = excluded.token, saved_at = excluded.saved_at
	`, email, token, time.Now().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) LoadToken(email string) (string, error) {
	var token string
	err := d.DB.QueryRow("SELECT token FROM credentials WHERE email = ?", email).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// -----------------------------------------------------------------------------

func (d *AsyncSQLiteDB) ClearToken(email string) error {
	_, err := d.DB.Exec("DELETE FROM credentials WHERE email = ?", email)
	return err
}
