package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"traffic-observer/src/logger"
	"traffic-observer/src/models"

	_ "github.com/lib/pq"
)

// -----------------------------------------------------------------------------

type PostgresDB struct {
	Config *models.MConfig
	DB     *sql.DB
	Schema string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPostgresDB(cfg *models.MConfig, log *logger.Logger) (*PostgresDB, error) {
	return &PostgresDB{
		Config: cfg,
		Schema: "traffic_observer",
		Logger: log,
	}, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Initialize() error {
	dsn := d.Config.Storage.DBConnectionString
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}

	if err := db.Ping(); err != nil {
		return err
	}

	d.DB = db

	if _, err := d.DB.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS "%s"`, d.Schema)); err != nil {
		return fmt.Errorf("failed to create schema %s: %w", d.Schema, err)
	}

	return d.createTables()
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) createTables() error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".traffic_logs (
			signal_id TEXT,
			timestamp BIGINT,
			density DOUBLE PRECISION,
			vehicle_count INTEGER,
			speed DOUBLE PRECISION,
			created_at BIGINT,
			PRIMARY KEY (signal_id, timestamp)
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create traffic_logs: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".view_snapshots (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			state JSONB,
			saved_at BIGINT
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create view_snapshots: %w", err)
	}

	query = fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s".credentials (
			email TEXT PRIMARY KEY,
			token TEXT,
			saved_at BIGINT
		);
	`, d.Schema)
	if _, err := d.DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create credentials: %w", err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveTrafficLogsBulk(points []models.MTrafficLogPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := d.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(`
		INSERT INTO "%s".traffic_logs (signal_id, timestamp, density, vehicle_count, speed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (signal_id, timestamp) DO NOTHING
	`, d.Schema))
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

func (d *PostgresDB) SaveViewSnapshot(state *models.MDashboardState) error {
	if state == nil {
		return nil
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return err
	}

	_, err = d.DB.Exec(fmt.Sprintf(`
		INSERT INTO "%s".view_snapshots (id, state, saved_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET state = EXCLUDED.state, saved_at = EXCLUDED.saved_at
	`, d.Schema), string(blob), time.Now().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadViewSnapshot() (*models.MDashboardState, error) {
	var blob string
	err := d.DB.QueryRow(fmt.Sprintf(`SELECT state FROM "%s".view_snapshots WHERE id = 1`, d.Schema)).Scan(&blob)
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

func (d *PostgresDB) CleanupOldData() error {
	retentionDays := d.Config.Poll.HistoryRetentionDays
	if retentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -retentionDays).UnixMilli()
	res, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s".traffic_logs WHERE timestamp < $1`, d.Schema), cutoff)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows > 0 {
		d.Logger.Info("Cleaned up %d traffic log rows older than %d days", rows, retentionDays)
	}
	return nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Credential store
// -----------------------------------------------------------------------------

func (d *PostgresDB) SaveToken(email, token string) error {
	_, err := d.DB.Exec(fmt.Sprintf(`
		INSERT INTO "%s".credentials (email, token, saved_at) VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET token = EXCLUDED.token, saved_at = EXCLUDED.saved_at
	`, d.Schema), email, token, time.Now().Unix())
	return err
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) LoadToken(email string) (string, error) {
	var token string
	err := d.DB.QueryRow(fmt.Sprintf(`SELECT token FROM "%s".credentials WHERE email = $1`, d.Schema), email).Scan(&token)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// -----------------------------------------------------------------------------

func (d *PostgresDB) ClearToken(email string) error {
	_, err := d.DB.Exec(fmt.Sprintf(`DELETE FROM "%s".credentials WHERE email = $1`, d.Schema), email)
	return err
}
