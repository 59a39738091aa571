package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hatlab/hatctl/pkg/config"

	_ "github.com/lib/pq"
)

var DebugLog func(string, ...interface{})

type DB struct {
	conn    *sql.DB
	enabled bool
}

// RunRecord is one tracked run configuration inside an experiment.
// Re-validating the same configuration refreshes last_seen and status.
type RunRecord struct {
	Experiment string
	ConfigPath string
	ConfigHash string
	Arch       string
	Params     int64
	Status     string
	FirstSeen  time.Time
	LastSeen   time.Time
}

const DBName = "hatctl_track"

func New(cfg *config.Database) (*DB, error) {
	db := &DB{
		enabled: cfg.Enabled,
	}

	if !cfg.Enabled {
		return db, nil
	}

	postgresConnStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=postgres sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password)

	postgresConn, err := sql.Open("postgres", postgresConnStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer postgresConn.Close()

	if err := postgresConn.Ping(); err != nil {
		return db, fmt.Errorf("failed to ping postgres: %w", err)
	}

	var exists bool
	err = postgresConn.QueryRow("SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", DBName).Scan(&exists)
	if err != nil {
		return db, fmt.Errorf("failed to check database existence: %w", err)
	}

	if !exists {
		_, err = postgresConn.Exec(fmt.Sprintf("CREATE DATABASE %s", DBName))
		if err != nil {
			return db, fmt.Errorf("failed to create database: %w", err)
		}
		if DebugLog != nil {
			DebugLog("database %s created", DBName)
		}
	}

	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, DBName)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return db, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return db, fmt.Errorf("failed to ping database: %w", err)
	}

	db.conn = conn

	if err := db.initSchema(); err != nil {
		return db, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

func (db *DB) initSchema() error {
	if !db.enabled || db.conn == nil {
		return nil
	}

	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id SERIAL PRIMARY KEY,
		experiment VARCHAR(255) NOT NULL,
		config_path VARCHAR(1024) NOT NULL,
		config_hash VARCHAR(64) NOT NULL,
		arch TEXT NOT NULL DEFAULT '',
		params BIGINT NOT NULL DEFAULT 0,
		status VARCHAR(20) NOT NULL DEFAULT 'CLEAN',
		first_seen TIMESTAMP NOT NULL DEFAULT NOW(),
		last_seen TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE(experiment, config_hash)
	);

	CREATE INDEX IF NOT EXISTS idx_experiment ON runs(experiment);
	CREATE INDEX IF NOT EXISTS idx_run_status ON runs(status);
	`

	_, err := db.conn.Exec(schema)
	return err
}

func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

func (db *DB) IsEnabled() bool {
	return db.enabled && db.conn != nil
}

// TrackRuns upserts the given records under their experiment.
func (db *DB) TrackRuns(records []RunRecord) error {
	if !db.IsEnabled() {
		return nil
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, rec := range records {
		var exists bool
		err := tx.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM runs WHERE experiment = $1 AND config_hash = $2)
		`, rec.Experiment, rec.ConfigHash).Scan(&exists)
		if err != nil {
			return err
		}

		if exists {
			if DebugLog != nil {
				DebugLog("updating run %s (%s) in database", rec.ConfigPath, rec.ConfigHash)
			}
			_, err = tx.Exec(`
				UPDATE runs
				SET config_path = $3, arch = $4, params = $5, status = $6, last_seen = NOW()
				WHERE experiment = $1 AND config_hash = $2
			`, rec.Experiment, rec.ConfigHash, rec.ConfigPath, rec.Arch, rec.Params, rec.Status)
		} else {
			if DebugLog != nil {
				DebugLog("inserting run %s (%s) into database", rec.ConfigPath, rec.ConfigHash)
			}
			_, err = tx.Exec(`
				INSERT INTO runs (experiment, config_path, config_hash, arch, params, status, first_seen, last_seen)
				VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			`, rec.Experiment, rec.ConfigPath, rec.ConfigHash, rec.Arch, rec.Params, rec.Status)
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (db *DB) QueryRuns(experiment string, status string) ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	query := `
		SELECT experiment, config_path, config_hash, arch, params, status, first_seen, last_seen
		FROM runs
		WHERE experiment = $1
	`
	args := []interface{}{experiment}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}

	query += " ORDER BY first_seen DESC"

	return db.queryRecords(query, args...)
}

func (db *DB) QueryAllRuns(status string) ([]RunRecord, error) {
	if !db.IsEnabled() {
		return nil, fmt.Errorf("database is not enabled")
	}

	query := `
		SELECT experiment, config_path, config_hash, arch, params, status, first_seen, last_seen
		FROM runs
	`
	var args []interface{}

	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}

	query += " ORDER BY experiment, first_seen DESC"

	return db.queryRecords(query, args...)
}

func (db *DB) queryRecords(query string, args ...interface{}) ([]RunRecord, error) {
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var r RunRecord
		if err := rows.Scan(&r.Experiment, &r.ConfigPath, &r.ConfigHash, &r.Arch,
			&r.Params, &r.Status, &r.FirstSeen, &r.LastSeen); err != nil {
			return nil, err
		}
		records = append(records, r)
	}

	return records, rows.Err()
}
