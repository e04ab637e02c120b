package db

import (
	"database/sql"
	"fmt"
	"time"

	"washplant-monitor/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// Database wraps the SQLite connection to the plant's record mirror.
type Database struct {
	conn *sql.DB
}

// New creates a new database connection
func New(dbPath string) (*Database, error) {
	// Enable WAL mode and other optimizations via connection string
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000", dbPath)

	conn, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings for better performance
	conn.SetMaxOpenConns(1) // SQLite works best with single writer
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	db := &Database{conn: conn}

	if err := db.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return db, nil
}

// initialize creates tables and indexes
func (db *Database) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS status_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		water_m3 REAL NOT NULL DEFAULT 0,
		cycles INTEGER NOT NULL DEFAULT 0,
		kg_washed REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS load_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		client_id INTEGER NOT NULL,
		kg REAL NOT NULL DEFAULT 0,
		water_m3 REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS daily_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		client_id INTEGER,
		downtime_min REAL NOT NULL DEFAULT 0,
		production_min REAL NOT NULL DEFAULT 0,
		water_m3 REAL NOT NULL DEFAULT 0,
		kg REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS chemical_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts DATETIME NOT NULL,
		q1 REAL NOT NULL DEFAULT 0, q2 REAL NOT NULL DEFAULT 0, q3 REAL NOT NULL DEFAULT 0,
		q4 REAL NOT NULL DEFAULT 0, q5 REAL NOT NULL DEFAULT 0, q6 REAL NOT NULL DEFAULT 0,
		q7 REAL NOT NULL DEFAULT 0, q8 REAL NOT NULL DEFAULT 0, q9 REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS alarm_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_time DATETIME NOT NULL,
		clear_time DATETIME,
		tag TEXT NOT NULL,
		message TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 3
	);

	CREATE TABLE IF NOT EXISTS client_aliases (
		client_id INTEGER PRIMARY KEY,
		display_name TEXT NOT NULL
	);

	-- Indexes for the window-scoped aggregation queries
	CREATE INDEX IF NOT EXISTS idx_status_ts ON status_records(ts);
	CREATE INDEX IF NOT EXISTS idx_load_ts ON load_records(ts);
	CREATE INDEX IF NOT EXISTS idx_load_client_ts ON load_records(client_id, ts);
	CREATE INDEX IF NOT EXISTS idx_daily_ts ON daily_records(ts);
	CREATE INDEX IF NOT EXISTS idx_chemical_ts ON chemical_records(ts);
	CREATE INDEX IF NOT EXISTS idx_alarm_start ON alarm_history(start_time);
	CREATE INDEX IF NOT EXISTS idx_alarm_active ON alarm_history(start_time) WHERE clear_time IS NULL;
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.conn.Close()
}

// InsertStatusRecord adds a single cumulative status poll
func (db *Database) InsertStatusRecord(r *models.StatusRecord) error {
	query := `INSERT INTO status_records (ts, water_m3, cycles, kg_washed) VALUES (?, ?, ?, ?)`
	result, err := db.conn.Exec(query, r.Timestamp, r.WaterM3, r.Cycles, r.KgWashed)
	if err != nil {
		return err
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

// InsertLoadRecord adds a single load ledger row
func (db *Database) InsertLoadRecord(r *models.LoadRecord) error {
	query := `INSERT INTO load_records (ts, client_id, kg, water_m3) VALUES (?, ?, ?, ?)`
	result, err := db.conn.Exec(query, r.Timestamp, r.ClientID, r.Kg, r.WaterM3)
	if err != nil {
		return err
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

// InsertDailyRecord adds a consolidated daily row
func (db *Database) InsertDailyRecord(r *models.DailyRecord) error {
	query := `INSERT INTO daily_records (ts, downtime_min, production_min, water_m3, kg, client_id) VALUES (?, ?, ?, ?, ?, NULLIF(?, 0))`
	result, err := db.conn.Exec(query, r.Timestamp, r.DowntimeMin, r.ProductionMin, r.WaterM3, r.Kg, r.ClientID)
	if err != nil {
		return err
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

// InsertChemicalRecord adds a dosing row
func (db *Database) InsertChemicalRecord(r *models.ChemicalRecord) error {
	query := `
		INSERT INTO chemical_records (ts, q1, q2, q3, q4, q5, q6, q7, q8, q9)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := db.conn.Exec(query, r.Timestamp, r.Q1, r.Q2, r.Q3, r.Q4, r.Q5, r.Q6, r.Q7, r.Q8, r.Q9)
	if err != nil {
		return err
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

// InsertAlarmRecord adds one alarm occurrence
func (db *Database) InsertAlarmRecord(r *models.AlarmRecord) error {
	query := `INSERT INTO alarm_history (start_time, clear_time, tag, message, priority) VALUES (?, ?, ?, ?, ?)`
	var clear interface{}
	if r.ClearTime != nil {
		clear = *r.ClearTime
	}
	result, err := db.conn.Exec(query, r.StartTime, clear, r.Tag, r.Message, r.Priority)
	if err != nil {
		return err
	}
	r.ID, _ = result.LastInsertId()
	return nil
}

// InsertLoadBatch efficiently inserts multiple load rows
func (db *Database) InsertLoadBatch(records []models.LoadRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO load_records (ts, client_id, kg, water_m3) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for _, r := range records {
		if _, err := stmt.Exec(r.Timestamp, r.ClientID, r.Kg, r.WaterM3); err != nil {
			return count, err
		}
		count++
	}

	return count, tx.Commit()
}

// InsertStatusBatch efficiently inserts multiple status polls
func (db *Database) InsertStatusBatch(records []models.StatusRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO status_records (ts, water_m3, cycles, kg_washed) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for _, r := range records {
		if _, err := stmt.Exec(r.Timestamp, r.WaterM3, r.Cycles, r.KgWashed); err != nil {
			return count, err
		}
		count++
	}

	return count, tx.Commit()
}

// InsertAlarmBatch efficiently inserts multiple alarm rows
func (db *Database) InsertAlarmBatch(records []models.AlarmRecord) (int64, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO alarm_history (start_time, clear_time, tag, message, priority) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var count int64
	for _, r := range records {
		var clear interface{}
		if r.ClearTime != nil {
			clear = *r.ClearTime
		}
		if _, err := stmt.Exec(r.StartTime, clear, r.Tag, r.Message, r.Priority); err != nil {
			return count, err
		}
		count++
	}

	return count, tx.Commit()
}

// GetStats returns row counts per record source
func (db *Database) GetStats() (map[string]interface{}, error) {
	stats := make(map[string]interface{})

	counts := map[string]string{
		"status_records":   "SELECT COUNT(*) FROM status_records",
		"load_records":     "SELECT COUNT(*) FROM load_records",
		"daily_records":    "SELECT COUNT(*) FROM daily_records",
		"chemical_records": "SELECT COUNT(*) FROM chemical_records",
		"alarm_history":    "SELECT COUNT(*) FROM alarm_history",
		"client_aliases":   "SELECT COUNT(*) FROM client_aliases",
	}

	for name, query := range counts {
		var count int64
		if err := db.conn.QueryRow(query).Scan(&count); err != nil {
			return nil, err
		}
		stats[name] = count
	}

	var activeAlarms int64
	db.conn.QueryRow("SELECT COUNT(*) FROM alarm_history WHERE clear_time IS NULL").Scan(&activeAlarms)
	stats["active_alarms"] = activeAlarms

	return stats, nil
}
