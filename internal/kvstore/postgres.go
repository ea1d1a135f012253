package kvstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PGStore persists entries in a single Postgres table, one row per resource.
type PGStore struct {
	db *sql.DB
}

func OpenPostgres(databaseURL string) (*PGStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Wait for the database to accept connections; containerized deploys
	// usually bring the server up before Postgres is ready.
	var pingErr error
	for i := 0; i < 15; i++ {
		if pingErr = db.Ping(); pingErr == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if pingErr != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", pingErr)
	}

	st := &PGStore{db: db}
	if err := st.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return st, nil
}

func (st *PGStore) createTables() error {
	query := `CREATE TABLE IF NOT EXISTS resources (
		key VARCHAR(64) PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := st.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create resources table: %w", err)
	}
	return nil
}

func (st *PGStore) Get(key string, dst interface{}) (bool, error) {
	var raw []byte
	err := st.db.QueryRow(`SELECT value FROM resources WHERE key = $1`, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read entry %q: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("failed to decode entry %q: %w", key, err)
	}
	return true, nil
}

func (st *PGStore) Put(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode entry %q: %w", key, err)
	}

	query := `
		INSERT INTO resources (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = $3
	`
	if _, err := st.db.Exec(query, key, raw, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write entry %q: %w", key, err)
	}
	return nil
}

func (st *PGStore) Delete(key string) error {
	if _, err := st.db.Exec(`DELETE FROM resources WHERE key = $1`, key); err != nil {
		return fmt.Errorf("failed to delete entry %q: %w", key, err)
	}
	return nil
}

func (st *PGStore) Close() error {
	return st.db.Close()
}
