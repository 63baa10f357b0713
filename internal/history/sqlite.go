package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"livepoll/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS poll_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question TEXT NOT NULL,
	options TEXT NOT NULL,
	correct_answer TEXT NOT NULL DEFAULT '',
	duration_seconds INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	ended_at TIMESTAMP NOT NULL,
	results TEXT NOT NULL,
	total_students INTEGER NOT NULL
);
`

// SQLiteStore persists poll history to SQLite. Writes are funneled through a
// single writer goroutine; SQLite serializes writers anyway, and the single
// channel keeps retries and shutdown in one place.
type SQLiteStore struct {
	db       *sql.DB
	writeCh  chan writeOperation
	shutdown chan struct{}
	wg       sync.WaitGroup
	closed   bool
	mu       sync.RWMutex
	logger   *zap.Logger
}

type writeOperation struct {
	operation func(*sql.DB) error
	result    chan error
}

// NewSQLiteStore opens (or creates) the history database at path and ensures
// the schema exists. Path may be ":memory:" for a process-lifetime database.
func NewSQLiteStore(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	// One connection keeps ":memory:" databases coherent; each pooled
	// connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	store := &SQLiteStore{
		db:       db,
		writeCh:  make(chan writeOperation, 16),
		shutdown: make(chan struct{}),
		logger:   logger,
	}

	store.wg.Add(1)
	go store.writeLoop()

	return store, nil
}

func (s *SQLiteStore) writeLoop() {
	defer s.wg.Done()

	for {
		select {
		case op := <-s.writeCh:
			err := op.operation(s.db)
			if err != nil {
				s.logger.Warn("history write failed, retrying", zap.Error(err))
				time.Sleep(time.Second)
				err = op.operation(s.db) // retry once
			}
			op.result <- err

		case <-s.shutdown:
			return
		}
	}
}

func (s *SQLiteStore) executeWrite(operation func(*sql.DB) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return fmt.Errorf("history store is closed")
	}
	s.mu.RUnlock()

	result := make(chan error, 1)
	select {
	case s.writeCh <- writeOperation{operation: operation, result: result}:
		return <-result
	case <-s.shutdown:
		return fmt.Errorf("history store is shutting down")
	}
}

// Append inserts one ended-poll record.
func (s *SQLiteStore) Append(ctx context.Context, record *types.HistoryRecord) error {
	return s.executeWrite(func(db *sql.DB) error {
		optionsJSON, err := json.Marshal(record.Options)
		if err != nil {
			return fmt.Errorf("failed to marshal options: %w", err)
		}
		resultsJSON, err := json.Marshal(record.Results)
		if err != nil {
			return fmt.Errorf("failed to marshal results: %w", err)
		}

		query := `
			INSERT INTO poll_history (question, options, correct_answer, duration_seconds, created_at, ended_at, results, total_students)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = db.ExecContext(ctx, query,
			record.Question,
			string(optionsJSON),
			record.CorrectAnswer,
			record.Duration,
			record.CreatedAt,
			record.EndedAt,
			string(resultsJSON),
			record.TotalStudents,
		)
		if err != nil {
			return fmt.Errorf("failed to insert history record: %w", err)
		}
		return nil
	})
}

// All returns every record, oldest first.
func (s *SQLiteStore) All(ctx context.Context) ([]*types.HistoryRecord, error) {
	query := `
		SELECT question, options, correct_answer, duration_seconds, created_at, ended_at, results, total_students
		FROM poll_history
		ORDER BY id ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query poll history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*types.HistoryRecord
	for rows.Next() {
		var record types.HistoryRecord
		var optionsJSON, resultsJSON string

		err := rows.Scan(
			&record.Question,
			&optionsJSON,
			&record.CorrectAnswer,
			&record.Duration,
			&record.CreatedAt,
			&record.EndedAt,
			&resultsJSON,
			&record.TotalStudents,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		if err := json.Unmarshal([]byte(optionsJSON), &record.Options); err != nil {
			return nil, fmt.Errorf("failed to unmarshal options: %w", err)
		}
		if err := json.Unmarshal([]byte(resultsJSON), &record.Results); err != nil {
			return nil, fmt.Errorf("failed to unmarshal results: %w", err)
		}

		records = append(records, &record)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history rows: %w", err)
	}

	return records, nil
}

// Close shuts down the writer goroutine and closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.shutdown)
	s.wg.Wait()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	return nil
}
