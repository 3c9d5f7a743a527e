package logging

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type InterrogationLog struct {
	ID           int       `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	Suspect      string    `json:"suspect"`
	Question     string    `json:"question"`
	SystemPrompt string    `json:"system_prompt"`
	Response     string    `json:"response"`
	Metadata     string    `json:"metadata"`
	Rating       *int      `json:"rating,omitempty"`
	Notes        *string   `json:"notes,omitempty"`
}

type InterrogationMetadata struct {
	Model        string         `json:"model"`
	MaxTokens    int            `json:"max_tokens"`
	Temperature  float64        `json:"temperature"`
	ResponseTime time.Duration  `json:"response_time_ms"`
	Traits       map[string]int `json:"traits,omitempty"`
	Fallback     bool           `json:"fallback"`
	Error        *string        `json:"error,omitempty"`
}

type InterrogationLogger struct {
	db *sql.DB
}

func NewInterrogationLogger() (*InterrogationLogger, error) {
	return NewInterrogationLoggerAt("./interrogations.db")
}

func NewInterrogationLoggerAt(path string) (*InterrogationLogger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	logger := &InterrogationLogger{db: db}
	if err := logger.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return logger, nil
}

func (il *InterrogationLogger) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interrogations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		session_id TEXT NOT NULL,
		suspect TEXT NOT NULL,
		question TEXT NOT NULL,
		system_prompt TEXT NOT NULL,
		response TEXT NOT NULL,
		metadata TEXT NOT NULL,
		rating INTEGER,
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_interrogations_timestamp ON interrogations(timestamp);
	CREATE INDEX IF NOT EXISTS idx_interrogations_suspect ON interrogations(suspect);
	`

	_, err := il.db.Exec(schema)
	return err
}

func (il *InterrogationLogger) Log(
	sessionID string,
	suspect string,
	question string,
	systemPrompt string,
	response string,
	metadata InterrogationMetadata,
) error {
	metadataJson, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	_, err = il.db.Exec(`
		INSERT INTO interrogations (session_id, suspect, question, system_prompt, response, metadata)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, suspect, question, systemPrompt, response, string(metadataJson))

	return err
}

func (il *InterrogationLogger) Recent(limit int) ([]InterrogationLog, error) {
	rows, err := il.db.Query(`
		SELECT id, timestamp, session_id, suspect, question, system_prompt, response, metadata, rating, notes
		FROM interrogations
		ORDER BY timestamp DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []InterrogationLog
	for rows.Next() {
		var l InterrogationLog
		err := rows.Scan(&l.ID, &l.Timestamp, &l.SessionID, &l.Suspect, &l.Question,
			&l.SystemPrompt, &l.Response, &l.Metadata, &l.Rating, &l.Notes)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}

	return logs, rows.Err()
}

func (il *InterrogationLogger) Rate(id int, rating int, notes string) error {
	var notesPtr *string
	if notes != "" {
		notesPtr = &notes
	}

	_, err := il.db.Exec(`
		UPDATE interrogations
		SET rating = ?, notes = ?
		WHERE id = ?
	`, rating, notesPtr, id)

	return err
}

func (il *InterrogationLogger) Close() error {
	return il.db.Close()
}
