package memory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"whodunit/internal/debug"
	"whodunit/internal/llm"
	"whodunit/internal/mystery"
)

type completer interface {
	CompleteText(ctx context.Context, req llm.TextCompletionRequest) (string, error)
}

// Store persists each character's accumulated gossip, one snapshot row per
// update, grouped under a per-session collection id. Summaries are generated
// on demand from the latest snapshot; summary failures degrade to "no
// summary" rather than erroring, because gossip bookkeeping must never stall
// the game.
type Store struct {
	db         *sql.DB
	llm        completer
	debug      *debug.Logger
	collection string

	mu     sync.Mutex
	latest map[string]string
}

// Memory is one stored gossip snapshot.
type Memory struct {
	Handle    string
	Character string
	Content   string
	CreatedAt time.Time
}

func NewStore(path string, llmService completer, debugLogger *debug.Logger) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory database: %w", err)
	}

	s := &Store{
		db:         db,
		llm:        llmService,
		debug:      debugLogger,
		collection: uuid.New().String(),
		latest:     make(map[string]string),
	}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}

	if s.debug != nil {
		s.debug.Printf("Gossip memory store ready, collection %s", s.collection[:8])
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		character TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_memories_character ON memories(character, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create memory tables: %w", err)
	}
	return nil
}

func (s *Store) Collection() string {
	return s.collection
}

// Store writes a fresh snapshot of a character's full gossip list and
// returns its handle. An empty list is a no-op with an empty handle; there
// is nothing worth remembering yet.
func (s *Store) Store(ctx context.Context, character string, entries []mystery.GossipEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	handle := uuid.New().String()
	content := formatGossip(character, entries)

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO memories (id, collection, character, content) VALUES (?, ?, ?, ?)",
		handle, s.collection, character, content,
	)
	if err != nil {
		return "", fmt.Errorf("failed to store gossip for %s: %w", character, err)
	}

	s.mu.Lock()
	s.latest[character] = handle
	s.mu.Unlock()

	if s.debug != nil {
		s.debug.Printf("Stored gossip memory for %s (handle %s)", character, handle[:8])
	}
	return handle, nil
}

// Summarize condenses the character's latest gossip snapshot into 1-2
// sentences. No prior snapshot means no summary; a generation failure
// degrades to the handle with an empty summary.
func (s *Store) Summarize(ctx context.Context, character string) (string, string, error) {
	s.mu.Lock()
	handle := s.latest[character]
	s.mu.Unlock()
	if handle == "" {
		return "", "", nil
	}

	var content string
	err := s.db.QueryRowContext(ctx, "SELECT content FROM memories WHERE id = ?", handle).Scan(&content)
	if err != nil {
		if s.debug != nil {
			s.debug.Printf("Gossip snapshot %s missing for %s: %v", handle[:8], character, err)
		}
		return handle, "", nil
	}

	ctx = llm.WithOperationType(ctx, "memory.summarize")
	summary, err := s.llm.CompleteText(ctx, llm.TextCompletionRequest{
		SystemPrompt: "You condense in-game gossip into short factual summaries.",
		UserPrompt:   buildSummaryPrompt(character, content),
		Temperature:  0.3,
		MaxTokens:    150,
	})
	if err != nil {
		if s.debug != nil {
			s.debug.Printf("Gossip summary failed for %s: %v", character, err)
		}
		return handle, "", nil
	}

	return handle, strings.TrimSpace(summary), nil
}

// Memories returns a character's stored snapshots, newest first.
func (s *Store) Memories(character string) ([]Memory, error) {
	rows, err := s.db.Query(
		"SELECT id, character, content, created_at FROM memories WHERE character = ? ORDER BY created_at DESC, id",
		character,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories for %s: %w", character, err)
	}
	defer rows.Close()

	var memories []Memory
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.Handle, &m.Character, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}

// formatGossip renders the accumulated list grouped by whoever passed it
// along, in first-heard order.
func formatGossip(character string, entries []mystery.GossipEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Gossip accumulated by %s:\n\n", character)

	var sources []string
	bySource := make(map[string][]mystery.GossipEntry)
	for _, entry := range entries {
		if _, seen := bySource[entry.From]; !seen {
			sources = append(sources, entry.From)
		}
		bySource[entry.From] = append(bySource[entry.From], entry)
	}

	for _, source := range sources {
		group := bySource[source]
		fmt.Fprintf(&b, "From %s (%s):\n", source, group[0].Relationship)
		for i, entry := range group {
			fmt.Fprintf(&b, "  %d. %s\n", i+1, entry.Info)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func buildSummaryPrompt(character, content string) string {
	return fmt.Sprintf(`Summarize the gossip %s has accumulated in 1-2 sentences, focused on who told them what. Return ONLY the summary.

%s`, character, content)
}
