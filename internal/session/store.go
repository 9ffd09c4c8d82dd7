// Package session persists what the browser's local storage held in the
// original client: the stable player identity, the last-joined room code,
// and per-round draft answers used for reload recovery and round-end
// backfill.
package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/harfgames/hayawan/internal/game"
)

var ErrNotFound = errors.New("session: not found")

type Identity struct {
	PlayerID string
	Name     string
	LastRoom string
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Identity returns the stable local player identity, creating one on first
// use. The id survives reconnects and process restarts.
func (s *Store) Identity(ctx context.Context) (Identity, error) {
	var id Identity
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, last_room FROM identities LIMIT 1
	`).Scan(&id.PlayerID, &id.Name, &id.LastRoom)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Identity{}, fmt.Errorf("loading identity: %w", err)
	}

	id = Identity{PlayerID: "player_" + uuid.NewString()}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO identities (id) VALUES (?)
	`, id.PlayerID)
	if err != nil {
		return Identity{}, fmt.Errorf("creating identity: %w", err)
	}
	return id, nil
}

// SetName stores the player's display name alongside the identity.
func (s *Store) SetName(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE identities SET name = ?`, name)
	return err
}

// RememberRoom records the room code so a restarted client can rejoin.
func (s *Store) RememberRoom(ctx context.Context, code string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE identities SET last_room = ?`, code)
	return err
}

// ForgetRoom clears the remembered room after leaving or termination.
func (s *Store) ForgetRoom(ctx context.Context) error {
	return s.RememberRoom(ctx, "")
}

// SaveDraft upserts a player's in-progress answers for a round.
func (s *Store) SaveDraft(ctx context.Context, room string, round int, playerID string, answers game.Answers) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("encoding draft: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (room, round, player_id, answers, updated_at)
		VALUES (?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
		ON CONFLICT (room, round, player_id)
		DO UPDATE SET answers = excluded.answers, updated_at = excluded.updated_at
	`, room, round, playerID, string(raw))
	if err != nil {
		return fmt.Errorf("saving draft: %w", err)
	}
	return nil
}

// Draft returns a player's saved answers for a round, or ErrNotFound.
func (s *Store) Draft(ctx context.Context, room string, round int, playerID string) (game.Answers, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT answers FROM drafts WHERE room = ? AND round = ? AND player_id = ?
	`, room, round, playerID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading draft: %w", err)
	}

	var answers game.Answers
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return nil, fmt.Errorf("decoding draft: %w", err)
	}
	return answers, nil
}

// ClearRoom drops every draft saved for a room, called once a session ends.
func (s *Store) ClearRoom(ctx context.Context, room string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE room = ?`, room)
	return err
}
