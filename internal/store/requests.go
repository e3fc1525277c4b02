package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/google/uuid"
)

// #region insert-request
// InsertRequest records a request and returns its id. A fresh uuid is assigned
// when req.ID is empty.
func (s *Store) InsertRequest(ctx context.Context, req Request) (string, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO requests (request_id, human_request, task_description, file_path, original_content, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID, req.HumanRequest, req.TaskDescription, req.FilePath,
		nullIfEmpty(req.OriginalContent), req.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert request: %w", err)
	}
	return req.ID, nil
}
// #endregion insert-request

// #region insert-generation
// InsertGeneration records one version of generated content.
func (s *Store) InsertGeneration(ctx context.Context, g Generation) error {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO code_generations (request_id, version, action, generated_content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.RequestID, g.Version, nullIfEmpty(string(g.Action)), g.Content, g.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}
// #endregion insert-generation

// #region get-request
// GetRequest reads a request by id.
func (s *Store) GetRequest(ctx context.Context, id string) (Request, error) {
	var req Request
	var original sql.NullString
	var createdStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT request_id, human_request, task_description, file_path, original_content, created_at
		 FROM requests WHERE request_id = ?`, id,
	).Scan(&req.ID, &req.HumanRequest, &req.TaskDescription, &req.FilePath, &original, &createdStr)
	if err != nil {
		return Request{}, fmt.Errorf("get request %s: %w", id, err)
	}
	if original.Valid {
		req.OriginalContent = original.String
	}
	req.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return req, nil
}
// #endregion get-request

// #region generations
// Generations lists the versions recorded for a request, oldest first.
func (s *Store) Generations(ctx context.Context, requestID string) ([]Generation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_id, version, action, generated_content, created_at
		 FROM code_generations WHERE request_id = ? ORDER BY version, id`, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		var action sql.NullString
		var createdStr string
		if err := rows.Scan(&g.RequestID, &g.Version, &action, &g.Content, &createdStr); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		if action.Valid {
			g.Action = agent.Action(action.String)
		}
		g.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, g)
	}
	return out, rows.Err()
}
// #endregion generations
