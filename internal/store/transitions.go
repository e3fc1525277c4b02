package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/danielpatrickdp/codeloop/internal/agent"
)

// #region append-transition
// AppendTransition writes one transition to the log. States are stored as JSON
// arrays so the tuple order survives the round trip.
func (s *Store) AppendTransition(ctx context.Context, t agent.Transition) error {
	stateJSON, err := json.Marshal(t.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	nextJSON, err := json.Marshal(t.NextState)
	if err != nil {
		return fmt.Errorf("marshal next state: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO transitions (request_id, state, action, reward, next_state, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.RequestID, string(stateJSON), string(t.Action), t.Reward, string(nextJSON),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("append transition: %w", err)
	}
	return nil
}
// #endregion append-transition

// #region read-transitions
// Transitions returns the whole log in insertion order.
func (s *Store) Transitions(ctx context.Context) ([]agent.Transition, error) {
	logged, err := s.LoggedTransitions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]agent.Transition, len(logged))
	for i, lt := range logged {
		out[i] = lt.Transition
	}
	return out, nil
}

// LoggedTransitions returns the whole log with row ids and timestamps.
func (s *Store) LoggedTransitions(ctx context.Context) ([]LoggedTransition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, state, action, reward, next_state, created_at
		 FROM transitions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	return scanTransitions(rows)
}

// TransitionsForRequest returns the transitions of a single request in order.
func (s *Store) TransitionsForRequest(ctx context.Context, requestID string) ([]LoggedTransition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, state, action, reward, next_state, created_at
		 FROM transitions WHERE request_id = ? ORDER BY id`, requestID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	return scanTransitions(rows)
}

func scanTransitions(rows *sql.Rows) ([]LoggedTransition, error) {
	defer rows.Close()

	var out []LoggedTransition
	for rows.Next() {
		var lt LoggedTransition
		var stateStr, nextStr, action, createdStr string
		if err := rows.Scan(&lt.ID, &lt.RequestID, &stateStr, &action, &lt.Reward, &nextStr, &createdStr); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		var err error
		if lt.State, err = agent.ParseState(stateStr); err != nil {
			return nil, fmt.Errorf("transition %d state: %w", lt.ID, err)
		}
		if lt.NextState, err = agent.ParseState(nextStr); err != nil {
			return nil, fmt.Errorf("transition %d next state: %w", lt.ID, err)
		}
		lt.Action = agent.Action(action)
		lt.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		out = append(out, lt)
	}
	return out, rows.Err()
}
// #endregion read-transitions

// #region reward-series
// RewardPoint is one logged reward for plotting.
type RewardPoint struct {
	At     time.Time
	Action agent.Action
	Reward float64
}

// RewardSeries returns every logged reward in insertion order.
func (s *Store) RewardSeries(ctx context.Context) ([]RewardPoint, error) {
	logged, err := s.LoggedTransitions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]RewardPoint, len(logged))
	for i, lt := range logged {
		out[i] = RewardPoint{At: lt.CreatedAt, Action: lt.Action, Reward: lt.Reward}
	}
	return out, nil
}
// #endregion reward-series

// #region performance
// PerformanceRows groups generations and transitions by request, oldest request first.
func (s *Store) PerformanceRows(ctx context.Context) ([]PerformanceRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.request_id, r.task_description, COUNT(c.id)
		 FROM requests r LEFT JOIN code_generations c ON c.request_id = r.request_id
		 GROUP BY r.request_id
		 ORDER BY r.rowid`)
	if err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}

	var out []PerformanceRow
	index := make(map[string]int)
	for rows.Next() {
		var pr PerformanceRow
		if err := rows.Scan(&pr.RequestID, &pr.Task, &pr.Versions); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan request: %w", err)
		}
		index[pr.RequestID] = len(out)
		out = append(out, pr)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	logged, err := s.LoggedTransitions(ctx)
	if err != nil {
		return nil, err
	}
	for _, lt := range logged {
		i, ok := index[lt.RequestID]
		if !ok {
			continue
		}
		out[i].Rewards = append(out[i].Rewards, lt.Reward)
		out[i].Actions = append(out[i].Actions, lt.Action)
	}
	return out, nil
}
// #endregion performance
