package store

import (
	"time"

	"github.com/danielpatrickdp/codeloop/internal/agent"
)

// Request is one natural-language feature request and the file it targeted.
type Request struct {
	ID              string
	HumanRequest    string
	TaskDescription string
	FilePath        string
	OriginalContent string
	CreatedAt       time.Time
}

// Generation is one version of generated file content for a request.
type Generation struct {
	RequestID string
	Version   int
	Action    agent.Action // empty for the initial generation
	Content   string
	CreatedAt time.Time
}

// LoggedTransition is a transition with its log position and timestamp.
type LoggedTransition struct {
	ID        int64
	CreatedAt time.Time
	agent.Transition
}

// PerformanceRow groups the logged outcome of one request.
type PerformanceRow struct {
	RequestID string
	Task      string
	Versions  int
	Rewards   []float64
	Actions   []agent.Action
}

// SnapshotVersion describes one saved value table.
type SnapshotVersion struct {
	VersionID string
	ParentID  string
	Note      string
	Active    bool
	CreatedAt time.Time
}
