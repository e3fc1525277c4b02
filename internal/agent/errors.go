package agent

import (
	"errors"

	"github.com/danielpatrickdp/codeloop/internal/reward"
)

// ErrInvalidMetric is shared with the reward package so callers can match either.
var ErrInvalidMetric = reward.ErrInvalidMetric

var (
	ErrInvalidConfiguration = errors.New("invalid agent configuration")
	ErrSnapshotCorrupt      = errors.New("snapshot corrupt")
	ErrStorageUnavailable   = errors.New("storage unavailable")
)
