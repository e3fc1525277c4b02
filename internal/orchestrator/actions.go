package orchestrator

// #region imports
import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/codeloop/internal/agent"
	"github.com/danielpatrickdp/codeloop/internal/framework"
)

// #endregion

// #region action-handlers

// actionFunc carries out one chosen action. done reports that the loop should stop.
type actionFunc func(ctx context.Context, d *Driver, c *cycle) (done bool, err error)

// actionHandlers is the closed set of actions the driver knows how to execute.
var actionHandlers = map[agent.Action]actionFunc{
	agent.ActionProceed:    proceed,
	agent.ActionModify:     modify,
	agent.ActionRegenerate: regenerate,
}

// proceed accepts the current version as is.
func proceed(_ context.Context, d *Driver, c *cycle) (bool, error) {
	d.presenter.Success("accepted version %d of %s", c.version, c.relPath)
	return true, nil
}

// modify asks for a corrected version of the current code.
func modify(ctx context.Context, d *Driver, c *cycle) (bool, error) {
	code, err := d.gen.Modify(ctx, c.task, c.current)
	if err != nil {
		return false, err
	}
	return false, d.commit(ctx, c, framework.PostProcess(code), agent.ActionModify)
}

// regenerate starts over from the original file content.
func regenerate(ctx context.Context, d *Driver, c *cycle) (bool, error) {
	code, err := d.gen.Generate(ctx, c.task, c.original)
	if err != nil {
		return false, err
	}
	return false, d.commit(ctx, c, framework.PostProcess(code), agent.ActionRegenerate)
}

// #endregion

// #region handler-check

func handlersFor(actions []agent.Action) (map[agent.Action]actionFunc, error) {
	out := make(map[agent.Action]actionFunc, len(actions))
	for _, a := range actions {
		h, ok := actionHandlers[a]
		if !ok {
			return nil, fmt.Errorf("%w: no handler for action %q", agent.ErrInvalidConfiguration, a)
		}
		out[a] = h
	}
	return out, nil
}

// #endregion
