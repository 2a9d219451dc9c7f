package flows

import (
	"context"

	"github.com/MrEthical07/goSession/session"
)

// RunLogout clears the persisted credentials and then resets the session in
// one step. It returns the session as it was before the reset. The caller
// holds Deps.Mu.
func RunLogout(ctx context.Context, deps Deps) session.Snapshot {
	prev := deps.State.Snapshot()
	deps.Store.Clear(ctx)
	deps.State.Reset()
	return prev
}
