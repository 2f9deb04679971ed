package script

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/mutwatch/internal/mutation"
	"github.com/dshills/mutwatch/internal/object"
)

// Runner runs scripts against values wrapped by a mutation engine. All Lua
// work happens on the runner's executor goroutine. Runner methods may be
// called from any goroutine.
type Runner struct {
	engine   *mutation.Engine
	state    *State
	bridge   *Bridge
	executor *Executor
	cancel   context.CancelFunc
}

// NewRunner creates a runner whose bound values are wrapped by engine. A nil
// engine selects mutation.Default().
func NewRunner(engine *mutation.Engine, opts ...StateOption) *Runner {
	if engine == nil {
		engine = mutation.Default()
	}

	state := NewState(opts...)
	bridge := NewBridge(state.L, state.Sandbox())
	bridge.InstallGlobals(engine.IsStandIn)

	exec := NewExecutor(state.L, 0)
	ctx, cancel := context.WithCancel(context.Background())
	go exec.Run(ctx)

	return &Runner{
		engine:   engine,
		state:    state,
		bridge:   bridge,
		executor: exec,
		cancel:   cancel,
	}
}

// Bind wraps v with the runner's engine and exposes it as the Lua global
// name. It returns the value Lua sees.
func (r *Runner) Bind(ctx context.Context, name string, v object.Value) (object.Value, error) {
	wrapped := r.engine.Wrap(v)
	err := r.executor.Execute(ctx, func(L *lua.LState) error {
		L.SetGlobal(name, r.bridge.ToLua(wrapped))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "binding %s", name)
	}
	return wrapped, nil
}

// Global returns the current value of the Lua global name.
func (r *Runner) Global(ctx context.Context, name string) (object.Value, error) {
	var v object.Value
	err := r.executor.Execute(ctx, func(L *lua.LState) error {
		v = r.bridge.ToValue(L.GetGlobal(name))
		return nil
	})
	return v, err
}

// Run executes code. The run ends early when ctx ends or the state's
// execution timeout passes.
func (r *Runner) Run(ctx context.Context, code string) error {
	return r.run(ctx, "script", code)
}

// RunFile executes the Lua file at path.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	code, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "reading script")
	}
	return r.run(ctx, path, string(code))
}

func (r *Runner) run(ctx context.Context, name, code string) error {
	start := time.Now()
	err := r.executor.Execute(ctx, func(*lua.LState) error {
		return r.state.DoString(ctx, name, code)
	})

	r.state.logger.Debug().
		Str("script", name).
		Dur("elapsed", time.Since(start)).
		Int64("operations", r.state.Sandbox().OperationCount()).
		Err(err).
		Msg("script finished")
	return err
}

// Close stops the executor and releases the Lua state.
func (r *Runner) Close() error {
	r.executor.Close()
	r.cancel()
	r.executor.Wait()
	return r.state.Close()
}

// Run binds doc as the global "doc" on a fresh runner, executes code and
// closes the runner.
func Run(ctx context.Context, engine *mutation.Engine, doc object.Value, code string, opts ...StateOption) error {
	r := NewRunner(engine, opts...)
	defer r.Close()

	if _, err := r.Bind(ctx, "doc", doc); err != nil {
		return err
	}
	return r.Run(ctx, code)
}
