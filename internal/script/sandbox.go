package script

import (
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts Lua execution to safe operations and counts the object
// operations a run performs.
type Sandbox struct {
	L *lua.LState

	logger zerolog.Logger

	// Operation limiting
	operationLimit int64
	operationCount int64
	exceeded       atomic.Bool
}

// NewSandbox creates a new sandbox for the Lua state.
func NewSandbox(L *lua.LState, operationLimit int64, logger zerolog.Logger) *Sandbox {
	return &Sandbox{
		L:              L,
		logger:         logger,
		operationLimit: operationLimit,
	}
}

// Install removes loaders and replaces print.
func (s *Sandbox) Install() {
	dangerousFuncs := []string{
		"dofile",     // Load and execute file
		"loadfile",   // Load file as function
		"load",       // Load chunk from a function
		"loadstring", // Load string as function
		"require",    // Load modules
		"module",     // Define modules
	}

	for _, name := range dangerousFuncs {
		s.L.SetGlobal(name, lua.LNil)
	}

	s.installSafePrint()
}

// installSafePrint routes print to the logger at info level.
func (s *Sandbox) installSafePrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, 0, n)
		for i := 1; i <= n; i++ {
			parts = append(parts, L.ToStringMeta(L.Get(i)).String())
		}
		s.logger.Info().Str("source", "lua").Msg(strings.Join(parts, "\t"))
		return 0
	}))
}

// ResetOperationCount resets the operation counter for a new run.
func (s *Sandbox) ResetOperationCount() {
	atomic.StoreInt64(&s.operationCount, 0)
	s.exceeded.Store(false)
}

// OperationCount returns the number of operations in the current run.
func (s *Sandbox) OperationCount() int64 {
	return atomic.LoadInt64(&s.operationCount)
}

// IncrementOperations adds n to the count and reports whether the limit is
// now exceeded.
func (s *Sandbox) IncrementOperations(n int64) bool {
	count := atomic.AddInt64(&s.operationCount, n)
	if s.operationLimit <= 0 || count <= s.operationLimit {
		return false
	}
	s.exceeded.Store(true)
	return true
}

// LimitExceeded reports whether the current run hit the operation limit.
func (s *Sandbox) LimitExceeded() bool {
	return s.exceeded.Load()
}

// Check counts one operation and raises a Lua error when over the limit.
func (s *Sandbox) Check(L *lua.LState) {
	if s.IncrementOperations(1) {
		L.RaiseError("%s", ErrOperationLimit.Error())
	}
}
