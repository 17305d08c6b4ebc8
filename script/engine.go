// Package script hosts Lua scripts that register action handlers.
//
// A script sees three globals:
//
//	register(action, [opts], fn) -- bind fn as a handler for action
//	dispatch(action, [payload])  -- fire-and-forget dispatch
//	log(level, msg)              -- write to the engine's logger
//
// Handler functions receive (payload, pc), where pc is a table exposing
// the pipeline controller: pc.abort(reason), pc.halt(value),
// pc.set_result(value), pc.set_payload(value), pc.payload(),
// pc.jump(priority). A non-nil return value from the handler becomes its
// result.
//
// The opts table accepts id, priority, tags, category, once,
// non_blocking, debounce_ms, throttle_ms, and condition (a function of
// the payload).
//
// A Lua state is not safe for concurrent use, so each Engine serializes
// every script entry through one mutex. Scripted handlers therefore run
// one at a time per engine regardless of the dispatch execution mode.
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/actionkit"
	"github.com/dshills/actionkit/logging"
	"github.com/dshills/actionkit/pipeline"
)

// ErrEngineClosed is returned when using a closed engine.
var ErrEngineClosed = errors.New("script engine closed")

// Engine runs Lua scripts against one ActionRegister.
type Engine struct {
	register *actionkit.ActionRegister
	logger   logging.Logger

	mu     sync.Mutex
	state  *lua.LState
	closed bool
	unregs []actionkit.UnregisterFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an Engine bound to the given register.
func NewEngine(register *actionkit.ActionRegister, opts ...EngineOption) *Engine {
	e := &Engine{
		register: register,
		logger:   logging.NoOpLogger{},
		state:    lua.NewState(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.installAPI()
	return e
}

// LoadString executes Lua source. Handlers the script registers stay
// bound until the engine is closed or they unregister themselves.
func (e *Engine) LoadString(src string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if err := e.state.DoString(src); err != nil {
		return fmt.Errorf("running script: %w", err)
	}
	return nil
}

// LoadFile executes a Lua script file.
func (e *Engine) LoadFile(path string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrEngineClosed
	}
	if err := e.state.DoFile(path); err != nil {
		return fmt.Errorf("running script %s: %w", path, err)
	}
	return nil
}

// HandlerCount returns the number of live handlers registered by this
// engine's scripts.
func (e *Engine) HandlerCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.unregs)
}

// Close unregisters every scripted handler and closes the Lua state.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	for _, unreg := range e.unregs {
		unreg()
	}
	e.unregs = nil
	e.state.Close()
	return nil
}

// installAPI defines the register, dispatch, and log globals.
func (e *Engine) installAPI() {
	L := e.state
	L.SetGlobal("register", L.NewFunction(e.luaRegister))
	L.SetGlobal("dispatch", L.NewFunction(e.luaDispatch))
	L.SetGlobal("log", L.NewFunction(e.luaLog))
}

// luaRegister implements register(action, [opts], fn).
func (e *Engine) luaRegister(L *lua.LState) int {
	action := L.CheckString(1)

	var opts *lua.LTable
	var fn *lua.LFunction
	switch L.GetTop() {
	case 2:
		fn = L.CheckFunction(2)
	default:
		opts = L.CheckTable(2)
		fn = L.CheckFunction(3)
	}

	cfg := &actionkit.HandlerConfig{}
	if opts != nil {
		if id, ok := tableString(opts, "id"); ok {
			cfg.ID = id
		}
		if p, ok := tableInt(opts, "priority"); ok {
			cfg.Priority = p
		}
		cfg.Tags = tableStrings(opts, "tags")
		if cat, ok := tableString(opts, "category"); ok {
			cfg.Category = cat
		}
		if once, ok := tableBool(opts, "once"); ok {
			cfg.Once = once
		}
		if nb, ok := tableBool(opts, "non_blocking"); ok {
			cfg.NonBlocking = nb
		}
		if ms, ok := tableInt(opts, "debounce_ms"); ok {
			cfg.Debounce = time.Duration(ms) * time.Millisecond
		}
		if ms, ok := tableInt(opts, "throttle_ms"); ok {
			cfg.Throttle = time.Duration(ms) * time.Millisecond
		}
		if cond, ok := opts.RawGetString("condition").(*lua.LFunction); ok {
			cfg.Condition = e.luaCondition(cond)
		}
	}

	unreg, err := e.register.Register(action, e.luaHandler(fn), cfg)
	if err != nil {
		L.RaiseError("register %s: %s", action, err.Error())
		return 0
	}
	// Already under e.mu: scripts only run via LoadString/LoadFile or a
	// handler call.
	e.unregs = append(e.unregs, unreg)
	return 0
}

// luaDispatch implements dispatch(action, [payload]). The dispatch runs
// detached; a synchronous dispatch from inside a script would deadlock
// against the engine's own handlers.
func (e *Engine) luaDispatch(L *lua.LState) int {
	action := L.CheckString(1)
	var payload any
	if L.GetTop() >= 2 {
		payload = toGo(L.Get(2))
	}

	go func() {
		if err := e.register.Dispatch(context.Background(), action, payload); err != nil {
			e.logger.Error("scripted dispatch failed", "action", action, "error", err)
		}
	}()
	return 0
}

// luaLog implements log(level, msg).
func (e *Engine) luaLog(L *lua.LState) int {
	level := L.CheckString(1)
	msg := L.CheckString(2)

	switch level {
	case "debug":
		e.logger.Debug(msg, "source", "script")
	case "warn":
		e.logger.Warn(msg, "source", "script")
	case "error":
		e.logger.Error(msg, "source", "script")
	default:
		e.logger.Info(msg, "source", "script")
	}
	return 0
}

// luaHandler wraps a Lua function as a HandlerFunc.
func (e *Engine) luaHandler(fn *lua.LFunction) actionkit.HandlerFunc {
	return func(_ context.Context, payload any, pc *pipeline.Controller) (any, error) {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.closed {
			return nil, ErrEngineClosed
		}

		L := e.state
		top := L.GetTop()
		L.Push(fn)
		L.Push(toLua(L, payload))
		L.Push(e.controllerTable(L, pc))
		if err := L.PCall(2, lua.MultRet, nil); err != nil {
			return nil, fmt.Errorf("lua handler: %w", err)
		}

		var out any
		if L.GetTop() > top {
			out = toGo(L.Get(top + 1))
		}
		L.SetTop(top)
		return out, nil
	}
}

// luaCondition wraps a Lua function as a handler condition. A falsy or
// failing condition skips the handler.
func (e *Engine) luaCondition(fn *lua.LFunction) func(payload any) bool {
	return func(payload any) bool {
		e.mu.Lock()
		defer e.mu.Unlock()

		if e.closed {
			return false
		}

		L := e.state
		top := L.GetTop()
		L.Push(fn)
		L.Push(toLua(L, payload))
		if err := L.PCall(1, 1, nil); err != nil {
			e.logger.Error("condition script failed", "error", err)
			L.SetTop(top)
			return false
		}
		allow := lua.LVAsBool(L.Get(top + 1))
		L.SetTop(top)
		return allow
	}
}

// controllerTable exposes the pipeline controller to a handler call.
func (e *Engine) controllerTable(L *lua.LState, pc *pipeline.Controller) *lua.LTable {
	t := L.NewTable()
	info := pc.Info()
	t.RawSetString("action", lua.LString(info.Action))
	t.RawSetString("dispatch_id", lua.LString(info.DispatchID))

	t.RawSetString("abort", L.NewFunction(func(L *lua.LState) int {
		pc.Abort(L.OptString(1, "aborted"))
		return 0
	}))
	t.RawSetString("halt", L.NewFunction(func(L *lua.LState) int {
		var v any
		if L.GetTop() >= 1 {
			v = toGo(L.Get(1))
		}
		pc.Return(v)
		return 0
	}))
	t.RawSetString("set_result", L.NewFunction(func(L *lua.LState) int {
		pc.SetResult(toGo(L.Get(1)))
		return 0
	}))
	t.RawSetString("set_payload", L.NewFunction(func(L *lua.LState) int {
		v := toGo(L.Get(1))
		pc.ModifyPayload(func(any) any { return v })
		return 0
	}))
	t.RawSetString("payload", L.NewFunction(func(L *lua.LState) int {
		L.Push(toLua(L, pc.Payload()))
		return 1
	}))
	t.RawSetString("jump", L.NewFunction(func(L *lua.LState) int {
		pc.JumpToPriority(L.CheckInt(1))
		return 0
	}))
	return t
}
