package scripting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/driftyard/simcore/internal/world"
)

// Engine wraps a single gopher-lua VM holding the tier heuristics.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm       *lua.LState
	log      *zap.Logger
	fallback world.TierPolicy

	calls     uint64
	fallbacks uint64
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, fallback: world.DefaultTierPolicy}

	// Load core scripts first, then optional overrides
	for _, sub := range []string{"core", "world"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk in the engine's VM. Used to layer ad-hoc overrides.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

// SetFallback replaces the Go policy used when the script is missing or fails.
func (e *Engine) SetFallback(p world.TierPolicy) {
	if p == nil {
		p = world.DefaultTierPolicy
	}
	e.fallback = p
}

// AssignTier calls the Lua assign_tier function. It implements
// world.TierPolicy; any script failure falls back to the Go policy.
func (e *Engine) AssignTier(ent *world.Entity) world.Tier {
	e.calls++
	fn := e.vm.GetGlobal("assign_tier")
	if fn == lua.LNil {
		return e.useFallback(ent)
	}

	ctx := e.vm.NewTable()
	ctx.RawSetString("kind", lua.LString(ent.Kind().String()))
	ctx.RawSetString("player", lua.LBool(ent.Player))
	ctx.RawSetString("speed", lua.LNumber(math.Sqrt(ent.Vel.LenSq())))
	ctx.RawSetString("ttl", lua.LNumber(ent.TTL))
	ctx.RawSetString("owned", lua.LBool(!ent.Owner.IsZero()))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, ctx); err != nil {
		e.log.Error("lua assign_tier error", zap.Error(err))
		return e.useFallback(ent)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	tier, err := world.ParseTier(lua.LVAsString(result))
	if err != nil {
		e.log.Warn("lua assign_tier returned unknown tier",
			zap.String("kind", ent.Kind().String()),
			zap.String("result", result.String()))
		return e.useFallback(ent)
	}
	return tier
}

func (e *Engine) useFallback(ent *world.Entity) world.Tier {
	e.fallbacks++
	return e.fallback.AssignTier(ent)
}

// Calls and Fallbacks count AssignTier invocations and those the Go policy served.
func (e *Engine) Calls() uint64     { return e.calls }
func (e *Engine) Fallbacks() uint64 { return e.fallbacks }

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}

var _ world.TierPolicy = (*Engine)(nil)
