package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	lua "github.com/yuin/gopher-lua"
	"golang.org/x/time/rate"

	"github.com/udisondev/wayfinder/internal/config"
)

// Falloff maps a distance to a gain in [0, 1].
// Gain is 1 at or inside the near range and 0 at or beyond the far range.
type Falloff interface {
	Gain(distance float64) float64
}

// NewFalloff builds the curve configured for a category.
func NewFalloff(cc config.CategoryConfig) (Falloff, error) {
	switch cc.Falloff {
	case config.FalloffLinear, "":
		return LinearFalloff{Near: cc.NearRange, Far: cc.MaxRange}, nil
	case config.FalloffInverse:
		return InverseFalloff{Near: cc.NearRange, Far: cc.MaxRange}, nil
	case config.FalloffScript:
		return NewScriptFalloff(cc.FalloffScript, cc.NearRange, cc.MaxRange)
	default:
		return nil, fmt.Errorf("unknown falloff %q", cc.Falloff)
	}
}

// edge handles the shared range boundaries. ok=false means the curve applies.
func edge(d, near, far float64) (gain float64, ok bool) {
	switch {
	case math.IsNaN(d) || d >= far:
		return 0, true
	case d <= near:
		return 1, true
	}
	return 0, false
}

// LinearFalloff fades linearly from Near to Far.
type LinearFalloff struct {
	Near, Far float64
}

// Gain implements Falloff.
func (f LinearFalloff) Gain(d float64) float64 {
	if g, ok := edge(d, f.Near, f.Far); ok {
		return g
	}
	return (f.Far - d) / (f.Far - f.Near)
}

// InverseFalloff follows near/d, rescaled so it reaches 0 at Far.
// A zero Near range degrades to linear.
type InverseFalloff struct {
	Near, Far float64
}

// Gain implements Falloff.
func (f InverseFalloff) Gain(d float64) float64 {
	if g, ok := edge(d, f.Near, f.Far); ok {
		return g
	}
	if f.Near <= 0 {
		return LinearFalloff(f).Gain(d)
	}
	floor := f.Near / f.Far
	return (f.Near/d - floor) / (1 - floor)
}

// ScriptFalloff evaluates a Lua function falloff(d, near, far).
// The result is clamped to [0, 1]; script errors fall back to linear.
// Single-goroutine access only (tick loop).
type ScriptFalloff struct {
	vm        *lua.LState
	fn        lua.LValue
	near, far float64
	fallback  LinearFalloff
	errLog    rate.Sometimes
}

// NewScriptFalloff compiles source, which must define a global function falloff.
func NewScriptFalloff(source string, near, far float64) (*ScriptFalloff, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: true})
	// math is the only library a curve needs
	vm.Push(vm.NewFunction(lua.OpenMath))
	vm.Push(lua.LString(lua.MathLibName))
	vm.Call(1, 0)

	if err := vm.DoString(source); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load falloff script: %w", err)
	}
	fn := vm.GetGlobal("falloff")
	if fn.Type() != lua.LTFunction {
		vm.Close()
		return nil, errors.New("falloff script must define function falloff(d, near, far)")
	}

	return &ScriptFalloff{
		vm:       vm,
		fn:       fn,
		near:     near,
		far:      far,
		fallback: LinearFalloff{Near: near, Far: far},
		errLog:   rate.Sometimes{First: 1, Interval: 30 * time.Second},
	}, nil
}

// Gain implements Falloff.
func (f *ScriptFalloff) Gain(d float64) float64 {
	if g, ok := edge(d, f.near, f.far); ok {
		return g
	}

	if err := f.vm.CallByParam(lua.P{
		Fn:      f.fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(d), lua.LNumber(f.near), lua.LNumber(f.far)); err != nil {
		f.errLog.Do(func() {
			slog.Warn("falloff script failed, using linear", "err", err)
		})
		return f.fallback.Gain(d)
	}

	ret := f.vm.Get(-1)
	f.vm.Pop(1)

	n, ok := ret.(lua.LNumber)
	if !ok || math.IsNaN(float64(n)) {
		f.errLog.Do(func() {
			slog.Warn("falloff script returned non-number, using linear", "value", ret.String())
		})
		return f.fallback.Gain(d)
	}
	return math.Max(0, math.Min(1, float64(n)))
}

// Close releases the Lua state.
func (f *ScriptFalloff) Close() error {
	f.vm.Close()
	return nil
}
