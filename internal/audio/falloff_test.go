package audio

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/wayfinder/internal/config"
)

func TestLinearFalloff(t *testing.T) {
	f := LinearFalloff{Near: 2, Far: 20}

	assert.Equal(t, 1.0, f.Gain(0))
	assert.Equal(t, 1.0, f.Gain(2))
	assert.InDelta(t, 0.5, f.Gain(11), 1e-9)
	assert.Equal(t, 0.0, f.Gain(20))
	assert.Equal(t, 0.0, f.Gain(25))
	assert.Equal(t, 0.0, f.Gain(math.NaN()))
}

func TestInverseFalloff(t *testing.T) {
	f := InverseFalloff{Near: 2, Far: 20}

	assert.Equal(t, 1.0, f.Gain(1))
	assert.InDelta(t, (0.5-0.1)/0.9, f.Gain(4), 1e-9)
	assert.Equal(t, 0.0, f.Gain(20))

	prev := 1.0
	for d := 2.0; d <= 20; d += 0.5 {
		g := f.Gain(d)
		assert.LessOrEqual(t, g, prev, "gain must not increase with distance (d=%v)", d)
		assert.GreaterOrEqual(t, g, 0.0)
		prev = g
	}

	zeroNear := InverseFalloff{Near: 0, Far: 10}
	assert.InDelta(t, 0.5, zeroNear.Gain(5), 1e-9, "degrades to linear")
}

func TestScriptFalloff(t *testing.T) {
	f, err := NewScriptFalloff(`
function falloff(d, near, far)
  return 1 - (d - near) / (far - near)
end`, 2, 20)
	require.NoError(t, err)
	defer f.Close()

	assert.InDelta(t, 0.5, f.Gain(11), 1e-9)
	assert.Equal(t, 1.0, f.Gain(1), "near range short-circuits")
	assert.Equal(t, 0.0, f.Gain(30), "far range short-circuits")
}

func TestScriptFalloffUsesMath(t *testing.T) {
	f, err := NewScriptFalloff(`function falloff(d, near, far) return math.exp(-d / far) end`, 0, 10)
	require.NoError(t, err)
	defer f.Close()

	assert.InDelta(t, math.Exp(-0.5), f.Gain(5), 1e-9)
}

func TestScriptFalloffClamped(t *testing.T) {
	high, err := NewScriptFalloff(`function falloff(d) return 5 end`, 0, 10)
	require.NoError(t, err)
	defer high.Close()
	assert.Equal(t, 1.0, high.Gain(5))

	low, err := NewScriptFalloff(`function falloff(d) return -3 end`, 0, 10)
	require.NoError(t, err)
	defer low.Close()
	assert.Equal(t, 0.0, low.Gain(5))
}

func TestScriptFalloffRuntimeFailureFallsBack(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"error", `function falloff(d) error("boom") end`},
		{"string result", `function falloff(d) return "loud" end`},
		{"nil result", `function falloff(d) end`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewScriptFalloff(tt.source, 0, 10)
			require.NoError(t, err)
			defer f.Close()
			assert.InDelta(t, 0.5, f.Gain(5), 1e-9)
		})
	}
}

func TestScriptFalloffLoadErrors(t *testing.T) {
	_, err := NewScriptFalloff(`function falloff(`, 0, 10)
	assert.Error(t, err, "syntax error")

	_, err = NewScriptFalloff(`x = 1`, 0, 10)
	assert.Error(t, err, "missing function")

	_, err = NewScriptFalloff(`os.exit(1)`, 0, 10)
	assert.Error(t, err, "os library is not loaded")
}

func TestNewFalloff(t *testing.T) {
	cc := config.Default().Categories.NPC

	f, err := NewFalloff(cc)
	require.NoError(t, err)
	assert.IsType(t, LinearFalloff{}, f)

	cc.Falloff = config.FalloffInverse
	f, err = NewFalloff(cc)
	require.NoError(t, err)
	assert.IsType(t, InverseFalloff{}, f)

	cc.Falloff = config.FalloffScript
	cc.FalloffScript = `function falloff(d, n, f) return 0.25 end`
	f, err = NewFalloff(cc)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, f.Gain(cc.NearRange+1), 1e-9)
	f.(*ScriptFalloff).Close()

	cc.Falloff = "cubic"
	_, err = NewFalloff(cc)
	assert.Error(t, err)
}

func TestEqualPower(t *testing.T) {
	l, r := EqualPower(0)
	assert.InDelta(t, math.Sqrt2/2, l, 1e-9)
	assert.InDelta(t, math.Sqrt2/2, r, 1e-9)

	l, r = EqualPower(-1)
	assert.InDelta(t, 1.0, l, 1e-9)
	assert.InDelta(t, 0.0, r, 1e-9)

	l, r = EqualPower(2) // clamped
	assert.InDelta(t, 0.0, l, 1e-9)
	assert.InDelta(t, 1.0, r, 1e-9)

	for p := -1.0; p <= 1.0; p += 0.1 {
		l, r := EqualPower(p)
		assert.InDelta(t, 1.0, l*l+r*r, 1e-9)
	}
}
