package model

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is the player's position and facing.
// Horizontal plane is X/Z, Y is up; +X is to the right when facing +Z.
type Pose struct {
	Position mgl64.Vec3
	Facing   mgl64.Vec3
}

// Right returns the horizontal unit vector to the right of the facing.
// Zero when the facing has no horizontal component.
func (p Pose) Right() mgl64.Vec3 {
	f := Flatten(p.Facing)
	if f.Len() == 0 {
		return mgl64.Vec3{}
	}
	f = f.Normalize()
	return mgl64.Vec3{f.Z(), 0, -f.X()}
}

// Forward returns the normalized horizontal facing (zero if degenerate).
func (p Pose) Forward() mgl64.Vec3 {
	f := Flatten(p.Facing)
	if f.Len() == 0 {
		return mgl64.Vec3{}
	}
	return f.Normalize()
}

// Flatten projects v onto the horizontal X/Z plane.
func Flatten(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

// Bearing returns the signed horizontal angle (radians, in (-π, π]) from facing to toTarget.
// 0 is straight ahead, positive is to the right. Degenerate vectors give 0.
func Bearing(facing, toTarget mgl64.Vec3) float64 {
	fx, fz := facing.X(), facing.Z()
	tx, tz := toTarget.X(), toTarget.Z()
	if (fx == 0 && fz == 0) || (tx == 0 && tz == 0) {
		return 0
	}
	cross := fz*tx - fx*tz
	dot := fx*tx + fz*tz
	return math.Atan2(cross, dot)
}

// Heading returns the world-frame heading of dir: 0 along +Z, positive toward +X.
func Heading(dir mgl64.Vec3) float64 {
	return Bearing(mgl64.Vec3{0, 0, 1}, dir)
}

// RelativeBearing converts a world heading into a bearing relative to facing.
func RelativeBearing(facing mgl64.Vec3, heading float64) float64 {
	return NormalizeAngle(heading - Heading(facing))
}

// NormalizeAngle wraps a into (-π, π].
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// Pan maps a bearing to a stereo pan in [-1, 1]: ahead 0, full left -1, full right +1.
// Bearings beyond ±90° clamp to the side.
func Pan(bearing float64) float64 {
	p := bearing / (math.Pi / 2)
	return math.Max(-1, math.Min(1, p))
}
