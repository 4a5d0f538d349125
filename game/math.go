package game

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Round32 will round a float32 to a given precision.
func Round32(val float32, precision int) float32 {
	pwr := math32.Pow(10, float32(precision))
	return math32.Round(val*pwr) / pwr
}

// RoundVec32 will round a 32-bit vector to a given precision.
func RoundVec32(v mgl32.Vec3, p int) mgl32.Vec3 {
	return mgl32.Vec3{Round32(v.X(), p), Round32(v.Y(), p), Round32(v.Z(), p)}
}

// Float32ApproxEq determines whether two floating point numbers are close enough to each other
// by a threshold of 1e-5.
func Float32ApproxEq(a, b float32) bool {
	return math32.Abs(a-b) <= 1e-5
}

// WithinTolerance reports whether every component of a and b differs by at most tolerance.
func WithinTolerance(a, b mgl32.Vec3, tolerance float32) bool {
	for i := range 3 {
		if !(math32.Abs(a[i]-b[i]) <= tolerance) {
			return false
		}
	}
	return true
}

// ClampFloat32 clamps the given value to the given range.
func ClampFloat32(num, min, max float32) float32 {
	if num < min {
		return min
	}
	return math32.Min(num, max)
}

// Finite reports whether f is neither NaN nor infinite.
func Finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

// FiniteVec3 reports whether all components of v are finite.
func FiniteVec3(v mgl32.Vec3) bool {
	return Finite(v[0]) && Finite(v[1]) && Finite(v[2])
}

// Sanitize returns def if f is NaN or infinite, and f otherwise.
func Sanitize(f, def float32) float32 {
	if !Finite(f) {
		return def
	}
	return f
}

// SanitizeVec3 returns def if any component of v is NaN or infinite.
func SanitizeVec3(v, def mgl32.Vec3) mgl32.Vec3 {
	if !FiniteVec3(v) {
		return def
	}
	return v
}

// ClampLen scales v down so that its length does not exceed max.
func ClampLen(v mgl32.Vec3, max float32) mgl32.Vec3 {
	if max <= 0 {
		return mgl32.Vec3{}
	}
	l := v.Len()
	if l <= max {
		return v
	}
	return v.Mul(max / l)
}

// AbsVec32 will return the given vector, but all the values of it are switched to their absolute values.
func AbsVec32(vec mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{math32.Abs(vec.X()), math32.Abs(vec.Y()), math32.Abs(vec.Z())}
}

// Vec3HzLen returns the horizontal length of a vector. Z is the vertical axis.
func Vec3HzLen(vec3 mgl32.Vec3) float32 {
	return math32.Sqrt(vec3.X()*vec3.X() + vec3.Y()*vec3.Y())
}
