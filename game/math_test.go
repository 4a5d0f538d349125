package game

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestClampLen(t *testing.T) {
	v := ClampLen(mgl32.Vec3{0, 0, 5000}, 800)
	require.Equal(t, float32(800), v.Z())

	v = ClampLen(mgl32.Vec3{3, 4, 0}, 10)
	require.Equal(t, mgl32.Vec3{3, 4, 0}, v)

	require.Equal(t, mgl32.Vec3{}, ClampLen(mgl32.Vec3{1, 1, 1}, 0))
}

func TestSanitize(t *testing.T) {
	require.Equal(t, float32(800), Sanitize(math32.NaN(), 800))
	require.Equal(t, float32(800), Sanitize(math32.Inf(1), 800))
	require.Equal(t, float32(12), Sanitize(12, 800))

	require.Equal(t, mgl32.Vec3{}, SanitizeVec3(mgl32.Vec3{1, math32.NaN(), 0}, mgl32.Vec3{}))
}

func TestWithinTolerance(t *testing.T) {
	require.True(t, WithinTolerance(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{1.005, 2, 3}, 0.01))
	require.False(t, WithinTolerance(mgl32.Vec3{1, 2, 3}, mgl32.Vec3{1.5, 2, 3}, 0.01))
	require.False(t, WithinTolerance(mgl32.Vec3{math32.NaN(), 2, 3}, mgl32.Vec3{1, 2, 3}, 0.01))
}
