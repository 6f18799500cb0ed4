package mathx

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	assert.Equal(t, 5, Clamp(7, 0, 5))
	assert.Equal(t, 0, Clamp(-3, 5, 0))
	assert.Equal(t, time.Second, Clamp(time.Second, 0, time.Hour))
}

func TestBetween(t *testing.T) {
	assert.True(t, Between(25.0, -40.0, 125.0))
	assert.True(t, Between(-40.0, 125.0, -40.0))
	assert.False(t, Between(130.0, -40.0, 125.0))
}

func TestBetweenRejectsNaN(t *testing.T) {
	assert.False(t, Between(math.NaN(), -40.0, 125.0))
}

func TestCopySign(t *testing.T) {
	assert.Equal(t, float32(-3), CopySign(float32(3), -0.5))
	assert.Equal(t, float32(3), CopySign(float32(-3), 0))
	assert.Equal(t, -4, CopySign(4, -1))
}
