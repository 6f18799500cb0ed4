package timex

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPeriodFromHz(t *testing.T) {
	assert.Equal(t, 10*time.Millisecond, PeriodFromHz(100))
	assert.Equal(t, time.Second, PeriodFromHz(0))
}

func TestResetTimerAfterFire(t *testing.T) {
	tm := time.NewTimer(0)
	time.Sleep(5 * time.Millisecond) // let it fire without reading C

	ResetTimer(tm, 20*time.Millisecond)
	select {
	case <-tm.C:
		t.Fatal("stale fire leaked through reset")
	case <-time.After(5 * time.Millisecond):
	}
	select {
	case <-tm.C:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timer did not fire after reset")
	}
}
