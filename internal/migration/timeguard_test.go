package migration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimeGuard_Budget(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	g := NewTimeGuard(clock, 30*time.Second)

	assert.True(t, g.Remaining())
	clock.Advance(29 * time.Second)
	assert.True(t, g.Remaining())
	assert.Equal(t, 29*time.Second, g.Elapsed())

	clock.Advance(time.Second)
	assert.False(t, g.Remaining(), "exhausted once the budget is reached")
}

func TestTimeGuard_Unlimited(t *testing.T) {
	t.Parallel()
	clock := newFakeClock()
	g := NewTimeGuard(clock, 0)

	clock.Advance(24 * time.Hour)
	assert.True(t, g.Remaining())
	assert.Equal(t, newFakeClock().Now(), g.Start())
}
