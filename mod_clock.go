package plume

import (
	"time"
)

// ParticleClock accumulates elapsed seconds for the particle shaders' time
// uniform. In Auto mode it re-arms itself once per frame; in Manual mode the
// caller decides when Tick runs. Ticking itself behaves the same in both
// modes, the mode only controls whether the next tick is self-scheduled.
type ParticleClock struct {
	Elapsed float64
	Delta   float64

	auto        bool
	pending     bool
	previous    time.Time
	hasPrevious bool
}

func NewParticleClock() *ParticleClock {
	return &ParticleClock{}
}

func (c *ParticleClock) Tick() {
	c.TickAt(time.Now())
}

// TickAt advances the clock to now. The first tick after construction, Reset
// or entering Auto mode contributes a zero delta.
func (c *ParticleClock) TickAt(now time.Time) {
	dt := 0.0
	if c.hasPrevious {
		dt = now.Sub(c.previous).Seconds()
		if dt < 0 {
			// Elapsed never runs backwards even if the host clock does.
			dt = 0
		}
	}
	c.Elapsed += dt
	c.Delta = dt
	c.previous = now
	c.hasPrevious = true
	if c.auto {
		c.pending = true
	}
}

// SetAutoUpdate switches between self-scheduled and caller-driven ticking.
// Enabling schedules one tick and drops the previous timestamp. Disabling
// does not cancel a tick that is already scheduled, so at most one more
// accumulation can land after the switch.
func (c *ParticleClock) SetAutoUpdate(enabled bool) {
	if enabled && !c.auto {
		c.pending = true
		c.hasPrevious = false
	}
	c.auto = enabled
}

func (c *ParticleClock) AutoUpdate() bool {
	return c.auto
}

// Reset zeroes the accumulated time and drops the previous timestamp.
func (c *ParticleClock) Reset() {
	c.Elapsed = 0
	c.Delta = 0
	c.hasPrevious = false
}

func clockSystem(clock *ParticleClock) {
	if !clock.pending {
		return
	}
	clock.pending = false
	clock.Tick()
}

type ClockModule struct {
	AutoUpdate bool
}

func (m ClockModule) Install(app *App, cmd *Commands) {
	clock := NewParticleClock()
	clock.SetAutoUpdate(m.AutoUpdate)

	cmd.AddResources(clock)

	app.UseSystem(System(clockSystem).InStage(Prelude).RunAlways())
}
