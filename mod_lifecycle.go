package plume

// LifecycleModule removes emitters whose lifetime has run out. Arm an
// emitter with SetLifetime; expiry is measured against the ParticleClock, so
// a paused clock keeps every emitter alive.
type LifecycleModule struct{}

type lifecycleState struct {
	lastElapsed float64
	seen        bool
}

func (mod LifecycleModule) Install(app *App, cmd *Commands) {
	app.addResources(&lifecycleState{})

	app.UseSystem(
		System(lifecycleSystem).
			InStage(PostUpdate).
			RunAlways(),
	)
}

func lifecycleSystem(state *lifecycleState, clock *ParticleClock, groups *GroupServer, cmd *Commands) {
	if !state.seen {
		// first run only primes the baseline
		state.seen = true
		state.lastElapsed = clock.Elapsed
		return
	}
	dt := float32(clock.Elapsed - state.lastElapsed)
	state.lastElapsed = clock.Elapsed
	if dt <= 0 {
		return
	}

	for _, g := range groups.Groups() {
		for _, em := range g.Emitters() {
			if !em.hasLifetime {
				continue
			}
			em.lifetime -= dt
			if em.lifetime <= 0 {
				cmd.RemoveEmitter(em)
			}
		}
	}
}
