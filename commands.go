package plume

type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

// RemoveEmitter queues an emitter for removal at the next stage boundary.
// Removal compacts the group's buffers and invalidates views, so systems
// must not trigger it mid-iteration; the deferred flush keeps views stable
// for the rest of the stage.
func (cmd *Commands) RemoveEmitter(em *Emitter) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, em)
}

// Quit stops the app's run loop after the current frame.
func (cmd *Commands) Quit() {
	cmd.app.quit = true
}
