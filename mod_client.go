package plume

import (
	"github.com/go-gl/glfw/v3.3/glfw"
)

// ClientModule opens the window and brings up the GPU device. Install it
// before ParticleRendererModule so the render systems find their resources.
type ClientModule struct {
	WindowWidth  int
	WindowHeight int
	WindowTitle  string
}

func (mod ClientModule) Install(app *App, cmd *Commands) {
	width := mod.WindowWidth
	if width <= 0 {
		width = 1280
	}
	height := mod.WindowHeight
	if height <= 0 {
		height = 720
	}
	title := mod.WindowTitle
	if title == "" {
		title = "plume"
	}

	windowState := createWindowState(width, height, title)
	gpuState := createGpuState(windowState)

	app.UseSystem(
		System(windowEventsSystem).
			InStage(PreUpdate).
			RunAlways(),
	)

	cmd.AddResources(
		windowState,
		gpuState,
	)
}

func windowEventsSystem(state *WindowState, cmd *Commands) {
	glfw.PollEvents()
	if state.windowGlfw.ShouldClose() {
		cmd.Quit()
	}
}
