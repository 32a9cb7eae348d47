package plume

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_addResources(t *testing.T) {
	app := NewApp()

	// Add a resource
	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1) // Try adding resource1 again, should panic
	})

	// Add a resource
	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
}

func TestApp_callSystem_injectsResources(t *testing.T) {
	app := NewApp()
	app.addResources(NewMockResource1("one"))

	var got string
	app.callSystem(func(r *MockResource1) {
		got = r.name
	})

	assert.Equal(t, "one", got, "The system should receive the registered resource.")
}

func TestApp_callSystem_injectsCommands(t *testing.T) {
	app := NewApp()

	ran := false
	app.callSystem(func(cmd *Commands) {
		ran = true
		cmd.Quit()
	})

	require.True(t, ran, "The system should run.")
	assert.True(t, app.quit, "Commands should act on the owning app.")
}

func TestApp_callSystem_missingDependencyPanics(t *testing.T) {
	app := NewApp()

	require.Panics(t, func() {
		app.callSystem(func(r *MockResource2) {})
	})
}

func TestApp_stageOrder(t *testing.T) {
	app := NewApp()

	var order []string
	app.UseSystem(System(func(r *MockResource1) { order = append(order, "render") }).InStage(Render).RunAlways())
	app.UseSystem(System(func(r *MockResource1) { order = append(order, "update") }).InStage(Update).RunAlways())
	app.UseSystem(System(func(r *MockResource1) { order = append(order, "prelude") }).InStage(Prelude).RunAlways())
	app.addResources(NewMockResource1("x"))

	app.step()

	assert.Equal(t, []string{"prelude", "update", "render"}, order, "Systems run in stage order, not registration order.")
}

func TestApp_UseStage(t *testing.T) {
	app := NewApp()
	warmup := Stage{Name: "Warmup", UpdateType: DynamicUpdate}
	app.UseStage(warmup, BeforeStage(Update))

	var order []string
	app.UseSystem(System(func() { order = append(order, "update") }).InStage(Update).RunAlways())
	app.UseSystem(System(func() { order = append(order, "warmup") }).InStage(warmup).RunAlways())

	app.step()

	assert.Equal(t, []string{"warmup", "update"}, order)

	require.Panics(t, func() {
		app.UseStage(Stage{Name: "Orphan"}, AfterStage(Stage{Name: "Missing"}))
	})
	require.Panics(t, func() {
		app.UseSystem(System(func() {}).InStage(Stage{Name: "Missing"}))
	})
}

func TestApp_FlushCommands_removesEmitters(t *testing.T) {
	app := NewApp()
	g := NewGroup(10)
	require.NoError(t, g.Declare("v", 1, PerEmitter))
	em := g.AddEmitter(4)

	cmd := app.Commands()
	cmd.RemoveEmitter(em)

	// queued, not applied yet: views stay valid for the rest of the stage
	assert.True(t, em.Attached(), "Removal is deferred to the stage boundary.")

	app.FlushCommands()

	assert.False(t, em.Attached(), "The flush should apply the removal.")
	assert.Empty(t, app.pendingRemovals, "The queue should be drained.")

	// flushing twice is harmless
	app.FlushCommands()
}

func TestApp_stepFlushesEveryStage(t *testing.T) {
	app := NewApp()
	g := NewGroup(10)
	require.NoError(t, g.Declare("v", 1, PerEmitter))
	em := g.AddEmitter(4)

	var attachedDuringUpdate, attachedDuringPostUpdate bool
	app.UseSystem(System(func(cmd *Commands) {
		cmd.RemoveEmitter(em)
		attachedDuringUpdate = em.Attached()
	}).InStage(Update).RunAlways())
	app.UseSystem(System(func() {
		attachedDuringPostUpdate = em.Attached()
	}).InStage(PostUpdate).RunAlways())

	app.step()

	assert.True(t, attachedDuringUpdate, "Within the stage the emitter is still attached.")
	assert.False(t, attachedDuringPostUpdate, "The next stage sees the removal applied.")
}

func TestApp_RunStopsOnQuit(t *testing.T) {
	app := NewApp()

	frames := 0
	app.UseSystem(System(func(cmd *Commands) {
		frames++
		if frames == 3 {
			cmd.Quit()
		}
	}).InStage(Update).RunAlways())

	app.Run()

	assert.Equal(t, 3, frames, "Run should stop after the quitting frame.")
}

func TestApp_Logger(t *testing.T) {
	app := NewApp()
	assert.NotNil(t, app.Logger(), "Without a logging module a no-op logger is returned.")

	app.UseModules(LoggingModule{Prefix: "test"})
	logger := app.Logger()
	require.NotNil(t, logger)
	_, ok := logger.(*DefaultLogger)
	assert.True(t, ok, "With the logging module installed the default logger is returned.")
}
