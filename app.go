package plume

import (
	"fmt"
	"reflect"
	"runtime"
)

type systemFn any

// Module installs resources and systems into an App. Modules are the unit
// of engine configuration: an app is assembled by listing modules.
type Module interface {
	Install(app *App, cmd *Commands)
}

// App drives the frame loop: an ordered list of stages, each holding the
// systems registered into it, over a set of typed resources. Everything
// runs on one goroutine; systems receive their dependencies by reflection
// from the resource map.
type App struct {
	modules   []Module
	stages    []Stage
	systems   map[string][]systemFn
	resources map[reflect.Type]any
	quit      bool

	// structural mutations of emitter arenas are deferred to stage
	// boundaries so systems never compact views they are iterating
	pendingRemovals []*Emitter
}

func NewApp() *App {
	app := &App{
		systems:   map[string][]systemFn{},
		resources: map[reflect.Type]any{},
	}
	for _, stage := range defaultStages() {
		app.stages = append(app.stages, stage)
		app.systems[stage.Name] = make([]systemFn, 0)
	}
	return app
}

// UseModules installs modules in order.
func (app *App) UseModules(modules ...Module) *App {
	for _, module := range modules {
		app.modules = append(app.modules, module)
		module.Install(app, &Commands{app: app})
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{
		app: app,
	}
}

// Run executes stages until something calls Commands.Quit, typically the
// window close system.
func (app *App) Run() {
	app.Logger().Infof("Running %d stages with %d modules", len(app.stages), len(app.modules))
	for !app.quit {
		app.step()
	}
	app.Logger().Infof("Stopped")
}

// step runs one frame: every stage in order, flushing deferred commands at
// each stage boundary.
func (app *App) step() {
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			app.callSystem(system)
		}
		app.FlushCommands()
	}
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}

		app.resources[resourceType.Elem()] = resource
	}
	return app
}

func (app *App) callSystem(system systemFn) {
	app.callSystemInternal(system)
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystemInternal(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, argIsResource := app.resources[underlyingType]; argIsResource {
			resourceVal := reflect.ValueOf(resource)
			typedResourceVal := reflect.NewAt(underlyingType, resourceVal.UnsafePointer())

			args[i] = typedResourceVal
		} else {
			msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
				runtime.FuncForPC(systemValue.Pointer()).Name(),
				fmt.Sprint(systemType),
				fmt.Sprint(argType),
			)
			println(msg)
			panic(msg)
		}
	}
	systemValue.Call(args)
}

// FlushCommands applies deferred emitter removals. Runs automatically at
// stage boundaries; safe to call manually between direct API calls.
func (app *App) FlushCommands() {
	if len(app.pendingRemovals) == 0 {
		return
	}

	for _, em := range app.pendingRemovals {
		if em != nil && em.group != nil {
			em.group.RemoveEmitter(em)
		}
	}
	app.pendingRemovals = app.pendingRemovals[:0]
}
