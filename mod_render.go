package plume

import (
	"fmt"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera drives the view and projection shared by every particle group.
type Camera struct {
	Position mgl32.Vec3
	LookAt   mgl32.Vec3
	Up       mgl32.Vec3
	Fov      float32 // radians
	Near     float32
	Far      float32
}

// particleUniforms mirrors the Globals struct of the built-in shaders.
// 96 bytes, vec3s padded to 16.
type particleUniforms struct {
	ViewProj    mgl32.Mat4
	CameraRight mgl32.Vec3
	Time        float32
	CameraUp    mgl32.Vec3
	Pad0        float32
}

type groupRenderData struct {
	pipeline         *wgpu.RenderPipeline
	bindGroup        *wgpu.BindGroup
	attributeBuffers map[string]*wgpu.Buffer
	indexBuffer      *wgpu.Buffer
	indexCount       uint32
	// non-empty attribute count the pipeline was built against
	layoutSize int
}

func (d *groupRenderData) release() {
	for _, buffer := range d.attributeBuffers {
		buffer.Release()
	}
	if d.indexBuffer != nil {
		d.indexBuffer.Release()
	}
	if d.bindGroup != nil {
		d.bindGroup.Release()
	}
	if d.pipeline != nil {
		d.pipeline.Release()
	}
}

type overlayRenderData struct {
	text           *TextOverlay
	pipeline       *wgpu.RenderPipeline
	bindGroup      *wgpu.BindGroup
	atlasView      *wgpu.TextureView
	sampler        *wgpu.Sampler
	vertexBuffer   *wgpu.Buffer
	vertexCapacity uint64
	vertexCount    uint32
}

type particleRenderState struct {
	groups        map[GroupId]*groupRenderData
	uniforms      particleUniforms
	uniformBuffer *wgpu.Buffer

	overlay *overlayRenderData

	lastRenderTime float64
	frameCount     int
	fpsTime        float64
	fps            float64
}

// ParticleRendererModule draws every group of the GroupServer, one instanced
// indexed draw per group. The group's active count is the instance count, so
// emitter attach and remove are reflected without touching index data.
// Requires ClientModule, GroupServerModule, AssetServerModule and ClockModule.
type ParticleRendererModule struct {
	// ShowStats draws a live counter overlay when FontPath names a readable
	// TTF file. A missing font logs a warning and disables the overlay.
	ShowStats bool
	FontPath  string
	FontSize  float64
}

func (mod ParticleRendererModule) Install(app *App, cmd *Commands) {
	rState := &particleRenderState{
		groups: map[GroupId]*groupRenderData{},
	}

	if mod.ShowStats && mod.FontPath != "" {
		fontSize := mod.FontSize
		if fontSize <= 0 {
			fontSize = 18
		}
		text, err := NewTextOverlay(mod.FontPath, fontSize)
		if err != nil {
			app.Logger().Warnf("stats overlay disabled: %v", err)
		} else {
			rState.overlay = &overlayRenderData{text: text}
		}
	}

	app.UseSystem(
		System(updateParticleUniforms).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(createGroupPipelines).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(createGroupBuffers).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(createGroupBindGroups).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(uploadParticleData).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(particleRendering).
			InStage(Render).
			RunAlways(),
	)

	cmd.AddResources(
		&Camera{
			Position: mgl32.Vec3{0, 2, 8},
			LookAt:   mgl32.Vec3{0, 0, 0},
			Up:       mgl32.Vec3{0, 1, 0},
			Fov:      mgl32.DegToRad(60),
			Near:     0.1,
			Far:      1000,
		},
		rState,
	)
}

func buildCameraMatrix(camera *Camera, aspect float32) (mgl32.Mat4, mgl32.Mat4) {
	view := mgl32.LookAtV(camera.Position, camera.LookAt, camera.Up)
	projection := mgl32.Perspective(camera.Fov, aspect, camera.Near, camera.Far)
	return view, projection
}

func updateParticleUniforms(camera *Camera, clock *ParticleClock, windowState *WindowState, rState *particleRenderState) {
	aspect := float32(windowState.WindowWidth) / float32(windowState.WindowHeight)
	view, projection := buildCameraMatrix(camera, aspect)

	rState.uniforms.ViewProj = projection.Mul4(view)
	// rows of the view matrix are the camera axes in world space
	rState.uniforms.CameraRight = view.Row(0).Vec3()
	rState.uniforms.CameraUp = view.Row(1).Vec3()
	rState.uniforms.Time = float32(clock.Elapsed)
}

func createGroupPipelines(groups *GroupServer, assets *AssetServer, gpuState *GpuState, rState *particleRenderState) {
	for _, g := range groups.Groups() {
		data, ok := rState.groups[g.Id()]
		if !ok {
			data = &groupRenderData{attributeBuffers: map[string]*wgpu.Buffer{}}
			rState.groups[g.Id()] = data
		}

		layouts := buildVertexBufferLayouts(g)
		if data.pipeline != nil && data.layoutSize != len(layouts) {
			// an attribute was declared after the pipeline was built
			data.pipeline.Release()
			data.pipeline = nil
			if data.bindGroup != nil {
				data.bindGroup.Release()
				data.bindGroup = nil
			}
		}
		if nil == data.pipeline && len(layouts) > 0 {
			material := materialFor(g, assets)
			data.pipeline = createParticlePipeline(fmt.Sprintf("group %s", g.Id()), material, layouts, gpuState)
			data.layoutSize = len(layouts)
		}
	}

	for id, data := range rState.groups {
		if _, ok := groups.Get(id); ok {
			continue
		}
		data.release()
		delete(rState.groups, id)
	}
}

func materialFor(g *Group, assets *AssetServer) MaterialAsset {
	if id, ok := g.MaterialId(); ok {
		if asset, ok := assets.materials[id]; ok {
			return asset
		}
	}
	return MaterialAsset{
		name:           "plume-default",
		vertexSource:   defaultVertexShader,
		fragmentSource: defaultFragmentShader,
		settings:       map[string]any{"blending": "additive"},
	}
}

func createGroupBuffers(groups *GroupServer, gpuState *GpuState, rState *particleRenderState) {
	if nil == rState.uniformBuffer {
		rState.uniformBuffer = createUniformBuffer("particle globals", uint64(unsafe.Sizeof(particleUniforms{})), gpuState)
	}

	for _, g := range groups.Groups() {
		data, ok := rState.groups[g.Id()]
		if !ok {
			continue
		}

		g.attributes.each(func(attr *Attribute) {
			if len(attr.Data) == 0 {
				return
			}
			if _, ok := data.attributeBuffers[attr.Name]; ok {
				return
			}
			data.attributeBuffers[attr.Name] = createFloatBuffer(attr.Name, attr.Data, gpuState)
			// the init upload carries the current content
			attr.Dirty = false
		})

		if nil == data.indexBuffer && len(g.TemplateIndices()) > 0 {
			data.indexBuffer = createIndexBuffer("template indices", g.TemplateIndices(), gpuState)
			data.indexCount = uint32(len(g.TemplateIndices()))
		}
	}
}

func createGroupBindGroups(gpuState *GpuState, rState *particleRenderState) {
	for _, data := range rState.groups {
		if data.bindGroup != nil || nil == data.pipeline || nil == rState.uniformBuffer {
			continue
		}
		layout := data.pipeline.GetBindGroupLayout(0)
		bindGroup, err := gpuState.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{
					Binding: 0,
					Buffer:  rState.uniformBuffer,
					Size:    wgpu.WholeSize,
				},
			},
		})
		layout.Release()
		if err != nil {
			panic(err)
		}
		data.bindGroup = bindGroup
	}

	overlay := rState.overlay
	if overlay != nil && nil == overlay.pipeline {
		overlay.atlasView = createAtlasTexture(overlay.text.AtlasImage, gpuState)
		overlay.sampler = createLinearSampler(gpuState)
		overlay.pipeline = createOverlayPipeline(gpuState)

		layout := overlay.pipeline.GetBindGroupLayout(0)
		bindGroup, err := gpuState.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Layout: layout,
			Entries: []wgpu.BindGroupEntry{
				{
					Binding:     0,
					TextureView: overlay.atlasView,
					Size:        wgpu.WholeSize,
				},
				{
					Binding: 1,
					Sampler: overlay.sampler,
					Size:    wgpu.WholeSize,
				},
			},
		})
		layout.Release()
		if err != nil {
			panic(err)
		}
		overlay.bindGroup = bindGroup
	}
}

// uploadParticleData pushes the frame uniforms, every dirty attribute buffer
// and the overlay vertices to the queue. Dirty flags are cleared here, after
// the upload consumed them.
func uploadParticleData(groups *GroupServer, gpuState *GpuState, windowState *WindowState, rState *particleRenderState) {
	if rState.uniformBuffer != nil {
		u := rState.uniforms
		err := gpuState.queue.WriteBuffer(rState.uniformBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&u)), unsafe.Sizeof(u)))
		if err != nil {
			panic(err)
		}
	}

	for _, g := range groups.Groups() {
		data, ok := rState.groups[g.Id()]
		if !ok {
			continue
		}
		g.attributes.each(func(attr *Attribute) {
			if !attr.Dirty {
				return
			}
			buffer, ok := data.attributeBuffers[attr.Name]
			if !ok {
				return
			}
			err := gpuState.queue.WriteBuffer(buffer, 0, wgpu.ToBytes(attr.Data))
			if err != nil {
				panic(err)
			}
			attr.Dirty = false
		})
	}

	updateOverlayVertices(groups, gpuState, windowState, rState)
}

func updateOverlayVertices(groups *GroupServer, gpuState *GpuState, windowState *WindowState, rState *particleRenderState) {
	overlay := rState.overlay
	if nil == overlay || nil == overlay.pipeline {
		return
	}

	active, capacity := 0, 0
	for _, g := range groups.Groups() {
		active += g.ActiveParticles()
		capacity += g.MaxParticles()
	}

	items := []TextItem{
		{
			Text:     fmt.Sprintf("fps %.0f\ngroups %d\nparticles %d / %d", rState.fps, groups.Count(), active, capacity),
			Position: [2]float32{8, 8},
			Scale:    1,
			Color:    [4]float32{1, 1, 1, 0.9},
		},
	}

	vertices := overlay.text.BuildVertices(items, windowState.WindowWidth, windowState.WindowHeight)
	overlay.vertexCount = uint32(len(vertices))
	if len(vertices) == 0 {
		return
	}

	vSize := uint64(len(vertices)) * uint64(unsafe.Sizeof(TextVertex{}))
	if nil == overlay.vertexBuffer || overlay.vertexCapacity < vSize {
		if overlay.vertexBuffer != nil {
			overlay.vertexBuffer.Release()
		}
		buffer, err := gpuState.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Overlay VB",
			Size:  vSize,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			panic(err)
		}
		overlay.vertexBuffer = buffer
		overlay.vertexCapacity = vSize
	}

	err := gpuState.queue.WriteBuffer(overlay.vertexBuffer, 0, unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), vSize))
	if err != nil {
		panic(err)
	}
}

func particleRendering(groups *GroupServer, gpuState *GpuState, rState *particleRenderState) {
	nextTexture, err := gpuState.surface.GetCurrentTexture()
	if err != nil {
		panic(err)
	}
	view, err := nextTexture.CreateView(nil)
	if err != nil {
		panic(err)
	}
	defer view.Release()

	encoder, err := gpuState.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(err)
	}
	defer encoder.Release()

	renderPass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0.02, G: 0.02, B: 0.05, A: 1.0},
			},
		},
	})
	defer renderPass.Release()

	for _, g := range groups.Groups() {
		data, ok := rState.groups[g.Id()]
		if !ok || nil == data.pipeline || nil == data.bindGroup || nil == data.indexBuffer {
			continue
		}
		instanceCount := uint32(g.ActiveParticles())
		if instanceCount == 0 || data.indexCount == 0 {
			continue
		}

		renderPass.SetPipeline(data.pipeline)
		renderPass.SetBindGroup(0, data.bindGroup, nil)

		slot := uint32(0)
		g.attributes.each(func(attr *Attribute) {
			if len(attr.Data) == 0 {
				return
			}
			if buffer, ok := data.attributeBuffers[attr.Name]; ok {
				renderPass.SetVertexBuffer(slot, buffer, 0, wgpu.WholeSize)
			}
			slot++
		})

		renderPass.SetIndexBuffer(data.indexBuffer, wgpu.IndexFormatUint16, 0, wgpu.WholeSize)
		renderPass.DrawIndexed(data.indexCount, instanceCount, 0, 0, 0)
	}

	drawOverlay(renderPass, rState)

	err = renderPass.End()
	if err != nil {
		panic(err)
	}

	cmdBuffer, err := encoder.Finish(nil)
	if err != nil {
		panic(err)
	}
	defer cmdBuffer.Release()

	gpuState.queue.Submit(cmdBuffer)
	gpuState.surface.Present()

	updateFps(rState)
}

func drawOverlay(renderPass *wgpu.RenderPassEncoder, rState *particleRenderState) {
	overlay := rState.overlay
	if nil == overlay || nil == overlay.pipeline || nil == overlay.bindGroup || nil == overlay.vertexBuffer {
		return
	}
	if overlay.vertexCount == 0 {
		return
	}

	renderPass.SetPipeline(overlay.pipeline)
	renderPass.SetBindGroup(0, overlay.bindGroup, nil)
	renderPass.SetVertexBuffer(0, overlay.vertexBuffer, 0, wgpu.WholeSize)
	renderPass.Draw(overlay.vertexCount, 1, 0, 0)
}

func updateFps(rState *particleRenderState) {
	now := glfw.GetTime()
	if rState.lastRenderTime > 0 {
		rState.frameCount++
		rState.fpsTime += now - rState.lastRenderTime
		if rState.fpsTime >= 1.0 {
			rState.fps = float64(rState.frameCount) / rState.fpsTime
			rState.frameCount = 0
			rState.fpsTime = 0
		}
	}
	rState.lastRenderTime = now
}
