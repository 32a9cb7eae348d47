package plume

import (
	_ "embed"
)

// Built-in billboard shaders. The renderer compiles vertex and fragment
// sources into one module, so the fragment half reuses the VertexOutput
// declared by the vertex half. Attribute locations follow the group's
// declaration order: the template streams first (position, normal, uv), then
// the standard per-emitter attributes.

//go:embed shaders/particle_vs.wgsl
var defaultVertexShader string

//go:embed shaders/particle_fs.wgsl
var defaultFragmentShader string

//go:embed shaders/text_overlay.wgsl
var overlayShader string
