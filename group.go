package plume

import (
	"fmt"
)

// EmitterId is a stable handle into a group's emitter arena. Ids are never
// reused within a group.
type EmitterId uint64

// Group owns a pool of flat attribute buffers shared by its emitters and
// rendered in a single instanced draw. Emitters lease contiguous ranges of
// every PerEmitter buffer in attach order; the pool is kept densely packed
// from offset 0 so the renderer's instance count stays contiguous.
//
// Groups are single-threaded: all mutation happens on the app's frame
// goroutine, and views handed out by a group alias its storage directly.
// Any removal compacts the buffers and invalidates previously obtained
// views; callers must re-fetch views afterwards.
type Group struct {
	id           GroupId
	maxParticles int
	active       int

	attributes attributeSet

	emitters    map[EmitterId]*Emitter
	order       []EmitterId
	nextEmitter EmitterId

	material    AssetId
	hasMaterial bool
	indices     []uint16

	strict bool
	log    Logger
}

// Emitter is a lease on a contiguous range of every PerEmitter attribute of
// its group, plus whole-buffer views of the Shared ones. ParticleCount is
// fixed at creation; base offsets shift left when earlier emitters are
// removed. A detached emitter keeps no views.
type Emitter struct {
	id            EmitterId
	group         *Group
	particleCount int

	views       map[string]AttributeView
	baseOffsets map[string]int
	attached    bool

	lifetime    float32
	hasLifetime bool
}

func NewGroup(maxParticles int) *Group {
	if maxParticles < 0 {
		maxParticles = 0
	}
	return &Group{
		maxParticles: maxParticles,
		attributes:   makeAttributeSet(),
		emitters:     map[EmitterId]*Emitter{},
		log:          NewNopLogger(),
	}
}

func (g *Group) Id() GroupId {
	return g.id
}

func (g *Group) MaxParticles() int {
	return g.maxParticles
}

// SetLogger replaces the group's logger. Passing nil restores the no-op one.
func (g *Group) SetLogger(l Logger) {
	if l == nil {
		l = NewNopLogger()
	}
	g.log = l
}

// SetStrict enables development diagnostics: clamps and silent no-ops are
// reported through the group's logger. The API behaves identically either way.
func (g *Group) SetStrict(on bool) {
	g.strict = on
}

// Declare registers a new attribute with room for maxParticles items.
func (g *Group) Declare(name string, itemWidth int, mode SharingMode) error {
	return g.DeclareSized(name, itemWidth, mode, g.maxParticles)
}

// DeclareSized registers a new attribute with an explicit item capacity.
// Shared template geometry typically has far fewer items than maxParticles.
// Declaring after emitters are attached is allowed, but existing emitters
// only pick the attribute up when their views are next rebuilt.
func (g *Group) DeclareSized(name string, itemWidth int, mode SharingMode, capacityItems int) error {
	if _, err := g.attributes.declare(name, itemWidth, mode, capacityItems); err != nil {
		return err
	}
	if g.strict && len(g.order) > 0 {
		g.log.Warnf("group %s: attribute %q declared with %d emitters attached, their views lag until the next layout", g.id, name, len(g.order))
	}
	return nil
}

// BufferOf returns the backing storage of a declared attribute.
func (g *Group) BufferOf(name string) ([]float32, error) {
	attr, ok := g.attributes.get(name)
	if !ok {
		return nil, fmt.Errorf("attribute %q: %w", name, ErrUnknownAttribute)
	}
	return attr.Data, nil
}

// View returns a whole-buffer view of a declared attribute, nil when unknown.
func (g *Group) View(name string) AttributeView {
	attr, ok := g.attributes.get(name)
	if !ok {
		return nil
	}
	return wholeBufferView(attr)
}

// Fill writes value across an attribute's entire buffer. Unknown names are
// silently ignored.
func (g *Group) Fill(name string, value any) {
	attr, ok := g.attributes.get(name)
	if !ok {
		if g.strict {
			g.log.Warnf("group %s: fill on unknown attribute %q ignored", g.id, name)
		}
		return
	}
	FillView(wholeBufferView(attr), value)
}

// AddEmitter creates an emitter with the given particle count and attaches
// it after all currently attached emitters.
func (g *Group) AddEmitter(particleCount int) *Emitter {
	if particleCount < 0 {
		particleCount = 0
	}
	g.nextEmitter++
	em := &Emitter{
		id:            g.nextEmitter,
		group:         g,
		particleCount: particleCount,
	}
	g.Attach(em)
	return em
}

// Attach leases buffer ranges for em at the tail of the current layout.
// Attaching an emitter that is already attached is a no-op, as is attaching
// nil or an emitter that belongs to another group. A previously removed
// emitter can be re-attached and receives fresh views.
func (g *Group) Attach(em *Emitter) {
	if em == nil || em.group != g {
		if g.strict {
			g.log.Warnf("group %s: attach of foreign emitter ignored", g.id)
		}
		return
	}
	if _, ok := g.emitters[em.id]; ok {
		return
	}
	tail := g.totalParticles()
	g.emitters[em.id] = em
	g.order = append(g.order, em.id)
	g.leaseViews(em, tail)
	em.attached = true
	g.refreshActive()
	if g.strict && tail+em.particleCount > g.maxParticles {
		g.log.Warnf("group %s: emitter %d pushes particle total to %d of max %d, visible count saturates",
			g.id, em.id, tail+em.particleCount, g.maxParticles)
	}
}

// RemoveEmitter detaches em, compacts every PerEmitter buffer over its
// range and rebuilds the surviving emitters' offsets and views. Removing
// nil, a foreign emitter or one that is already detached is a no-op.
func (g *Group) RemoveEmitter(em *Emitter) {
	if em == nil || em.group != g {
		if g.strict {
			g.log.Warnf("group %s: removal of foreign emitter ignored", g.id)
		}
		return
	}
	if _, ok := g.emitters[em.id]; !ok {
		if g.strict {
			g.log.Warnf("group %s: removal of detached emitter %d ignored", g.id, em.id)
		}
		return
	}
	g.compactAround(em)
	delete(g.emitters, em.id)
	for i, id := range g.order {
		if id == em.id {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	em.views = nil
	em.baseOffsets = nil
	em.attached = false
	g.relayout()
	g.refreshActive()
}

// ActiveParticles is the renderer-visible instance count, read once per draw.
func (g *Group) ActiveParticles() int {
	return g.active
}

// SetActiveParticles overrides the visible count, clamped to [0, maxParticles].
func (g *Group) SetActiveParticles(n int) {
	if n < 0 {
		n = 0
	}
	if n > g.maxParticles {
		n = g.maxParticles
	}
	g.active = n
}

// Emitters returns the attached emitters in layout order.
func (g *Group) Emitters() []*Emitter {
	out := make([]*Emitter, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.emitters[id])
	}
	return out
}

func (g *Group) totalParticles() int {
	total := 0
	for _, id := range g.order {
		total += g.emitters[id].particleCount
	}
	return total
}

func (g *Group) refreshActive() {
	// derived, not incremented: stays correct for over-capacity sequences
	total := g.totalParticles()
	if total > g.maxParticles {
		total = g.maxParticles
	}
	g.active = total
}

// leaseViews computes em's offsets and bounded views with its items placed
// after tailItems already laid out items.
func (g *Group) leaseViews(em *Emitter, tailItems int) {
	em.views = map[string]AttributeView{}
	em.baseOffsets = map[string]int{}
	g.attributes.each(func(attr *Attribute) {
		if attr.Mode == Shared {
			em.views[attr.Name] = wholeBufferView(attr)
			return
		}
		base := tailItems * attr.ItemWidth
		length := em.particleCount * attr.ItemWidth
		em.baseOffsets[attr.Name] = base
		offset := base
		if offset > len(attr.Data) {
			offset = len(attr.Data)
		}
		if offset+length > len(attr.Data) {
			// truncate to fit rather than fail: views never reach out of bounds
			length = len(attr.Data) - offset
			if g.strict {
				g.log.Warnf("group %s: emitter %d view of %q truncated to %d components", g.id, em.id, attr.Name, length)
			}
		}
		em.views[attr.Name] = &bufferView{attr: attr, offset: offset, length: length}
	})
}

// compactAround left-shifts data above em's occupied range and zero-fills
// the vacated tail, per PerEmitter attribute. Attributes declared after em
// attached have no recorded range for it and are skipped.
func (g *Group) compactAround(em *Emitter) {
	g.attributes.each(func(attr *Attribute) {
		if attr.Mode != PerEmitter {
			return
		}
		view, ok := em.views[attr.Name].(*bufferView)
		if !ok || view.length <= 0 {
			return
		}
		start := view.offset
		end := view.offset + view.length
		copy(attr.Data[start:], attr.Data[end:])
		for i := len(attr.Data) - view.length; i < len(attr.Data); i++ {
			attr.Data[i] = 0
		}
		attr.Dirty = true
	})
}

// relayout rebuilds all attached emitters' offsets and views from the
// current attribute set by prefix sums over attach order. This is also the
// point where late-declared attributes become visible to older emitters.
func (g *Group) relayout() {
	tail := 0
	for _, id := range g.order {
		em := g.emitters[id]
		g.leaseViews(em, tail)
		tail += em.particleCount
	}
}

func (em *Emitter) ParticleCount() int {
	return em.particleCount
}

func (em *Emitter) Attached() bool {
	return em.attached
}

// View returns em's window into an attribute: its private range for
// PerEmitter attributes, the whole buffer for Shared ones. Nil when the
// attribute is unknown to this emitter or the emitter is detached.
func (em *Emitter) View(name string) AttributeView {
	if em.views == nil {
		return nil
	}
	view, ok := em.views[name]
	if !ok {
		return nil
	}
	return view
}

// BaseOffset returns em's starting component index in a PerEmitter buffer,
// -1 when the attribute is unknown to this emitter.
func (em *Emitter) BaseOffset(name string) int {
	if em.baseOffsets == nil {
		return -1
	}
	base, ok := em.baseOffsets[name]
	if !ok {
		return -1
	}
	return base
}

// Fill writes value into em's view of an attribute. Unknown names and
// detached emitters are silently ignored.
func (em *Emitter) Fill(name string, value any) {
	view := em.View(name)
	if view == nil {
		if em.group != nil && em.group.strict {
			em.group.log.Warnf("group %s: emitter %d fill on unknown attribute %q ignored", em.group.id, em.id, name)
		}
		return
	}
	FillView(view, value)
}

// SetLifetime arms the emitter for automatic removal after the given number
// of clock seconds. Zero or negative disarms it.
func (em *Emitter) SetLifetime(seconds float32) {
	em.lifetime = seconds
	em.hasLifetime = seconds > 0
}

// Lifetime reports the remaining seconds, 0 when not armed.
func (em *Emitter) Lifetime() float32 {
	if !em.hasLifetime {
		return 0
	}
	return em.lifetime
}
