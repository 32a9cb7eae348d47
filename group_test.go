package plume

import (
	"errors"
	"fmt"
	"testing"
)

func TestGroup_DeclareAndBuffers(t *testing.T) {
	g := NewGroup(10)

	if err := g.Declare("translate", 3, PerEmitter); err != nil {
		t.Fatalf("Declare failed: %v", err)
	}

	data, err := g.BufferOf("translate")
	if err != nil {
		t.Fatalf("BufferOf failed: %v", err)
	}
	if len(data) != 30 {
		t.Errorf("Expected 30 components for 10 particles of width 3, got %d", len(data))
	}

	if err := g.Declare("translate", 3, PerEmitter); !errors.Is(err, ErrDuplicateAttribute) {
		t.Errorf("Expected ErrDuplicateAttribute, got %v", err)
	}
	if _, err := g.BufferOf("nope"); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("Expected ErrUnknownAttribute, got %v", err)
	}
	if g.View("nope") != nil {
		t.Errorf("View of an unknown attribute should be nil")
	}
}

func TestGroup_EmitterLayout(t *testing.T) {
	g := NewGroup(10)
	_ = g.Declare("pos", 3, PerEmitter)

	x := g.AddEmitter(4)
	y := g.AddEmitter(3)

	if x.BaseOffset("pos") != 0 {
		t.Errorf("First emitter should start at 0, got %d", x.BaseOffset("pos"))
	}
	if y.BaseOffset("pos") != 12 {
		t.Errorf("Second emitter should start after 4 items of width 3, got %d", y.BaseOffset("pos"))
	}
	if x.View("pos").Len() != 12 {
		t.Errorf("Expected view of 12 components, got %d", x.View("pos").Len())
	}
	if y.View("pos").Len() != 9 {
		t.Errorf("Expected view of 9 components, got %d", y.View("pos").Len())
	}
	if g.ActiveParticles() != 7 {
		t.Errorf("Expected 7 active particles, got %d", g.ActiveParticles())
	}
}

func TestGroup_RemoveCompactsSurvivors(t *testing.T) {
	g := NewGroup(10)
	_ = g.Declare("pos", 3, PerEmitter)

	x := g.AddEmitter(4)
	y := g.AddEmitter(3)
	x.Fill("pos", float32(1))
	y.Fill("pos", float32(2))

	g.RemoveEmitter(x)

	// y's 9 components moved to the front, the vacated tail is zeroed
	data, _ := g.BufferOf("pos")
	for i := 0; i < 9; i++ {
		if data[i] != 2 {
			t.Errorf("Component %d: expected 2, got %v", i, data[i])
		}
	}
	for i := 9; i < len(data); i++ {
		if data[i] != 0 {
			t.Errorf("Component %d: expected zeroed tail, got %v", i, data[i])
		}
	}

	if y.BaseOffset("pos") != 0 {
		t.Errorf("Survivor should be rebased to 0, got %d", y.BaseOffset("pos"))
	}
	if g.ActiveParticles() != 3 {
		t.Errorf("Expected 3 active particles after removal, got %d", g.ActiveParticles())
	}

	attr, _ := g.attributes.get("pos")
	if !attr.Dirty {
		t.Errorf("Compaction moved data, the attribute must be dirty")
	}
}

func TestGroup_RemovePreservesOrder(t *testing.T) {
	g := NewGroup(10)
	_ = g.Declare("v", 1, PerEmitter)

	a := g.AddEmitter(2)
	b := g.AddEmitter(3)
	c := g.AddEmitter(2)
	a.Fill("v", float32(1))
	b.Fill("v", float32(2))
	c.Fill("v", float32(3))

	g.RemoveEmitter(b)

	emitters := g.Emitters()
	if len(emitters) != 2 || emitters[0] != a || emitters[1] != c {
		t.Fatalf("Expected attach order [a c] to survive the removal")
	}
	if c.BaseOffset("v") != 2 {
		t.Errorf("c should sit right after a, got offset %d", c.BaseOffset("v"))
	}

	data, _ := g.BufferOf("v")
	expected := []float32{1, 1, 3, 3, 0, 0, 0, 0, 0, 0}
	for i, v := range expected {
		if data[i] != v {
			t.Errorf("Component %d: expected %v, got %v", i, v, data[i])
		}
	}
}

func TestGroup_ActiveCountIsDerived(t *testing.T) {
	g := NewGroup(10)
	_ = g.Declare("v", 1, PerEmitter)

	first := g.AddEmitter(6)
	g.AddEmitter(6)

	// 12 requested, the pool holds 10
	if g.ActiveParticles() != 10 {
		t.Errorf("Expected the visible count to saturate at 10, got %d", g.ActiveParticles())
	}

	g.RemoveEmitter(first)

	// recomputed from the survivors, not decremented past the clamp
	if g.ActiveParticles() != 6 {
		t.Errorf("Expected 6 active particles after removal, got %d", g.ActiveParticles())
	}
}

func TestGroup_SetActiveParticlesClamps(t *testing.T) {
	g := NewGroup(10)

	g.SetActiveParticles(-5)
	if g.ActiveParticles() != 0 {
		t.Errorf("Negative counts should clamp to 0, got %d", g.ActiveParticles())
	}

	g.SetActiveParticles(1000)
	if g.ActiveParticles() != 10 {
		t.Errorf("Oversized counts should clamp to the pool size, got %d", g.ActiveParticles())
	}
}

func TestGroup_OverflowViewsTruncate(t *testing.T) {
	g := NewGroup(4)
	_ = g.Declare("v", 2, PerEmitter)

	g.AddEmitter(3)
	late := g.AddEmitter(3)

	// only one of late's three items fits into the pool
	view := late.View("v")
	if view.Len() != 2 {
		t.Errorf("Expected a truncated view of 2 components, got %d", view.Len())
	}
	view.Write(5, 9) // dropped, never out of bounds

	if late.BaseOffset("v") != 6 {
		t.Errorf("Base offset records the layout position even when truncated, got %d", late.BaseOffset("v"))
	}
	if g.ActiveParticles() != 4 {
		t.Errorf("Expected the visible count to saturate at 4, got %d", g.ActiveParticles())
	}
}

func TestGroup_RemovalRestoresTruncatedViews(t *testing.T) {
	g := NewGroup(4)
	_ = g.Declare("v", 2, PerEmitter)

	first := g.AddEmitter(3)
	late := g.AddEmitter(3)
	if late.View("v").Len() != 2 {
		t.Fatalf("Expected the late emitter to be truncated while the pool is full")
	}

	g.RemoveEmitter(first)

	// the relayout gives the survivor its full range back
	if late.BaseOffset("v") != 0 {
		t.Errorf("Expected the survivor rebased to 0, got %d", late.BaseOffset("v"))
	}
	if late.View("v").Len() != 6 {
		t.Errorf("Expected the survivor's full 6 components, got %d", late.View("v").Len())
	}
}

func TestGroup_SharedAttributeSpansEmitters(t *testing.T) {
	g := NewGroup(10)
	_ = g.DeclareSized("corner", 2, Shared, 4)

	a := g.AddEmitter(3)
	b := g.AddEmitter(5)

	if a.View("corner").Len() != 8 || b.View("corner").Len() != 8 {
		t.Fatalf("Shared views should cover the whole buffer")
	}

	a.View("corner").Write(3, 7)
	if b.View("corner").Read(3) != 7 {
		t.Errorf("A write through one emitter's shared view should be visible to the other")
	}
}

func TestGroup_DetachedEmitter(t *testing.T) {
	g := NewGroup(10)
	_ = g.Declare("v", 1, PerEmitter)

	em := g.AddEmitter(4)
	em.Fill("v", float32(5))
	g.RemoveEmitter(em)

	if em.Attached() {
		t.Errorf("Removed emitter should report detached")
	}
	if em.View("v") != nil {
		t.Errorf("Removed emitter should have no views")
	}
	if em.BaseOffset("v") != -1 {
		t.Errorf("Removed emitter should have no offsets, got %d", em.BaseOffset("v"))
	}
	em.Fill("v", float32(1)) // silently ignored

	data, _ := g.BufferOf("v")
	for i, v := range data {
		if v != 0 {
			t.Errorf("Expected the buffer zeroed after removal, got %v at component %d", v, i)
		}
	}
	if g.ActiveParticles() != 0 {
		t.Errorf("Expected an empty pool after the round trip, got %d", g.ActiveParticles())
	}

	// removing again is a no-op
	g.RemoveEmitter(em)
}

func TestGroup_ReattachLeasesFreshViews(t *testing.T) {
	g := NewGroup(10)
	_ = g.Declare("v", 1, PerEmitter)

	a := g.AddEmitter(4)
	g.RemoveEmitter(a)

	b := g.AddEmitter(3)
	g.Attach(a)

	if !a.Attached() {
		t.Fatalf("Re-attach should succeed")
	}
	if a.BaseOffset("v") != 3 {
		t.Errorf("Re-attached emitter goes to the tail, expected offset 3, got %d", a.BaseOffset("v"))
	}
	if b.BaseOffset("v") != 0 {
		t.Errorf("Existing emitter should be untouched, got %d", b.BaseOffset("v"))
	}
	if g.ActiveParticles() != 7 {
		t.Errorf("Expected 7 active particles, got %d", g.ActiveParticles())
	}

	// attaching twice changes nothing
	g.Attach(a)
	if len(g.Emitters()) != 2 {
		t.Errorf("Double attach should be a no-op")
	}
}

func TestGroup_ForeignEmitterIgnored(t *testing.T) {
	g := NewGroup(10)
	other := NewGroup(10)
	_ = g.Declare("v", 1, PerEmitter)
	_ = other.Declare("v", 1, PerEmitter)

	em := other.AddEmitter(4)

	g.Attach(em)
	g.RemoveEmitter(em)
	g.RemoveEmitter(nil)

	if len(g.Emitters()) != 0 {
		t.Errorf("A foreign emitter must never join the group")
	}
	if !em.Attached() {
		t.Errorf("The foreign emitter should still be attached to its own group")
	}
}

func TestGroup_LateDeclareReachesOldEmittersOnRelayout(t *testing.T) {
	g := NewGroup(10)
	_ = g.Declare("v", 1, PerEmitter)

	em := g.AddEmitter(4)
	filler := g.AddEmitter(2)

	_ = g.Declare("late", 2, PerEmitter)
	if em.View("late") != nil {
		t.Fatalf("Views lease at attach time, the new attribute is not visible yet")
	}

	// any relayout rebuilds the views from the full attribute set
	g.RemoveEmitter(filler)
	if em.View("late") == nil {
		t.Fatalf("Expected the relayout to pick up the late attribute")
	}
	if em.View("late").Len() != 8 {
		t.Errorf("Expected 8 components, got %d", em.View("late").Len())
	}
}

func TestGroup_RoundTripThroughViews(t *testing.T) {
	g := NewGroup(8)
	_ = g.Declare("v", 2, PerEmitter)

	em := g.AddEmitter(4)
	view := em.View("v")
	for i := 0; i < view.Len(); i++ {
		view.Write(i, float32(i)+0.25)
	}
	for i := 0; i < view.Len(); i++ {
		if view.Read(i) != float32(i)+0.25 {
			t.Errorf("Component %d: expected %v, got %v", i, float32(i)+0.25, view.Read(i))
		}
	}
}

func TestGroup_StrictModeKeepsBehavior(t *testing.T) {
	quiet := NewGroup(4)
	_ = quiet.Declare("v", 1, PerEmitter)

	strict := NewGroup(4)
	log := &captureLogger{}
	strict.SetLogger(log)
	strict.SetStrict(true)
	_ = strict.Declare("v", 1, PerEmitter)

	for _, g := range []*Group{quiet, strict} {
		g.Fill("nope", float32(1))
		g.AddEmitter(3)
		g.AddEmitter(3)
		g.RemoveEmitter(nil)
	}

	if quiet.ActiveParticles() != strict.ActiveParticles() {
		t.Errorf("Strict mode must not change behavior: %d vs %d", quiet.ActiveParticles(), strict.ActiveParticles())
	}
	if len(log.warnings) < 3 {
		t.Errorf("Strict mode should have reported the unknown fill, the saturation and the bad removal, got %d warnings", len(log.warnings))
	}
}

// captureLogger records warnings for assertions.
type captureLogger struct {
	warnings []string
}

func (l *captureLogger) DebugEnabled() bool                { return false }
func (l *captureLogger) SetDebug(enabled bool)             {}
func (l *captureLogger) Debugf(format string, args ...any) {}
func (l *captureLogger) Infof(format string, args ...any)  {}
func (l *captureLogger) Warnf(format string, args ...any) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
}
func (l *captureLogger) Errorf(format string, args ...any) {}
