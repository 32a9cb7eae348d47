package plume

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateAttribute = errors.New("duplicate attribute")
	ErrUnknownAttribute   = errors.New("unknown attribute")
)

// SharingMode controls how an attribute's buffer is split between emitters.
type SharingMode int

const (
	// Shared attributes hold one copy of the data; every emitter sees the
	// whole buffer. Used for template geometry (quad corners, normals, uvs).
	Shared SharingMode = iota
	// PerEmitter attributes are partitioned into contiguous per-emitter
	// ranges laid out in attach order, starting at offset 0 with no gaps.
	PerEmitter
)

func (m SharingMode) String() string {
	switch m {
	case Shared:
		return "Shared"
	case PerEmitter:
		return "PerEmitter"
	default:
		return fmt.Sprintf("SharingMode(%d)", int(m))
	}
}

// Attribute is one named flat buffer owned by a Group. Capacity is fixed at
// declaration and the backing slice is never reallocated, so views can alias
// it safely. Dirty is set before any write through a view becomes visible
// and is cleared by the renderer after upload.
type Attribute struct {
	Name      string
	ItemWidth int
	Mode      SharingMode
	Data      []float32
	Dirty     bool
}

// AttributeView is a bounded read/write window into an attribute buffer.
// Reads outside the window return 0, writes outside it are dropped.
type AttributeView interface {
	Len() int
	Read(i int) float32
	Write(i int, v float32)
	MarkDirty()
}

// bufferView is the slice-backed AttributeView over attr.Data[offset:offset+length].
type bufferView struct {
	attr   *Attribute
	offset int
	length int
}

func (v *bufferView) Len() int {
	return v.length
}

func (v *bufferView) Read(i int) float32 {
	if i < 0 || i >= v.length {
		return 0
	}
	return v.attr.Data[v.offset+i]
}

func (v *bufferView) Write(i int, val float32) {
	if i < 0 || i >= v.length {
		return
	}
	// dirty first, so the renderer can never observe the new value
	// with a clean flag
	v.attr.Dirty = true
	v.attr.Data[v.offset+i] = val
}

func (v *bufferView) MarkDirty() {
	v.attr.Dirty = true
}

// attributeSet keeps declared attributes in declaration order. Order matters:
// it defines shader locations and the per-attribute vertex buffer slots.
type attributeSet struct {
	byName map[string]*Attribute
	order  []string
}

func makeAttributeSet() attributeSet {
	return attributeSet{byName: map[string]*Attribute{}}
}

func (s *attributeSet) declare(name string, itemWidth int, mode SharingMode, capacityItems int) (*Attribute, error) {
	if _, ok := s.byName[name]; ok {
		return nil, fmt.Errorf("attribute %q: %w", name, ErrDuplicateAttribute)
	}
	if itemWidth < 1 {
		itemWidth = 1
	}
	if capacityItems < 0 {
		capacityItems = 0
	}
	attr := &Attribute{
		Name:      name,
		ItemWidth: itemWidth,
		Mode:      mode,
		Data:      make([]float32, capacityItems*itemWidth),
	}
	s.byName[name] = attr
	s.order = append(s.order, name)
	return attr, nil
}

func (s *attributeSet) get(name string) (*Attribute, bool) {
	attr, ok := s.byName[name]
	return attr, ok
}

// each yields attributes in declaration order.
func (s *attributeSet) each(fn func(attr *Attribute)) {
	for _, name := range s.order {
		fn(s.byName[name])
	}
}

func wholeBufferView(attr *Attribute) *bufferView {
	return &bufferView{attr: attr, offset: 0, length: len(attr.Data)}
}
