package plume

import (
	"errors"
	"testing"
)

func TestAttributeSet_Declare(t *testing.T) {
	set := makeAttributeSet()

	attr, err := set.declare("translate", 3, PerEmitter, 10)
	if err != nil {
		t.Fatalf("Declare failed: %v", err)
	}
	if len(attr.Data) != 30 {
		t.Errorf("Expected 30 components, got %d", len(attr.Data))
	}
	if attr.Dirty {
		t.Errorf("A fresh attribute should not be dirty")
	}

	_, err = set.declare("translate", 3, PerEmitter, 10)
	if !errors.Is(err, ErrDuplicateAttribute) {
		t.Errorf("Expected ErrDuplicateAttribute, got %v", err)
	}
}

func TestAttributeSet_DeclarationOrder(t *testing.T) {
	set := makeAttributeSet()
	_, _ = set.declare("position", 3, Shared, 4)
	_, _ = set.declare("uv", 2, Shared, 4)
	_, _ = set.declare("translate", 3, PerEmitter, 10)

	var names []string
	set.each(func(attr *Attribute) {
		names = append(names, attr.Name)
	})

	expected := []string{"position", "uv", "translate"}
	for i, name := range expected {
		if names[i] != name {
			t.Errorf("Expected attribute %d to be %q, got %q", i, name, names[i])
		}
	}
}

func TestBufferView_Bounds(t *testing.T) {
	attr := &Attribute{Name: "size", ItemWidth: 1, Data: make([]float32, 10)}
	view := &bufferView{attr: attr, offset: 2, length: 4}

	if view.Len() != 4 {
		t.Fatalf("Expected view length 4, got %d", view.Len())
	}

	view.Write(0, 1)
	view.Write(3, 2)
	if attr.Data[2] != 1 || attr.Data[5] != 2 {
		t.Errorf("Writes did not land at the view's offset: %v", attr.Data)
	}

	// out of range reads come back zero, writes are dropped
	if view.Read(-1) != 0 || view.Read(4) != 0 {
		t.Errorf("Out of range reads should return 0")
	}
	view.Write(-1, 9)
	view.Write(4, 9)
	for i, v := range attr.Data {
		if v == 9 {
			t.Errorf("Out of range write landed at component %d", i)
		}
	}
}

func TestBufferView_WriteMarksDirty(t *testing.T) {
	attr := &Attribute{Name: "size", ItemWidth: 1, Data: make([]float32, 4)}
	view := &bufferView{attr: attr, offset: 0, length: 4}

	if attr.Dirty {
		t.Fatalf("Attribute should start clean")
	}
	view.Write(1, 5)
	if !attr.Dirty {
		t.Errorf("Write should mark the attribute dirty")
	}

	// a dropped write must not dirty the buffer
	attr.Dirty = false
	view.Write(100, 5)
	if attr.Dirty {
		t.Errorf("An out of range write should not mark the attribute dirty")
	}

	view.MarkDirty()
	if !attr.Dirty {
		t.Errorf("MarkDirty should mark the attribute dirty")
	}
}

func TestSharingMode_String(t *testing.T) {
	if Shared.String() != "Shared" {
		t.Errorf("Expected Shared, got %s", Shared.String())
	}
	if PerEmitter.String() != "PerEmitter" {
		t.Errorf("Expected PerEmitter, got %s", PerEmitter.String())
	}
	if SharingMode(42).String() != "SharingMode(42)" {
		t.Errorf("Unexpected string for unknown mode: %s", SharingMode(42).String())
	}
}
