package vfile

import (
	"bytes"
	"errors"
	"testing"

	"github.com/varmesh/varmesh-go/internal/accessor"
	"github.com/varmesh/varmesh-go/internal/core/domain"
)

func newTestFile(t *testing.T, size uint64) *VirtualFile {
	t.Helper()
	vf, err := New("tenant1_config", "config", "tenant1", accessor.NewRemoteWithSize(size))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { vf.Close() })
	return vf
}

func TestRegisterVariable_Errors(t *testing.T) {
	vf := newTestFile(t, 16)

	if err := vf.RegisterVariable(domain.NewVariable("a", 0, 8, 1)); err != nil {
		t.Fatalf("register a: %v", err)
	}

	if err := vf.RegisterVariable(domain.NewVariable("a", 8, 8, 1)); !errors.Is(err, domain.ErrDuplicateVariable) {
		t.Fatalf("duplicate err = %v, want ErrDuplicateVariable", err)
	}
	if err := vf.RegisterVariable(domain.NewVariable("b", 4, 8, 1)); !errors.Is(err, domain.ErrOverlappingRegion) {
		t.Fatalf("overlap err = %v, want ErrOverlappingRegion", err)
	}
	if err := vf.RegisterVariable(domain.NewVariable("c", 12, 8, 1)); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("capacity err = %v, want ErrInvalidRange", err)
	}

	if err := vf.RegisterVariable(domain.NewVariable("b", 8, 8, 1)); err != nil {
		t.Fatalf("register b: %v", err)
	}
}

func TestLookupAndList(t *testing.T) {
	vf := newTestFile(t, 32)

	names := []string{"gamma", "alpha", "beta"}
	for i, name := range names {
		v := domain.NewVariable(name, uint64(i*8), 8, uint32(i))
		if err := vf.RegisterVariable(v); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	if _, err := vf.Lookup("missing"); !errors.Is(err, domain.ErrVariableNotFound) {
		t.Fatalf("Lookup(missing) err = %v, want ErrVariableNotFound", err)
	}

	v, err := vf.Lookup("alpha")
	if err != nil {
		t.Fatalf("Lookup(alpha): %v", err)
	}
	if v.Offset != 8 {
		t.Fatalf("alpha offset = %d, want 8", v.Offset)
	}

	// Enumeration follows registration order, not lexical order.
	list := vf.Variables()
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	for i, want := range names {
		if list[i].Name != want {
			t.Fatalf("list[%d] = %s, want %s", i, list[i].Name, want)
		}
	}

	// A produced snapshot is not affected by later registrations.
	if err := vf.RegisterVariable(domain.NewVariable("delta", 24, 8, 0)); err != nil {
		t.Fatalf("register delta: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("snapshot mutated by later registration: len = %d", len(list))
	}
}

func TestWriteReadVariable(t *testing.T) {
	vf := newTestFile(t, 16)
	if err := vf.RegisterVariable(domain.NewVariable("v", 4, 4, 1)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := vf.WriteVariable("v", []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("WriteVariable: %v", err)
	}
	got, err := vf.ReadVariable("v")
	if err != nil {
		t.Fatalf("ReadVariable: %v", err)
	}
	if !bytes.Equal(got, []byte{1, 2, 3, 4}) {
		t.Fatalf("ReadVariable = %v", got)
	}

	// Write-through: the accessor sees the same bytes.
	fromAcc, err := vf.Accessor().ReadRange(4, 4)
	if err != nil {
		t.Fatalf("accessor ReadRange: %v", err)
	}
	if !bytes.Equal(fromAcc, []byte{1, 2, 3, 4}) {
		t.Fatalf("accessor bytes = %v", fromAcc)
	}

	if err := vf.WriteVariable("v", []byte{1, 2}); !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("short write err = %v, want ErrInvalidRange", err)
	}
	if err := vf.WriteVariable("nope", []byte{1, 2, 3, 4}); !errors.Is(err, domain.ErrVariableNotFound) {
		t.Fatalf("unknown variable err = %v, want ErrVariableNotFound", err)
	}
}

func TestChangedVariables_CounterScenario(t *testing.T) {
	vf := newTestFile(t, 8)
	if err := vf.RegisterVariable(domain.NewVariable("counter", 0, 8, 1)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := vf.WriteVariable("counter", []byte{0, 0, 0, 0, 0, 0, 0, 42}); err != nil {
		t.Fatalf("WriteVariable: %v", err)
	}

	names, ranges := vf.ChangedVariables()
	if len(names) != 1 || names[0] != "counter" {
		t.Fatalf("ChangedVariables = %v, want [counter]", names)
	}
	if len(ranges) == 0 {
		t.Fatal("no changed ranges reported")
	}

	vf.AdvanceShadow()

	names, _ = vf.ChangedVariables()
	if len(names) != 0 {
		t.Fatalf("ChangedVariables after AdvanceShadow = %v, want []", names)
	}
}

func TestChangedVariables_OnlyTouchedVariable(t *testing.T) {
	vf := newTestFile(t, 8)
	if err := vf.RegisterVariable(domain.NewVariable("a", 0, 4, 1)); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := vf.RegisterVariable(domain.NewVariable("b", 4, 4, 1)); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if err := vf.WriteVariable("a", []byte{9, 9, 9, 9}); err != nil {
		t.Fatalf("WriteVariable: %v", err)
	}

	names, _ := vf.ChangedVariables()
	if len(names) != 1 || names[0] != "a" {
		t.Fatalf("ChangedVariables = %v, want exactly [a]", names)
	}
}

func TestAdvanceShadow_Idempotent(t *testing.T) {
	vf := newTestFile(t, 8)
	if err := vf.RegisterVariable(domain.NewVariable("v", 0, 8, 1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := vf.WriteVariable("v", []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("WriteVariable: %v", err)
	}

	vf.AdvanceShadow()
	first := vf.ShadowBytes()
	vf.AdvanceShadow()
	second := vf.ShadowBytes()

	if !bytes.Equal(first, second) {
		t.Fatalf("shadow changed across idempotent advances: %v -> %v", first, second)
	}
	if ranges := vf.Diff(); len(ranges) != 0 {
		t.Fatalf("Diff after double advance = %v, want empty", ranges)
	}
}

func TestAdvanceShadowRanges_Partial(t *testing.T) {
	vf := newTestFile(t, 16)
	if err := vf.RegisterVariable(domain.NewVariable("a", 0, 8, 1)); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := vf.RegisterVariable(domain.NewVariable("b", 8, 8, 1)); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if err := vf.WriteVariable("a", []byte{1, 1, 1, 1, 1, 1, 1, 1}); err != nil {
		t.Fatalf("write a: %v", err)
	}
	if err := vf.WriteVariable("b", []byte{2, 2, 2, 2, 2, 2, 2, 2}); err != nil {
		t.Fatalf("write b: %v", err)
	}

	// Advance only a's range: b's local edit must stay visible.
	vf.AdvanceShadowRanges([]domain.ChangedRange{{Start: 0, End: 8}})

	names, _ := vf.ChangedVariables()
	if len(names) != 1 || names[0] != "b" {
		t.Fatalf("ChangedVariables after partial advance = %v, want [b]", names)
	}
}

func TestVariablesForRanges(t *testing.T) {
	vf := newTestFile(t, 24)
	for i, name := range []string{"x", "y", "z"} {
		if err := vf.RegisterVariable(domain.NewVariable(name, uint64(i*8), 8, 1)); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	names := vf.VariablesForRanges([]domain.ChangedRange{{Start: 6, End: 10}})
	if len(names) != 2 || names[0] != "x" || names[1] != "y" {
		t.Fatalf("VariablesForRanges = %v, want [x y]", names)
	}

	if names := vf.VariablesForRanges(nil); names != nil {
		t.Fatalf("VariablesForRanges(nil) = %v, want nil", names)
	}

	// A range overlapping one variable twice reports the name once.
	names = vf.VariablesForRanges([]domain.ChangedRange{{Start: 0, End: 2}, {Start: 4, End: 6}})
	if len(names) != 1 || names[0] != "x" {
		t.Fatalf("deduplicated names = %v, want [x]", names)
	}
}

func TestResize(t *testing.T) {
	vf := newTestFile(t, 8)
	if err := vf.RegisterVariable(domain.NewVariable("v", 0, 8, 1)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := vf.WriteVariable("v", []byte{1, 2, 3, 4, 5, 6, 7, 8}); err != nil {
		t.Fatalf("write: %v", err)
	}
	vf.AdvanceShadow()

	if err := vf.Resize(16); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	if vf.Size() != 16 {
		t.Fatalf("Size = %d, want 16", vf.Size())
	}

	// Growth is visible to the next diff pass (length mismatch).
	ranges := vf.Diff()
	if len(ranges) != 1 || ranges[0].Start != 0 || ranges[0].End != 16 {
		t.Fatalf("Diff after resize = %v, want [0,16)", ranges)
	}

	// A variable now inside the grown file registers fine.
	if err := vf.RegisterVariable(domain.NewVariable("w", 8, 8, 1)); err != nil {
		t.Fatalf("register w after resize: %v", err)
	}
}

func TestNew_SeedsFromAccessor(t *testing.T) {
	acc := accessor.NewRemoteWithSize(8)
	if err := acc.WriteRange(0, []byte{5, 5, 5, 5, 5, 5, 5, 5}); err != nil {
		t.Fatalf("seed accessor: %v", err)
	}

	vf, err := New("svc", "config", "t1", acc)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer vf.Close()

	want := []byte{5, 5, 5, 5, 5, 5, 5, 5}
	if !bytes.Equal(vf.Bytes(), want) {
		t.Fatalf("current = %v, want %v", vf.Bytes(), want)
	}
	// Shadow starts equal to current: a fresh file reports no changes.
	if ranges := vf.Diff(); len(ranges) != 0 {
		t.Fatalf("fresh file Diff = %v, want empty", ranges)
	}
}
