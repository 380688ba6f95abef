package vfile

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/varmesh/varmesh-go/internal/accessor"
	"github.com/varmesh/varmesh-go/internal/core/domain"
	"github.com/varmesh/varmesh-go/internal/diff"
)

// VirtualFile exposes named byte-range variables over one service file.
//
// Lock ordering is registry, then current, then shadow; every multi-lock
// operation acquires in that order.
type VirtualFile struct {
	serviceID   string
	serviceName string
	tenantID    string

	regMu sync.RWMutex
	reg   *registry

	curMu   sync.RWMutex
	current []byte

	shdMu  sync.RWMutex
	shadow []byte

	acc    accessor.Accessor
	logger *slog.Logger
}

// Option configures a VirtualFile.
type Option func(*VirtualFile)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(vf *VirtualFile) {
		vf.logger = logger
	}
}

// New creates a virtual file over acc. The current and shadow buffers are
// sized from the accessor; for local accessors the current buffer is seeded
// from the mapped contents, and the shadow starts equal to current (a fresh
// file reports no changes).
func New(serviceID, serviceName, tenantID string, acc accessor.Accessor, opts ...Option) (*VirtualFile, error) {
	vf := &VirtualFile{
		serviceID:   serviceID,
		serviceName: serviceName,
		tenantID:    tenantID,
		reg:         newRegistry(),
		acc:         acc,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(vf)
	}

	size := acc.Size()
	initial, err := acc.ReadRange(0, size)
	if err != nil {
		return nil, err
	}
	vf.current = initial
	vf.shadow = make([]byte, size)
	copy(vf.shadow, initial)

	return vf, nil
}

// ServiceID returns the service ID.
func (vf *VirtualFile) ServiceID() string { return vf.serviceID }

// ServiceName returns the service name.
func (vf *VirtualFile) ServiceName() string { return vf.serviceName }

// TenantID returns the tenant ID.
func (vf *VirtualFile) TenantID() string { return vf.tenantID }

// IsLocal reports whether the backing accessor is a mapped file.
func (vf *VirtualFile) IsLocal() bool { return vf.acc.IsLocal() }

// Accessor returns the backing accessor.
func (vf *VirtualFile) Accessor() accessor.Accessor { return vf.acc }

// Size returns the current buffer size.
func (vf *VirtualFile) Size() uint64 {
	vf.curMu.RLock()
	defer vf.curMu.RUnlock()
	return uint64(len(vf.current))
}

// RegisterVariable registers metadata for a named byte range. It fails with
// ErrDuplicateVariable, ErrOverlappingRegion, or ErrInvalidRange.
func (vf *VirtualFile) RegisterVariable(v domain.Variable) error {
	vf.regMu.Lock()
	defer vf.regMu.Unlock()
	return vf.reg.register(v, vf.Size())
}

// Lookup returns the metadata for a registered variable.
func (vf *VirtualFile) Lookup(name string) (domain.Variable, error) {
	vf.regMu.RLock()
	defer vf.regMu.RUnlock()
	return vf.reg.lookup(name)
}

// Variables returns a snapshot of all registered variables in registration
// order.
func (vf *VirtualFile) Variables() []domain.Variable {
	vf.regMu.RLock()
	defer vf.regMu.RUnlock()
	return vf.reg.list()
}

// ReadVariable returns an owned copy of the variable's current bytes.
func (vf *VirtualFile) ReadVariable(name string) ([]byte, error) {
	v, err := vf.Lookup(name)
	if err != nil {
		return nil, err
	}
	return vf.ReadRange(v.Offset, v.Length)
}

// WriteVariable writes data over the variable's full byte range. The data
// length must equal the variable length; partial variable writes are
// rejected as ErrInvalidRange.
func (vf *VirtualFile) WriteVariable(name string, data []byte) error {
	v, err := vf.Lookup(name)
	if err != nil {
		return err
	}
	if uint64(len(data)) != v.Length {
		return domain.ErrInvalidRange.WithDetails(
			fmt.Sprintf("%s: write length %d != variable length %d", name, len(data), v.Length))
	}
	return vf.WriteRange(v.Offset, data)
}

// ReadRange returns an owned copy of n bytes at off from the current buffer.
func (vf *VirtualFile) ReadRange(off, n uint64) ([]byte, error) {
	vf.curMu.RLock()
	defer vf.curMu.RUnlock()

	end := off + n
	if end < off || end > uint64(len(vf.current)) {
		return nil, domain.ErrInvalidRange.WithDetails(
			fmt.Sprintf("[%d,%d) exceeds size %d", off, end, len(vf.current)))
	}

	out := make([]byte, n)
	copy(out, vf.current[off:end])
	return out, nil
}

// WriteRange writes p at off into the current buffer and through to the
// accessor, so the backing file or remote buffer stays in step.
func (vf *VirtualFile) WriteRange(off uint64, p []byte) error {
	vf.curMu.Lock()
	defer vf.curMu.Unlock()

	end := off + uint64(len(p))
	if end < off || end > uint64(len(vf.current)) {
		return domain.ErrInvalidRange.WithDetails(
			fmt.Sprintf("[%d,%d) exceeds size %d", off, end, len(vf.current)))
	}

	if err := vf.acc.WriteRange(off, p); err != nil {
		return err
	}
	copy(vf.current[off:], p)
	return nil
}

// SetBytes replaces the whole current buffer. The watcher uses this to
// install freshly reloaded file contents before a diff pass.
func (vf *VirtualFile) SetBytes(data []byte) {
	vf.curMu.Lock()
	defer vf.curMu.Unlock()
	vf.current = data
}

// Bytes returns an owned copy of the current buffer.
func (vf *VirtualFile) Bytes() []byte {
	vf.curMu.RLock()
	defer vf.curMu.RUnlock()
	out := make([]byte, len(vf.current))
	copy(out, vf.current)
	return out
}

// ShadowBytes returns an owned copy of the shadow buffer.
func (vf *VirtualFile) ShadowBytes() []byte {
	vf.shdMu.RLock()
	defer vf.shdMu.RUnlock()
	out := make([]byte, len(vf.shadow))
	copy(out, vf.shadow)
	return out
}

// ReloadFromAccessor re-reads the full accessor contents into the current
// buffer. Used after an external process mutated the backing file.
func (vf *VirtualFile) ReloadFromAccessor() error {
	data, err := vf.acc.ReadRange(0, vf.acc.Size())
	if err != nil {
		return err
	}
	vf.SetBytes(data)
	return nil
}

// Diff returns the changed byte ranges between current and shadow. Read
// locks on both buffers are held for the comparison only.
func (vf *VirtualFile) Diff() []domain.ChangedRange {
	vf.curMu.RLock()
	defer vf.curMu.RUnlock()
	vf.shdMu.RLock()
	defer vf.shdMu.RUnlock()
	return diff.Ranges(vf.current, vf.shadow)
}

// ChangedVariables runs a diff pass and maps the changed ranges onto
// registered variables. Names come back deduplicated in registration order,
// alongside the raw ranges.
func (vf *VirtualFile) ChangedVariables() ([]string, []domain.ChangedRange) {
	ranges := vf.Diff()
	return vf.VariablesForRanges(ranges), ranges
}

// VariablesForRanges maps changed byte ranges onto registered variable
// names.
func (vf *VirtualFile) VariablesForRanges(ranges []domain.ChangedRange) []string {
	vf.regMu.RLock()
	defer vf.regMu.RUnlock()
	return vf.reg.variablesForRanges(ranges)
}

// AdvanceShadow copies current into shadow in full. The copy happens under
// exclusive shadow access with a read lock on current, so no concurrent
// diff observes a partial copy. Idempotent.
func (vf *VirtualFile) AdvanceShadow() {
	vf.curMu.RLock()
	defer vf.curMu.RUnlock()
	vf.shdMu.Lock()
	defer vf.shdMu.Unlock()

	if len(vf.shadow) != len(vf.current) {
		vf.shadow = make([]byte, len(vf.current))
	}
	copy(vf.shadow, vf.current)
}

// AdvanceShadowRanges copies only the given byte ranges from current into
// shadow. The reconciler uses this after applying an inbound delta, so the
// peer's own update is not re-reported as a new local change while
// unreconciled local edits elsewhere stay visible.
func (vf *VirtualFile) AdvanceShadowRanges(ranges []domain.ChangedRange) {
	vf.curMu.RLock()
	defer vf.curMu.RUnlock()
	vf.shdMu.Lock()
	defer vf.shdMu.Unlock()

	if len(vf.shadow) != len(vf.current) {
		// Sizes diverged; a partial advance cannot be expressed.
		vf.shadow = make([]byte, len(vf.current))
		copy(vf.shadow, vf.current)
		return
	}
	size := uint64(len(vf.current))
	for _, r := range ranges {
		if r.Start >= size {
			continue
		}
		end := min(r.End, size)
		copy(vf.shadow[r.Start:end], vf.current[r.Start:end])
	}
}

// Resize resizes the accessor and both buffers, zero-filling grown space in
// current and leaving the diff to report the growth.
func (vf *VirtualFile) Resize(newSize uint64) error {
	if err := vf.acc.Resize(newSize); err != nil {
		return err
	}

	vf.curMu.Lock()
	defer vf.curMu.Unlock()

	resized := make([]byte, newSize)
	copy(resized, vf.current)
	vf.current = resized
	return nil
}

// Close releases the accessor. The virtual file must not be used afterwards.
func (vf *VirtualFile) Close() error {
	return vf.acc.Close()
}
