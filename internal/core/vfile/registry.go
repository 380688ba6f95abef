package vfile

import (
	"fmt"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// registry maps variable names to their metadata. Enumeration follows
// registration order, which keeps diff-to-variable mapping deterministic
// within a process run. Not safe for concurrent use on its own; the virtual
// file serializes access.
type registry struct {
	byName map[string]domain.Variable
	order  []string
}

func newRegistry() *registry {
	return &registry{byName: make(map[string]domain.Variable)}
}

// register validates v against the registry contents and capacity and adds
// it. Registration is explicit; there is no implicit creation on write.
func (r *registry) register(v domain.Variable, capacity uint64) error {
	if err := v.Validate(); err != nil {
		return err
	}
	if _, ok := r.byName[v.Name]; ok {
		return domain.ErrDuplicateVariable.WithDetails(v.Name)
	}
	if v.End() > capacity {
		return domain.ErrInvalidRange.WithDetails(
			fmt.Sprintf("%s: [%d,%d) exceeds file size %d", v.Name, v.Offset, v.End(), capacity))
	}
	for _, name := range r.order {
		if existing := r.byName[name]; v.Overlaps(existing) {
			return domain.ErrOverlappingRegion.WithDetails(
				fmt.Sprintf("%s overlaps %s", v.Name, existing.Name))
		}
	}

	r.byName[v.Name] = v
	r.order = append(r.order, v.Name)
	return nil
}

// lookup returns the metadata for name.
func (r *registry) lookup(name string) (domain.Variable, error) {
	v, ok := r.byName[name]
	if !ok {
		return domain.Variable{}, domain.ErrVariableNotFound.WithDetails(name)
	}
	return v, nil
}

// list returns a snapshot of all variables in registration order. Later
// registrations do not mutate a returned snapshot.
func (r *registry) list() []domain.Variable {
	out := make([]domain.Variable, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// variablesForRanges returns the names of variables whose intervals overlap
// any of the given ranges, deduplicated, in registration order.
func (r *registry) variablesForRanges(ranges []domain.ChangedRange) []string {
	if len(ranges) == 0 {
		return nil
	}

	var names []string
	for _, name := range r.order {
		v := r.byName[name]
		for _, rng := range ranges {
			if v.OverlapsRange(rng.Start, rng.End) {
				names = append(names, name)
				break
			}
		}
	}
	return names
}
