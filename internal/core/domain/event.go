package domain

// ChangedRange is a half-open byte interval [Start, End) reported as
// differing between the current and shadow buffers. Ranges produced by a
// diff pass are chunk-aligned (except a trailing remainder), strictly
// ascending by start offset, and pairwise disjoint. Adjacent differing
// chunks are reported as separate ranges; no merge pass is performed.
type ChangedRange struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Len returns the number of bytes covered by the range.
func (r ChangedRange) Len() uint64 {
	return r.End - r.Start
}

// ChangeEvent is one debounced change notification for a service file.
type ChangeEvent struct {
	// ServiceID identifies the service whose file changed.
	ServiceID string `json:"service_id"`

	// Path is the backing file path for local accessors, empty for remote.
	Path string `json:"path,omitempty"`

	// Variables lists the changed variable names in registration order.
	Variables []string `json:"variables"`

	// Ranges lists the changed byte intervals underlying the event.
	Ranges []ChangedRange `json:"ranges"`
}
