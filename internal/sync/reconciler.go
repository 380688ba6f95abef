package sync

import (
	"context"
	"errors"
	"log/slog"

	"github.com/varmesh/varmesh-go/internal/core/domain"
	"github.com/varmesh/varmesh-go/internal/core/vfile"
	"github.com/varmesh/varmesh-go/internal/telemetry/metric"
	"github.com/varmesh/varmesh-go/internal/transport"
)

// Reconciler keeps one virtual file and the remote side in agreement.
type Reconciler struct {
	vf      *vfile.VirtualFile
	tr      transport.Transport
	logger  *slog.Logger
	metrics *metric.Metrics
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metric.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// New creates a reconciler for vf over tr.
func New(vf *vfile.VirtualFile, tr transport.Transport, opts ...Option) *Reconciler {
	r := &Reconciler{
		vf:      vf,
		tr:      tr,
		logger:  slog.Default(),
		metrics: metric.New(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Push reports everything that changed since the last acknowledged push.
// The shadow advances over the reported ranges only once the server has
// acknowledged the delta; on any failure it stays put and the changes
// remain pending.
func (r *Reconciler) Push(ctx context.Context) error {
	names, ranges := r.vf.ChangedVariables()
	if len(names) == 0 {
		// Dirty bytes outside any registered variable are not
		// transmittable; keep them pending rather than settle them
		// with an empty delta.
		return nil
	}

	pairs := make([]transport.Pair, 0, len(names))
	for _, name := range names {
		v, err := r.vf.Lookup(name)
		if err != nil {
			return err
		}
		data, err := r.vf.ReadVariable(name)
		if err != nil {
			return err
		}
		pairs = append(pairs, transport.Pair{Name: name, Offset: v.Offset, Data: data})
	}

	if err := r.tr.SendDelta(ctx, r.vf.ServiceID(), names, pairs); err != nil {
		r.logger.Warn("delta rejected, changes kept pending",
			"service_id", r.vf.ServiceID(),
			"variables", len(names),
			"error", err,
		)
		return err
	}

	r.vf.AdvanceShadowRanges(ranges)
	r.metrics.DeltasSent.Inc()
	r.logger.Debug("delta acknowledged",
		"service_id", r.vf.ServiceID(),
		"variables", len(names),
		"ranges", len(ranges),
	)
	return nil
}

// Apply writes a peer's delta into the file. The whole batch is validated
// first; a delta addressed to another service, an unknown variable name,
// or a wrong-length payload rejects the batch with ErrReconcileConflict
// and nothing is written. The shadow advances over exactly the written
// variable ranges.
func (r *Reconciler) Apply(delta *transport.Delta) error {
	if delta.ServiceID != r.vf.ServiceID() {
		r.metrics.ReconcileConflicts.Inc()
		return domain.ErrReconcileConflict.WithDetails(
			"delta addressed to " + delta.ServiceID)
	}

	ranges := make([]domain.ChangedRange, 0, len(delta.Pairs))
	for _, p := range delta.Pairs {
		v, err := r.vf.Lookup(p.Name)
		if err != nil {
			r.metrics.ReconcileConflicts.Inc()
			return domain.ErrReconcileConflict.WithDetails(p.Name).WithCause(err)
		}
		if uint64(len(p.Data)) != v.Length {
			r.metrics.ReconcileConflicts.Inc()
			return domain.ErrReconcileConflict.WithDetails(p.Name)
		}
		ranges = append(ranges, domain.ChangedRange{Start: v.Offset, End: v.End()})
	}

	for _, p := range delta.Pairs {
		if err := r.vf.WriteVariable(p.Name, p.Data); err != nil {
			return err
		}
	}

	r.vf.AdvanceShadowRanges(ranges)
	r.metrics.DeltasApplied.Inc()
	r.logger.Debug("delta applied",
		"service_id", r.vf.ServiceID(),
		"variables", len(delta.Pairs),
	)
	return nil
}

// ApplySnapshot replaces the whole file content from a server snapshot.
// Snapshots initialize remote buffers; a local file is the source of
// truth for its own bytes and rejects them.
func (r *Reconciler) ApplySnapshot(snap *transport.FullSnapshot) error {
	if snap.ServiceID != r.vf.ServiceID() {
		r.metrics.ReconcileConflicts.Inc()
		return domain.ErrSnapshotRejected.WithDetails(
			"snapshot addressed to " + snap.ServiceID)
	}
	if r.vf.IsLocal() {
		r.metrics.ReconcileConflicts.Inc()
		return domain.ErrSnapshotRejected.WithDetails(r.vf.ServiceID())
	}

	size := uint64(len(snap.Data))
	if r.vf.Size() != size {
		if err := r.vf.Resize(size); err != nil {
			return err
		}
	}
	if size > 0 {
		if err := r.vf.WriteRange(0, snap.Data); err != nil {
			return err
		}
	}
	// A snapshot is common ground, not a local edit to report.
	r.vf.AdvanceShadow()

	r.logger.Info("snapshot applied",
		"service_id", r.vf.ServiceID(),
		"size", size,
	)
	return nil
}

// Run pumps inbound messages until the context ends or the connection
// drops. Frames addressed to another service and conflicting deltas are
// logged and skipped so one bad batch does not stall the stream.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		in, err := r.tr.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if sid := inboundServiceID(in); sid != "" && sid != r.vf.ServiceID() {
			r.logger.Debug("skipping frame for other service",
				"service_id", r.vf.ServiceID(),
				"frame_service_id", sid,
			)
			continue
		}

		switch {
		case in.Delta != nil:
			if err := r.Apply(in.Delta); err != nil {
				if !errors.Is(err, domain.ErrReconcileConflict) {
					return err
				}
				r.logger.Warn("inbound delta rejected",
					"service_id", r.vf.ServiceID(),
					"error", err,
				)
			}
		case in.Snapshot != nil:
			if err := r.ApplySnapshot(in.Snapshot); err != nil {
				if !errors.Is(err, domain.ErrSnapshotRejected) {
					return err
				}
				r.logger.Warn("inbound snapshot rejected",
					"service_id", r.vf.ServiceID(),
					"error", err,
				)
			}
		}
	}
}

func inboundServiceID(in transport.Inbound) string {
	switch {
	case in.Delta != nil:
		return in.Delta.ServiceID
	case in.Snapshot != nil:
		return in.Snapshot.ServiceID
	}
	return ""
}
