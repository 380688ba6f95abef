package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	stdsync "sync"

	"github.com/oklog/ulid/v2"

	"github.com/varmesh/varmesh-go/internal/accessor"
	"github.com/varmesh/varmesh-go/internal/core/domain"
	"github.com/varmesh/varmesh-go/internal/core/vfile"
	"github.com/varmesh/varmesh-go/internal/infra/tlsroots"
	"github.com/varmesh/varmesh-go/internal/sync"
	"github.com/varmesh/varmesh-go/internal/telemetry/metric"
	"github.com/varmesh/varmesh-go/internal/transport"
	"github.com/varmesh/varmesh-go/internal/watcher"
	"github.com/varmesh/varmesh-go/pkg/cmap"
)

// PermissionGate decides whether a tenant may touch a service.
type PermissionGate interface {
	MayAccess(tenantID, serviceID string) bool
}

// GateFunc adapts a function to the PermissionGate interface.
type GateFunc func(tenantID, serviceID string) bool

// MayAccess calls f.
func (f GateFunc) MayAccess(tenantID, serviceID string) bool {
	return f(tenantID, serviceID)
}

// AllowAll grants every access. The default gate for single-tenant use.
var AllowAll = GateFunc(func(string, string) bool { return true })

// Client manages shared variable files for one tenant.
type Client struct {
	id      ulid.ULID
	cfg     *Config
	gate    PermissionGate
	tr      transport.Transport
	watcher *watcher.Watcher
	vfiles  *cmap.Map[*vfile.VirtualFile]
	recs    *cmap.Map[*sync.Reconciler]
	logger  *slog.Logger
	metrics *metric.Metrics

	mu     stdsync.Mutex
	closed bool
}

// Option configures a Client.
type Option func(*Client)

// WithGate sets the permission gate.
func WithGate(g PermissionGate) Option {
	return func(c *Client) {
		c.gate = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithTransport installs a transport, bypassing Connect. Used for tests
// and in-process wiring.
func WithTransport(tr transport.Transport) Option {
	return func(c *Client) {
		c.tr = tr
	}
}

// New creates a client. Connect must be called before remote files can
// be opened, unless a transport was installed directly.
func New(cfg *Config, opts ...Option) (*Client, error) {
	if err := cfg.Verify(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Client{
		id:      ulid.Make(),
		cfg:     cfg,
		gate:    AllowAll,
		vfiles:  cmap.New[*vfile.VirtualFile](),
		recs:    cmap.New[*sync.Reconciler](),
		logger:  slog.Default(),
		metrics: metric.New(),
	}
	for _, opt := range opts {
		opt(c)
	}

	w, err := watcher.New(
		watcher.WithLogger(c.logger),
		watcher.WithMetrics(c.metrics),
		watcher.WithDebounce(cfg.Watch.DebounceInterval),
		watcher.WithQueueDepth(cfg.Watch.QueueDepth),
	)
	if err != nil {
		return nil, err
	}
	c.watcher = w

	if err := w.Start(); err != nil {
		return nil, err
	}

	c.logger.Info("client created",
		"client_id", c.id.String(),
		"tenant_id", cfg.Tenant,
	)
	return c, nil
}

// ID returns the client's unique identifier.
func (c *Client) ID() string {
	return c.id.String()
}

// Connect dials the server and authenticates.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return domain.ErrConnectionLost
	}
	if c.tr != nil {
		return nil
	}

	dialOpts := []transport.WSOption{transport.WithWSLogger(c.logger)}
	if c.cfg.Server.CACertFile != "" {
		pool, err := tlsroots.NewPool()
		if err != nil {
			return err
		}
		if err := pool.AddCertFile(c.cfg.Server.CACertFile); err != nil {
			return err
		}
		dialOpts = append(dialOpts, transport.WithDialTLS(pool.TLSConfig()))
	}

	ws, err := transport.DialWS(ctx, c.cfg.Server.URL, http.Header{}, dialOpts...)
	if err != nil {
		return err
	}

	err = ws.Authenticate(ctx, transport.AuthRequest{
		KeyID:    c.cfg.Auth.KeyID,
		Key:      c.cfg.Auth.Key,
		TenantID: c.cfg.Tenant,
		ClientID: c.id.String(),
	})
	if err != nil {
		ws.Close()
		return err
	}

	c.tr = ws
	c.logger.Info("connected", "server_url", c.cfg.Server.URL)
	return nil
}

// fileKey builds the cache key for one tenant's view of a service.
func fileKey(tenantID, serviceID string) string {
	return tenantID + "_" + serviceID
}

// OpenLocal opens or creates a local mmap-backed service file of the
// given size and starts watching it for external writes.
func (c *Client) OpenLocal(tenantID, serviceID string, size uint64) (*vfile.VirtualFile, error) {
	if !c.gate.MayAccess(tenantID, serviceID) {
		return nil, domain.ErrPermissionDenied.WithDetails(fileKey(tenantID, serviceID))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domain.ErrConnectionLost
	}

	key := fileKey(tenantID, serviceID)
	if vf, ok := c.vfiles.Get(key); ok {
		return vf, nil
	}

	dir := c.cfg.Watch.Dir
	if dir == "" {
		var err error
		dir, err = accessor.DefaultDir()
		if err != nil {
			return nil, domain.ErrAccessorUnavailable.WithCause(err)
		}
	}
	if err := accessor.EnsureDir(dir); err != nil {
		return nil, err
	}

	path := accessor.ServiceFilePath(dir, serviceID)
	acc, err := accessor.NewLocal(path, size)
	if err != nil {
		return nil, err
	}

	vf, err := vfile.New(serviceID, serviceID, tenantID, acc, vfile.WithLogger(c.logger))
	if err != nil {
		acc.Close()
		return nil, err
	}

	if err := c.watcher.Register(path, vf); err != nil {
		vf.Close()
		return nil, err
	}

	c.vfiles.Set(key, vf)
	if c.tr != nil {
		c.recs.Set(key, sync.New(vf, c.tr,
			sync.WithLogger(c.logger),
			sync.WithMetrics(c.metrics),
		))
	}

	c.logger.Info("opened local service file",
		"tenant_id", tenantID,
		"service_id", serviceID,
		"path", path,
		"size", size,
	)
	return vf, nil
}

// OpenRemote opens an in-memory view of a service hosted elsewhere. The
// buffer is sized and filled from the server's initial snapshot.
func (c *Client) OpenRemote(ctx context.Context, tenantID, serviceID string) (*vfile.VirtualFile, error) {
	if !c.gate.MayAccess(tenantID, serviceID) {
		return nil, domain.ErrPermissionDenied.WithDetails(fileKey(tenantID, serviceID))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, domain.ErrConnectionLost
	}
	if c.tr == nil {
		return nil, domain.ErrConnectionLost.WithDetails("not connected")
	}

	key := fileKey(tenantID, serviceID)
	if vf, ok := c.vfiles.Get(key); ok {
		return vf, nil
	}

	vf, err := vfile.New(serviceID, serviceID, tenantID, accessor.NewRemote(), vfile.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}

	rec := sync.New(vf, c.tr,
		sync.WithLogger(c.logger),
		sync.WithMetrics(c.metrics),
	)

	if ws, ok := c.tr.(*transport.WS); ok {
		if err := ws.Subscribe(tenantID, serviceID); err != nil {
			vf.Close()
			return nil, err
		}
	}

	// Frames for already open services can arrive on the shared
	// connection ahead of this subscription's snapshot; route them to
	// their owners instead of aborting the open.
	for {
		in, err := c.tr.Receive(ctx)
		if err != nil {
			vf.Close()
			return nil, err
		}
		if in.Snapshot != nil && in.Snapshot.ServiceID == serviceID {
			if err := rec.ApplySnapshot(in.Snapshot); err != nil {
				vf.Close()
				return nil, err
			}
			break
		}
		c.route(tenantID, in)
	}

	c.vfiles.Set(key, vf)
	c.recs.Set(key, rec)

	c.logger.Info("opened remote service file",
		"tenant_id", tenantID,
		"service_id", serviceID,
		"size", vf.Size(),
	)
	return vf, nil
}

// Get returns an already open virtual file.
func (c *Client) Get(tenantID, serviceID string) (*vfile.VirtualFile, error) {
	if !c.gate.MayAccess(tenantID, serviceID) {
		return nil, domain.ErrPermissionDenied.WithDetails(fileKey(tenantID, serviceID))
	}
	vf, ok := c.vfiles.Get(fileKey(tenantID, serviceID))
	if !ok {
		return nil, domain.ErrVariableNotFound.WithDetails(fileKey(tenantID, serviceID))
	}
	return vf, nil
}

// Reconciler returns the reconciler for an open service file, if the
// client is connected.
func (c *Client) Reconciler(tenantID, serviceID string) (*sync.Reconciler, bool) {
	return c.recs.Get(fileKey(tenantID, serviceID))
}

// route hands an inbound frame to the reconciler of the service it is
// addressed to. Frames for services that are not open are logged and
// dropped.
func (c *Client) route(tenantID string, in transport.Inbound) {
	var serviceID string
	switch {
	case in.Delta != nil:
		serviceID = in.Delta.ServiceID
	case in.Snapshot != nil:
		serviceID = in.Snapshot.ServiceID
	default:
		return
	}

	rec, ok := c.recs.Get(fileKey(tenantID, serviceID))
	if !ok {
		c.logger.Warn("inbound frame for unopened service",
			"tenant_id", tenantID,
			"service_id", serviceID,
		)
		return
	}

	var err error
	switch {
	case in.Delta != nil:
		err = rec.Apply(in.Delta)
	case in.Snapshot != nil:
		err = rec.ApplySnapshot(in.Snapshot)
	}
	if err != nil {
		c.logger.Warn("inbound frame rejected",
			"tenant_id", tenantID,
			"service_id", serviceID,
			"error", err,
		)
	}
}

// Run pumps inbound frames to the reconcilers of the services they are
// addressed to, until the context ends or the connection drops. It is
// the single consumer of the shared connection; per-service Run loops
// must not read from the same transport.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	tr := c.tr
	c.mu.Unlock()
	if tr == nil {
		return domain.ErrConnectionLost.WithDetails("not connected")
	}

	for {
		in, err := tr.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.route(c.cfg.Tenant, in)
	}
}

// Next blocks for the next change event from any watched file.
func (c *Client) Next(ctx context.Context) (domain.ChangeEvent, error) {
	return c.watcher.Next(ctx)
}

// PushChanges reports pending local changes on one service file.
func (c *Client) PushChanges(ctx context.Context, tenantID, serviceID string) error {
	rec, ok := c.recs.Get(fileKey(tenantID, serviceID))
	if !ok {
		return domain.ErrConnectionLost.WithDetails("no reconciler for " + fileKey(tenantID, serviceID))
	}
	return rec.Push(ctx)
}

// Close stops the watcher, closes every open file, and drops the
// connection. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	c.watcher.Stop()

	var firstErr error
	c.vfiles.Range(func(key string, vf *vfile.VirtualFile) bool {
		if err := vf.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		return true
	})

	if c.tr != nil {
		if err := c.tr.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	c.logger.Info("client closed", "client_id", c.id.String())
	return firstErr
}
