package hub

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/varmesh/varmesh-go/internal/core/domain"
	"github.com/varmesh/varmesh-go/internal/core/service"
	"github.com/varmesh/varmesh-go/internal/server/store"
	"github.com/varmesh/varmesh-go/internal/telemetry/metric"
	"github.com/varmesh/varmesh-go/internal/transport"
)

// Hub routes variable changes between connected clients.
type Hub struct {
	auth     *service.AuthService
	store    store.Store
	logger   *slog.Logger
	metrics  *metric.Metrics
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[string]map[*session]struct{}
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hub) {
		h.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metric.Metrics) Option {
	return func(h *Hub) {
		h.metrics = m
	}
}

// New creates a hub backed by st, authenticating against auth.
func New(auth *service.AuthService, st store.Store, opts ...Option) *Hub {
	h := &Hub{
		auth:    auth,
		store:   st,
		logger:  slog.Default(),
		metrics: metric.New(),
		subs:    make(map[string]map[*session]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ServeHTTP upgrades the connection and runs its session until it drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed",
			"remote", r.RemoteAddr,
			"error", err,
		)
		return
	}

	s := &session{
		hub:        h,
		conn:       conn,
		subscribed: make(map[string]struct{}),
	}
	s.run(r.Context())
}

func subKey(tenantID, serviceID string) string {
	return tenantID + "_" + serviceID
}

func (h *Hub) subscribe(key string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[key] == nil {
		h.subs[key] = make(map[*session]struct{})
	}
	h.subs[key][s] = struct{}{}
}

func (h *Hub) unsubscribe(key string, s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[key], s)
	if len(h.subs[key]) == 0 {
		delete(h.subs, key)
	}
}

// broadcast sends env to every subscriber of key except from.
func (h *Hub) broadcast(key string, from *session, env transport.Envelope) {
	h.mu.RLock()
	peers := make([]*session, 0, len(h.subs[key]))
	for s := range h.subs[key] {
		if s != from {
			peers = append(peers, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range peers {
		if err := s.write(env); err != nil {
			h.logger.Debug("broadcast write failed", "error", err)
		}
	}
}

// session is one client connection.
type session struct {
	hub  *Hub
	conn *websocket.Conn

	writeMu sync.Mutex

	key        *domain.APIKey
	clientID   string
	subscribed map[string]struct{}
}

func (s *session) write(env transport.Envelope) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(env)
}

func (s *session) writeError(code, message string) {
	err := s.write(transport.Envelope{
		Type: transport.TypeError,
		Data: transport.ErrorFrame{Code: code, Message: message},
	})
	if err != nil {
		s.hub.logger.Debug("error frame write failed", "error", err)
	}
}

func (s *session) run(ctx context.Context) {
	defer s.close()

	for {
		var env struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := s.conn.ReadJSON(&env); err != nil {
			return
		}

		switch env.Type {
		case transport.TypeAuthenticate:
			s.handleAuthenticate(ctx, env.Data)
		case transport.TypeSubscribe:
			s.handleSubscribe(ctx, env.Data)
		case transport.TypeUnsubscribe:
			s.handleUnsubscribe(env.Data)
		case transport.TypeReportChanges:
			s.handleReportChanges(ctx, env.Data)
		case transport.TypeGetFilePath:
			s.handleGetFilePath(ctx, env.Data)
		case transport.TypeHeartbeat:
			if err := s.write(transport.Envelope{Type: transport.TypeHeartbeat}); err != nil {
				return
			}
		case transport.TypeDisconnect:
			return
		default:
			s.writeError(transport.CodeInvalidRequest, "unknown frame "+env.Type)
		}
	}
}

func (s *session) handleAuthenticate(ctx context.Context, raw json.RawMessage) {
	var req transport.AuthRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeError(transport.CodeInvalidRequest, "bad authenticate frame")
		return
	}

	key, err := s.hub.auth.Authenticate(ctx, req.KeyID, req.Key)
	if err != nil {
		s.hub.logger.Warn("authentication failed",
			"key_id", req.KeyID,
			"error", err,
		)
		if werr := s.write(transport.Envelope{
			Type: transport.TypeAuthResult,
			Data: transport.AuthResult{OK: false, Message: "invalid credentials"},
		}); werr != nil {
			s.hub.logger.Debug("auth result write failed", "error", werr)
		}
		return
	}
	if req.TenantID != "" && req.TenantID != key.TenantID {
		if werr := s.write(transport.Envelope{
			Type: transport.TypeAuthResult,
			Data: transport.AuthResult{OK: false, Message: "tenant mismatch"},
		}); werr != nil {
			s.hub.logger.Debug("auth result write failed", "error", werr)
		}
		return
	}

	s.key = key
	s.clientID = req.ClientID
	s.hub.logger.Info("client authenticated",
		"key_id", key.ID,
		"tenant_id", key.TenantID,
		"client_id", req.ClientID,
	)
	if err := s.write(transport.Envelope{
		Type: transport.TypeAuthResult,
		Data: transport.AuthResult{OK: true},
	}); err != nil {
		s.hub.logger.Debug("auth result write failed", "error", err)
	}
}

func (s *session) handleSubscribe(ctx context.Context, raw json.RawMessage) {
	var req transport.Subscribe
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeError(transport.CodeInvalidRequest, "bad subscribe frame")
		return
	}
	if !s.authorize(req.ServiceID) {
		return
	}

	key := subKey(s.key.TenantID, req.ServiceID)
	s.hub.subscribe(key, s)
	s.subscribed[key] = struct{}{}

	data, err := s.hub.store.LoadServiceFile(ctx, s.key.TenantID, req.ServiceID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.writeError(transport.CodeInternalError, "cannot load service file")
		return
	}

	if werr := s.write(transport.Envelope{
		Type: transport.TypeFullSnapshot,
		Data: transport.FullSnapshot{ServiceID: req.ServiceID, Data: data},
	}); werr != nil {
		s.hub.logger.Debug("snapshot write failed", "error", werr)
	}
}

func (s *session) handleUnsubscribe(raw json.RawMessage) {
	var req transport.Subscribe
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeError(transport.CodeInvalidRequest, "bad unsubscribe frame")
		return
	}
	if s.key == nil {
		s.writeError(transport.CodeUnauthorized, "authenticate first")
		return
	}

	key := subKey(s.key.TenantID, req.ServiceID)
	s.hub.unsubscribe(key, s)
	delete(s.subscribed, key)
}

func (s *session) handleReportChanges(ctx context.Context, raw json.RawMessage) {
	var delta transport.Delta
	if err := json.Unmarshal(raw, &delta); err != nil {
		s.writeError(transport.CodeInvalidRequest, "bad delta frame")
		return
	}
	if !s.authorize(delta.ServiceID) {
		return
	}

	if err := s.mergeDelta(ctx, &delta); err != nil {
		s.hub.logger.Error("delta merge failed",
			"service_id", delta.ServiceID,
			"error", err,
		)
		s.writeError(transport.CodeInternalError, "cannot persist delta")
		return
	}

	s.hub.metrics.DeltasApplied.Inc()

	if err := s.write(transport.Envelope{
		Type: transport.TypeChangesAck,
		Data: transport.Ack{ServiceID: delta.ServiceID, Names: delta.Names},
	}); err != nil {
		s.hub.logger.Debug("ack write failed", "error", err)
	}

	s.hub.broadcast(subKey(s.key.TenantID, delta.ServiceID), s, transport.Envelope{
		Type: transport.TypeVariableChanged,
		Data: delta,
	})
}

// mergeDelta applies the changed variables to the stored file content,
// growing it when a pair reaches past the current end.
func (s *session) mergeDelta(ctx context.Context, delta *transport.Delta) error {
	content, err := s.hub.store.LoadServiceFile(ctx, s.key.TenantID, delta.ServiceID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	for _, p := range delta.Pairs {
		end := p.Offset + uint64(len(p.Data))
		if end > uint64(len(content)) {
			grown := make([]byte, end)
			copy(grown, content)
			content = grown
		}
		copy(content[p.Offset:end], p.Data)
	}

	return s.hub.store.SaveServiceFile(ctx, s.key.TenantID, delta.ServiceID, content)
}

func (s *session) handleGetFilePath(ctx context.Context, raw json.RawMessage) {
	var req transport.Subscribe
	if err := json.Unmarshal(raw, &req); err != nil {
		s.writeError(transport.CodeInvalidRequest, "bad request frame")
		return
	}
	if !s.authorize(req.ServiceID) {
		return
	}

	var size uint64
	if data, err := s.hub.store.LoadServiceFile(ctx, s.key.TenantID, req.ServiceID); err == nil {
		size = uint64(len(data))
	}

	if werr := s.write(transport.Envelope{
		Type: transport.TypeServiceFilePath,
		Data: transport.ServiceFilePath{
			ServiceID: req.ServiceID,
			Path:      "service_" + req.ServiceID + ".mem",
			Size:      size,
		},
	}); werr != nil {
		s.hub.logger.Debug("file path write failed", "error", werr)
	}
}

// authorize checks authentication and the key's service allowlist,
// reporting the failure to the client.
func (s *session) authorize(serviceID string) bool {
	if s.key == nil {
		s.writeError(transport.CodeUnauthorized, "authenticate first")
		return false
	}
	if err := s.hub.auth.Authorize(s.key, s.key.TenantID, serviceID); err != nil {
		s.writeError(transport.CodePermissionDenied, "access denied for "+serviceID)
		return false
	}
	return true
}

func (s *session) close() {
	for key := range s.subscribed {
		s.hub.unsubscribe(key, s)
	}
	s.conn.Close()
	if s.key != nil {
		s.hub.logger.Info("client disconnected",
			"key_id", s.key.ID,
			"client_id", s.clientID,
		)
	}
}
