package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

// DefaultWriteTimeout bounds a single websocket write.
const DefaultWriteTimeout = 10 * time.Second

// wireEnvelope is the decode-side frame: the payload stays raw until the
// type tag has been inspected.
type wireEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WS is a websocket-backed Transport speaking JSON frames.
type WS struct {
	conn      *websocket.Conn
	logger    *slog.Logger
	tlsConfig *tls.Config

	writeMu      sync.Mutex
	writeTimeout time.Duration

	// sendMu serializes SendDelta calls so acks pair with their delta;
	// the connection is order-preserving.
	sendMu sync.Mutex

	inbound chan Inbound
	acks    chan wireEnvelope

	done      chan struct{}
	closeOnce sync.Once
}

// WSOption configures a WS transport.
type WSOption func(*WS)

// WithWSLogger sets the logger.
func WithWSLogger(logger *slog.Logger) WSOption {
	return func(w *WS) {
		w.logger = logger
	}
}

// WithWriteTimeout sets the per-write deadline.
func WithWriteTimeout(d time.Duration) WSOption {
	return func(w *WS) {
		w.writeTimeout = d
	}
}

// WithDialTLS sets the TLS configuration used for wss:// dials.
func WithDialTLS(cfg *tls.Config) WSOption {
	return func(w *WS) {
		w.tlsConfig = cfg
	}
}

// DialWS connects to a VarMesh server at url (ws:// or wss://) and starts
// the read pump. Extra headers carry whatever credentials the caller's
// authentication layer produced.
func DialWS(ctx context.Context, url string, header http.Header, opts ...WSOption) (*WS, error) {
	w := &WS{
		logger:       slog.Default(),
		writeTimeout: DefaultWriteTimeout,
		inbound:      make(chan Inbound, 16),
		acks:         make(chan wireEnvelope, 1),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	dialer := *websocket.DefaultDialer
	if w.tlsConfig != nil {
		dialer.TLSClientConfig = w.tlsConfig
	}
	conn, _, err := dialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, domain.ErrConnectionLost.WithCause(err)
	}
	w.conn = conn

	go w.readPump()
	return w, nil
}

// Send writes one envelope to the peer. Exposed for session frames
// (authenticate, heartbeat, disconnect) owned by layers above this one.
func (w *WS) Send(env Envelope) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	if err := w.conn.WriteJSON(env); err != nil {
		return domain.ErrConnectionLost.WithCause(err)
	}
	return nil
}

// SendDelta delivers a change set and blocks until the peer acknowledges.
func (w *WS) SendDelta(ctx context.Context, serviceID string, names []string, pairs []Pair) error {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	delta := Delta{ServiceID: serviceID, Names: names, Pairs: pairs}
	if err := w.Send(Envelope{Type: TypeReportChanges, Data: delta}); err != nil {
		return err
	}

	select {
	case env, ok := <-w.acks:
		if !ok {
			return domain.ErrConnectionLost
		}
		return w.checkAck(env, serviceID)
	case <-ctx.Done():
		return domain.ErrTimeout.WithCause(ctx.Err())
	case <-w.done:
		return domain.ErrConnectionLost
	}
}

func (w *WS) checkAck(env wireEnvelope, serviceID string) error {
	switch env.Type {
	case TypeChangesAck:
		var ack Ack
		if err := json.Unmarshal(env.Data, &ack); err != nil {
			return domain.ErrConnectionLost.WithCause(err)
		}
		if ack.ServiceID != serviceID {
			return domain.ErrConnectionLost.WithDetails(
				fmt.Sprintf("ack for %s, expected %s", ack.ServiceID, serviceID))
		}
		return nil
	case TypeError:
		var ef ErrorFrame
		if err := json.Unmarshal(env.Data, &ef); err != nil {
			return domain.ErrConnectionLost.WithCause(err)
		}
		return errorFromFrame(ef)
	default:
		return domain.ErrConnectionLost.WithDetails("unexpected frame " + env.Type)
	}
}

// Authenticate performs the credential handshake. It must complete before
// any other request.
func (w *WS) Authenticate(ctx context.Context, req AuthRequest) error {
	env, err := w.roundTrip(ctx, Envelope{Type: TypeAuthenticate, Data: req})
	if err != nil {
		return err
	}

	switch env.Type {
	case TypeAuthResult:
		var res AuthResult
		if err := json.Unmarshal(env.Data, &res); err != nil {
			return domain.ErrConnectionLost.WithCause(err)
		}
		if !res.OK {
			return domain.ErrNotAuthenticated.WithDetails(res.Message)
		}
		return nil
	case TypeError:
		var ef ErrorFrame
		if err := json.Unmarshal(env.Data, &ef); err != nil {
			return domain.ErrConnectionLost.WithCause(err)
		}
		return errorFromFrame(ef)
	default:
		return domain.ErrConnectionLost.WithDetails("unexpected frame " + env.Type)
	}
}

// Subscribe registers interest in a service. The server answers with a
// full snapshot on the inbound stream.
func (w *WS) Subscribe(tenantID, serviceID string) error {
	return w.Send(Envelope{Type: TypeSubscribe, Data: Subscribe{TenantID: tenantID, ServiceID: serviceID}})
}

// Unsubscribe drops interest in a service.
func (w *WS) Unsubscribe(tenantID, serviceID string) error {
	return w.Send(Envelope{Type: TypeUnsubscribe, Data: Subscribe{TenantID: tenantID, ServiceID: serviceID}})
}

// GetServiceFilePath asks the server where the service file lives.
func (w *WS) GetServiceFilePath(ctx context.Context, serviceID string) (ServiceFilePath, error) {
	env, err := w.roundTrip(ctx, Envelope{Type: TypeGetFilePath, Data: Subscribe{ServiceID: serviceID}})
	if err != nil {
		return ServiceFilePath{}, err
	}

	switch env.Type {
	case TypeServiceFilePath:
		var sfp ServiceFilePath
		if err := json.Unmarshal(env.Data, &sfp); err != nil {
			return ServiceFilePath{}, domain.ErrConnectionLost.WithCause(err)
		}
		return sfp, nil
	case TypeError:
		var ef ErrorFrame
		if err := json.Unmarshal(env.Data, &ef); err != nil {
			return ServiceFilePath{}, domain.ErrConnectionLost.WithCause(err)
		}
		return ServiceFilePath{}, errorFromFrame(ef)
	default:
		return ServiceFilePath{}, domain.ErrConnectionLost.WithDetails("unexpected frame " + env.Type)
	}
}

// roundTrip sends one request frame and waits for its reply. Replies share
// the ack channel with delta acknowledgments, so the send mutex serializes
// all request/response exchanges on the connection.
func (w *WS) roundTrip(ctx context.Context, env Envelope) (wireEnvelope, error) {
	w.sendMu.Lock()
	defer w.sendMu.Unlock()

	if err := w.Send(env); err != nil {
		return wireEnvelope{}, err
	}

	select {
	case reply, ok := <-w.acks:
		if !ok {
			return wireEnvelope{}, domain.ErrConnectionLost
		}
		return reply, nil
	case <-ctx.Done():
		return wireEnvelope{}, domain.ErrTimeout.WithCause(ctx.Err())
	case <-w.done:
		return wireEnvelope{}, domain.ErrConnectionLost
	}
}

// Receive blocks for the next inbound snapshot or delta.
func (w *WS) Receive(ctx context.Context) (Inbound, error) {
	select {
	case in, ok := <-w.inbound:
		if !ok {
			return Inbound{}, domain.ErrConnectionLost
		}
		return in, nil
	case <-ctx.Done():
		return Inbound{}, ctx.Err()
	case <-w.done:
		return Inbound{}, domain.ErrConnectionLost
	}
}

// readPump decodes frames and routes them: snapshots and peer deltas to
// Receive, acks and errors to the pending SendDelta.
func (w *WS) readPump() {
	defer close(w.inbound)

	for {
		var env wireEnvelope
		if err := w.conn.ReadJSON(&env); err != nil {
			select {
			case <-w.done:
			default:
				w.logger.Error("websocket read failed", "error", err)
			}
			w.Close()
			return
		}

		switch env.Type {
		case TypeFullSnapshot:
			var snap FullSnapshot
			if err := json.Unmarshal(env.Data, &snap); err != nil {
				w.logger.Error("bad snapshot frame", "error", err)
				continue
			}
			w.deliver(Inbound{Snapshot: &snap})

		case TypeVariableChanged:
			var delta Delta
			if err := json.Unmarshal(env.Data, &delta); err != nil {
				w.logger.Error("bad delta frame", "error", err)
				continue
			}
			w.deliver(Inbound{Delta: &delta})

		case TypeChangesAck, TypeError, TypeAuthResult, TypeServiceFilePath:
			select {
			case w.acks <- env:
			case <-w.done:
				return
			default:
				w.logger.Warn("dropping unsolicited frame", "type", env.Type)
			}

		default:
			w.logger.Debug("ignoring frame", "type", env.Type)
		}
	}
}

func (w *WS) deliver(in Inbound) {
	select {
	case w.inbound <- in:
	case <-w.done:
	}
}

// Close tears the connection down and wakes blocked callers. Idempotent.
func (w *WS) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

func errorFromFrame(ef ErrorFrame) error {
	switch ef.Code {
	case CodeNotFound:
		return domain.ErrVariableNotFound.WithDetails(ef.Message)
	case CodePermissionDenied:
		return domain.ErrPermissionDenied.WithDetails(ef.Message)
	case CodeUnauthorized:
		return domain.ErrNotAuthenticated.WithDetails(ef.Message)
	case CodeTimeout:
		return domain.ErrTimeout.WithDetails(ef.Message)
	case CodeConnectionLost:
		return domain.ErrConnectionLost.WithDetails(ef.Message)
	default:
		return domain.ErrConnectionLost.WithDetails(ef.Code + ": " + ef.Message)
	}
}
