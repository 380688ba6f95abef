package transport

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/varmesh/varmesh-go/internal/core/domain"
)

func TestLoopback_DeltaRoundTrip(t *testing.T) {
	a, b := NewLoopbackPair()
	defer a.Close()
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	pairs := []Pair{{Name: "counter", Data: []byte{0, 0, 0, 42}}}
	if err := a.SendDelta(ctx, "svc1", []string{"counter"}, pairs); err != nil {
		t.Fatalf("SendDelta: %v", err)
	}

	in, err := b.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if in.Delta == nil {
		t.Fatal("Receive returned no delta")
	}
	if in.Delta.ServiceID != "svc1" || len(in.Delta.Pairs) != 1 || in.Delta.Pairs[0].Name != "counter" {
		t.Fatalf("delta = %+v", in.Delta)
	}
}

func TestLoopback_FailureInjection(t *testing.T) {
	a, b := NewLoopbackPair()
	defer a.Close()
	defer b.Close()

	want := errors.New("link down")
	a.FailNextSends(want)

	err := a.SendDelta(context.Background(), "svc1", nil, nil)
	if !errors.Is(err, want) {
		t.Fatalf("SendDelta err = %v, want %v", err, want)
	}

	a.FailNextSends(nil)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := a.SendDelta(ctx, "svc1", nil, nil); err != nil {
		t.Fatalf("SendDelta after reset: %v", err)
	}
}

func TestLoopback_CloseWakesReceiver(t *testing.T) {
	a, _ := NewLoopbackPair()

	errCh := make(chan error, 1)
	go func() {
		_, err := a.Receive(context.Background())
		errCh <- err
	}()

	a.Close()
	a.Close() // idempotent

	select {
	case err := <-errCh:
		if !errors.Is(err, domain.ErrConnectionLost) {
			t.Fatalf("Receive err = %v, want ErrConnectionLost", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Receive did not return after Close")
	}
}

func TestLoopback_ReceiveContextCancel(t *testing.T) {
	a, _ := NewLoopbackPair()
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := a.Receive(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Receive err = %v, want context.Canceled", err)
	}
}

func TestEnvelope_WireShape(t *testing.T) {
	env := Envelope{
		Type: TypeReportChanges,
		Data: Delta{
			ServiceID: "svc1",
			Names:     []string{"a"},
			Pairs:     []Pair{{Name: "a", Data: []byte{1}}},
		},
	}

	raw, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded wireEnvelope
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal envelope: %v", err)
	}
	if decoded.Type != TypeReportChanges {
		t.Fatalf("type = %q", decoded.Type)
	}

	var delta Delta
	if err := json.Unmarshal(decoded.Data, &delta); err != nil {
		t.Fatalf("Unmarshal delta: %v", err)
	}
	if delta.ServiceID != "svc1" || delta.Pairs[0].Name != "a" {
		t.Fatalf("delta = %+v", delta)
	}
}

func TestErrorFromFrame(t *testing.T) {
	tests := []struct {
		code string
		want error
	}{
		{CodeNotFound, domain.ErrVariableNotFound},
		{CodePermissionDenied, domain.ErrPermissionDenied},
		{CodeUnauthorized, domain.ErrNotAuthenticated},
		{CodeTimeout, domain.ErrTimeout},
		{CodeConnectionLost, domain.ErrConnectionLost},
		{"SOMETHING_ELSE", domain.ErrConnectionLost},
	}

	for _, tt := range tests {
		err := errorFromFrame(ErrorFrame{Code: tt.code, Message: "m"})
		if !errors.Is(err, tt.want) {
			t.Fatalf("code %s: err = %v, want %v", tt.code, err, tt.want)
		}
	}
}
