package transport

// Message type tags on the wire. Client-to-server and server-to-client
// frames share one envelope shape: {"type": ..., "data": ...}.
const (
	// Client to server.
	TypeAuthenticate  = "authenticate"
	TypeGetService    = "get_service"
	TypeGetFilePath   = "get_service_file_path"
	TypeReportChanges = "report_variable_changes"
	TypeSubscribe     = "subscribe"
	TypeUnsubscribe   = "unsubscribe"
	TypeHeartbeat     = "heartbeat"
	TypeDisconnect    = "disconnect"

	// Server to client.
	TypeAuthResult      = "authentication_result"
	TypeService         = "service"
	TypeServiceFilePath = "service_file_path"
	TypeFullSnapshot    = "full_snapshot"
	TypeVariableChanged = "variable_changed"
	TypeChangesAck      = "variable_changes_acknowledged"
	TypeError           = "error"
)

// Error codes carried in Error frames.
const (
	CodeNotFound         = "NOT_FOUND"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeInternalError    = "INTERNAL_ERROR"
	CodeConnectionLost   = "CONNECTION_LOST"
	CodeTimeout          = "TIMEOUT"
)

// Envelope is the wire frame: a type tag plus a raw payload.
type Envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Pair is one variable-level delta entry. Offset locates the value in
// the service file so peers without the variable registry can still
// merge the change.
type Pair struct {
	Name   string `json:"name"`
	Offset uint64 `json:"offset"`
	Data   []byte `json:"data"`
}

// Delta is a variable-level change set for one service.
type Delta struct {
	ServiceID string   `json:"service_id"`
	Names     []string `json:"changed_variables"`
	Pairs     []Pair   `json:"new_values"`
}

// FullSnapshot is the complete service file content, used only to
// initialize a remote buffer at virtual file creation.
type FullSnapshot struct {
	ServiceID string `json:"service_id"`
	Data      []byte `json:"data"`
	Version   uint64 `json:"version"`
}

// AuthRequest carries client credentials.
type AuthRequest struct {
	KeyID    string `json:"key_id"`
	Key      string `json:"key"`
	TenantID string `json:"tenant_id"`
	ClientID string `json:"client_id"`
}

// AuthResult reports the outcome of authentication.
type AuthResult struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Subscribe asks for change notifications on a service.
type Subscribe struct {
	TenantID  string `json:"tenant_id"`
	ServiceID string `json:"service_id"`
}

// ServiceFilePath names the server-assigned backing file for a service.
type ServiceFilePath struct {
	ServiceID string `json:"service_id"`
	Path      string `json:"path"`
	Size      uint64 `json:"size"`
}

// Ack acknowledges a delivered delta.
type Ack struct {
	ServiceID string   `json:"service_id"`
	Names     []string `json:"changed_variables"`
}

// ErrorFrame is a server-side failure report.
type ErrorFrame struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
