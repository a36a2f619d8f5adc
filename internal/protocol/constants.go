// Package protocol defines the WebSocket message protocol between client and server.
package protocol

// Close codes used when terminating a connection before the normal message loop starts.
const (
	// ClosePolicyViolation is sent when the connect-time token is missing or invalid.
	// Matches RFC 6455 code 1008.
	ClosePolicyViolation = 1008
)

// Server frame type discriminants (the "type" field of ServerFrame).
const (
	TypeInit        = "init"
	TypeAck         = "ack"
	TypeOp          = "op"
	TypeSyncNeeded  = "sync_needed"
	TypeError       = "error"
)
