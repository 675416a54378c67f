package sync

// ProtocolError marks a malformed sync request. It is reported to the
// remote client as a request-level error and never crashes the service.
type ProtocolError struct {
	Msg string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Msg
}
