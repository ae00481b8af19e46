package service

// Identity is the authenticated caller, resolved exactly once at the edge
// (HTTP middleware or the websocket handshake). Services never look at raw
// tokens or request fields for identity.
type Identity struct {
	UserID     string
	Username   string
	Privileged bool
}
