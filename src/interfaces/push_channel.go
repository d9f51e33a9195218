package interfaces

// -----------------------------------------------------------------------------
// IPushChannel is the session-scoped duplex connection to the backend's
// real-time endpoint. One logical connection per authenticated session.
// -----------------------------------------------------------------------------

type IPushChannel interface {

	// -----------------------------------------------------------------------------

	// Connect opens the channel with the session credential. Idempotent while
	// already Connecting or Open; a successful connect resets the reconnect
	// attempt counter.
	Connect(sessionToken string) error

	// -----------------------------------------------------------------------------

	// Disconnect closes the channel deterministically and cancels any pending
	// reconnect timer. The channel will not auto-reconnect afterwards.
	Disconnect()

	// -----------------------------------------------------------------------------

	// State reports the current lifecycle state.
	State() ChannelState
}

// -----------------------------------------------------------------------------

type ChannelState int32

const (
	ChannelDisconnected ChannelState = iota
	ChannelConnecting
	ChannelOpen
	ChannelClosed
)

func (s ChannelState) String() string {
	switch s {
	case ChannelDisconnected:
		return "disconnected"
	case ChannelConnecting:
		return "connecting"
	case ChannelOpen:
		return "open"
	case ChannelClosed:
		return "closed"
	default:
		return "unknown"
	}
}
