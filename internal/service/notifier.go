package service

// EventNotifier pushes real-time events to connected parties. Delivery
// is best effort: implementations must never block or fail the caller,
// and dispatch happens only after the owning transaction has committed.
type EventNotifier interface {
	Notify(userID uint, event string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Notify(uint, string, interface{}) {}

// NopNotifier is used when no realtime channel is wired (tests, CLIs).
func NopNotifier() EventNotifier { return noopNotifier{} }
