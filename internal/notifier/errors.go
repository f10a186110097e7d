package notifier

import "errors"

// Error kinds distinguishing how the worker's state machine settles a
// ReminderEvent.
var (
	// ErrTerminalPush means the push gateway reports the subscription is
	// gone (HTTP 400/410): delete the subscription, no retry will help.
	ErrTerminalPush = errors.New("push subscription is no longer valid")
	// ErrTransientPush means a network error, 5xx, or 429: the bus should
	// redeliver.
	ErrTransientPush = errors.New("transient push delivery failure")
	// ErrDrop marks an event the worker can never process (decode failure)
	// so it is acknowledged without retry instead of poisoning the topic.
	ErrDrop = errors.New("event dropped: unprocessable")
)
