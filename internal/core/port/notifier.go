package port

import "context"

// Delivery describes one outbound OTP message.
type Delivery struct {
	Recipient string
	Subject   string
	Body      string
}

// Notifier sends a single message to a recipient over whichever channel fits
// the recipient format. Implementations are injected; the engine never talks
// to a provider directly.
type Notifier interface {
	Send(ctx context.Context, delivery Delivery) error
}

// Dispatcher accepts deliveries for asynchronous, retried sending. Enqueue
// must not block the caller on provider latency.
type Dispatcher interface {
	Enqueue(delivery Delivery) bool
}
