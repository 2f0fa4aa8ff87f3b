package push

import "context"

// Dispatcher delivers a wake payload to one addressable device and reports
// success or failure for that single send.
//
// Implementations own their transport timeout. The relay never retries a
// send: a retried ring is audible on the callee's device, so retry policy
// belongs to the caller of the service.
type Dispatcher interface {
	Send(ctx context.Context, deviceToken string, p RingPayload) error
}
