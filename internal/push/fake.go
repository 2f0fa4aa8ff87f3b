package push

import (
	"context"
	"sync"
)

// FakeDispatcher records sends for tests. Not intended for production use.
type FakeDispatcher struct {
	mu    sync.Mutex
	sends []RecordedSend

	// Err, when set, is returned by every Send without recording it.
	Err error
}

type RecordedSend struct {
	DeviceToken string
	Payload     RingPayload
}

func NewFakeDispatcher() *FakeDispatcher { return &FakeDispatcher{} }

func (f *FakeDispatcher) Send(ctx context.Context, deviceToken string, p RingPayload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.sends = append(f.sends, RecordedSend{DeviceToken: deviceToken, Payload: p})
	return nil
}

func (f *FakeDispatcher) Sends() []RecordedSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]RecordedSend, len(f.sends))
	copy(out, f.sends)
	return out
}
