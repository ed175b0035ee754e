package mail

import (
	"context"
	"sync/atomic"
)

// Switch forwards to the Sender most recently installed with Set.
// The app swaps backends on config reload without rebuilding consumers.
type Switch struct {
	cur atomic.Pointer[senderBox]
}

type senderBox struct{ s Sender }

func NewSwitch(s Sender) *Switch {
	w := &Switch{}
	w.Set(s)
	return w
}

func (w *Switch) Set(s Sender) { w.cur.Store(&senderBox{s: s}) }

func (w *Switch) Send(ctx context.Context, msg Message) error {
	b := w.cur.Load()
	if b == nil || b.s == nil {
		return ErrNoSender
	}
	return b.s.Send(ctx, msg)
}
