package channel

import (
	"context"
	"log"
)

// Fanout delivers one message to every configured recipient, each attempted
// independently so a failed delivery to one recipient never blocks the rest.
type Fanout struct {
	notifier   Notifier
	recipients []string
}

func NewFanout(notifier Notifier, recipients []string) *Fanout {
	return &Fanout{notifier: notifier, recipients: recipients}
}

func (f *Fanout) Broadcast(ctx context.Context, text string) {
	if f == nil || f.notifier == nil {
		return
	}
	for _, recipient := range f.recipients {
		if err := f.notifier.SendText(ctx, recipient, text); err != nil {
			log.Printf("notify: %s delivery to %s failed: %v", f.notifier.Name(), recipient, err)
		}
	}
}
