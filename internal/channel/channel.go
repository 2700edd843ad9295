package channel

import "context"

// Notifier delivers one text message to one recipient.
type Notifier interface {
	Name() string
	SendText(ctx context.Context, recipient, text string) error
}
