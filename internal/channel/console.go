package channel

import (
	"context"
	"log"
)

// ConsoleChannel logs messages instead of delivering them. Used when no chat
// transport is configured.
type ConsoleChannel struct{}

func NewConsoleChannel() *ConsoleChannel {
	return &ConsoleChannel{}
}

func (c *ConsoleChannel) Name() string {
	return "console"
}

func (c *ConsoleChannel) SendText(_ context.Context, recipient, text string) error {
	log.Printf("[console] to=%s text=%s", recipient, text)
	return nil
}
