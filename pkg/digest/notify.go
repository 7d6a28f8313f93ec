package digest

import (
	"context"
	"errors"
	"fmt"
)

// Notifier delivers a message to a chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Job returns an automation run func posting the digest to every notifier.
// All notifiers are tried; their errors are joined.
func (c *Commands) Job(notifiers ...Notifier) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		text, err := c.Digest()
		if err != nil {
			return err
		}
		var errs []error
		for _, n := range notifiers {
			if err := n.Notify(ctx, text); err != nil {
				errs = append(errs, fmt.Errorf("failed to post digest: %w", err))
			}
		}
		return errors.Join(errs...)
	}
}
