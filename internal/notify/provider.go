// Package notify delivers alert notifications to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/darshan-rambhia/pacemon/internal/model"
	"golang.org/x/sync/errgroup"
)

// Provider sends notifications through a specific channel.
type Provider interface {
	Name() string
	Send(ctx context.Context, n model.Notification) error
}

// Broadcast sends n to every provider concurrently. One slow or failing
// channel does not hold back the others; all failures are joined.
func Broadcast(ctx context.Context, providers []Provider, n model.Notification) error {
	errs := make([]error, len(providers))
	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			if err := p.Send(ctx, n); err != nil {
				errs[i] = fmt.Errorf("%s: %w", p.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// title prefixes the notification title with its cluster and resolution.
func title(n model.Notification) string {
	t := n.Title
	if n.Cluster != "" {
		t = fmt.Sprintf("[%s] %s", n.Cluster, t)
	}
	if n.Resolved {
		t = "Resolved: " + t
	}
	return t
}
