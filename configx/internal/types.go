// Package internal implements the sources, merging and binding behind configx.
package internal

import "context"

// Source loads a flat key/value snapshot and publishes new snapshots on change.
type Source interface {
	Load(ctx context.Context) (map[string]string, error)

	// Watch returns a channel of fresh snapshots. The channel is closed when ctx ends.
	Watch(ctx context.Context) (<-chan map[string]string, error)
}

// idleWatch returns a channel that never delivers and closes when ctx ends.
func idleWatch(ctx context.Context) <-chan map[string]string {
	ch := make(chan map[string]string)
	go func() {
		defer close(ch)
		<-ctx.Done()
	}()
	return ch
}
