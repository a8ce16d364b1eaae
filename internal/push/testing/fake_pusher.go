// Package testing provides test doubles for the push package.
package testing

import (
	"context"
	"sync"

	"github.com/get-convex/deployctl/internal/push"
)

// FakePusher records Push calls and returns a configured error.
type FakePusher struct {
	mu sync.Mutex

	Err   error
	Calls []push.Options
}

// NewFakePusher creates a fake pusher that succeeds by default.
func NewFakePusher() *FakePusher {
	return &FakePusher{}
}

// Push records the call and returns the configured error.
func (f *FakePusher) Push(_ context.Context, opts push.Options) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, opts)
	return f.Err
}

// CallCount returns the number of recorded pushes.
func (f *FakePusher) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
