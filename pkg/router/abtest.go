// Package router decides which branch of an A/B test serves a request.
package router

import (
	"fmt"
	"math/rand"
	"sync"
)

// Branches of an A/B test.
const (
	BranchA = 0
	BranchB = 1
)

// ABTest sends a share BRatio of traffic to branch B.
type ABTest struct {
	BRatio float64

	mu   sync.Mutex
	rand func() float64
}

// NewABTest creates a router sending bRatio of the traffic to branch B.
// bRatio must be within [0,1].
func NewABTest(bRatio float64) (*ABTest, error) {
	if bRatio < 0 || bRatio > 1 {
		return nil, fmt.Errorf("b ratio must be within [0,1] (got %v)", bRatio)
	}
	return &ABTest{BRatio: bRatio, rand: rand.Float64}, nil
}

// WithRand replaces the random source. Used by tests.
func (r *ABTest) WithRand(fn func() float64) *ABTest {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand = fn
	return r
}

// Route returns BranchB when a uniform draw is <= BRatio, BranchA otherwise.
func (r *ABTest) Route() int {
	r.mu.Lock()
	draw := r.rand()
	r.mu.Unlock()

	if draw <= r.BRatio {
		return BranchB
	}
	return BranchA
}
