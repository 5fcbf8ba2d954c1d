package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryGuard_AllowsOncePerPass(t *testing.T) {
	g := NewRetryGuard()

	assert.True(t, g.Allow("pass-1", "soccer"))
	assert.False(t, g.Allow("pass-1", "soccer"))
	assert.True(t, g.Retried("pass-1", "soccer"))
	assert.True(t, g.Allow("pass-2", "soccer"), "passes are independent")
	assert.Equal(t, 2, g.Size())

	g.Clear("pass-1")
	assert.False(t, g.Retried("pass-1", "soccer"))
	assert.Equal(t, 1, g.Size())
}

func TestRetryGuard_ThreadSafe(t *testing.T) {
	g := NewRetryGuard()
	var wg sync.WaitGroup
	allowed := make(chan bool, 50)

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			allowed <- g.Allow("pass-1", "soccer")
		}()
	}
	wg.Wait()
	close(allowed)

	n := 0
	for ok := range allowed {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n)
}
