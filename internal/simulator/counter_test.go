package simulator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInFlight_AcquireRelease(t *testing.T) {
	var c InFlight

	n1, r1 := c.Acquire()
	n2, r2 := c.Acquire()
	assert.Equal(t, int64(1), n1)
	assert.Equal(t, int64(2), n2)

	r1()
	r1()
	assert.Equal(t, int64(1), c.Load(), "second release must be a no-op")

	r2()
	assert.Equal(t, int64(0), c.Load())
	assert.Equal(t, int64(2), c.Peak())
}

func TestInFlight_Concurrent(t *testing.T) {
	var c InFlight
	var wg sync.WaitGroup

	for i := 0; i < 500; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, release := c.Acquire()
			defer release()
			assert.GreaterOrEqual(t, n, int64(1))
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(0), c.Load())
	assert.LessOrEqual(t, c.Peak(), int64(500))
	assert.GreaterOrEqual(t, c.Peak(), int64(1))
}
