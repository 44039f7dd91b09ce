package workerpool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPoolRunsAtMostSizeConcurrently(t *testing.T) {
	const size = 3
	p := New(size)
	defer p.Close()

	var active int32
	var peak int32
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(10)
	for i := 0; i < 10; i++ {
		p.Submit(func() {
			defer wg.Done()
			n := atomic.AddInt32(&active, 1)
			mu.Lock()
			if n > peak {
				peak = n
			}
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&active, -1)
		})
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int32(size))
}

func TestPoolCloseIsIdempotentAndWaitsForInFlight(t *testing.T) {
	p := New(1)

	var ran int32
	started := make(chan struct{})
	done := make(chan struct{})
	p.Submit(func() {
		close(started)
		time.Sleep(30 * time.Millisecond)
		atomic.AddInt32(&ran, 1)
		close(done)
	})

	// Close only once the func is running, so it is in flight rather than
	// still waiting for a slot.
	<-started
	p.Close()
	p.Close()

	select {
	case <-done:
	default:
		t.Fatal("Close returned before in-flight work finished")
	}
	assert.EqualValues(t, 1, ran)
}

func TestPoolSubmitAfterCloseIsNoop(t *testing.T) {
	p := New(1)
	p.Close()

	called := false
	p.Submit(func() { called = true })
	time.Sleep(10 * time.Millisecond)
	assert.False(t, called)
}
