package provisioning

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueueFIFO(t *testing.T) {
	q := newEventQueue()

	var got []int
	for i := 0; i < 5; i++ {
		i := i
		q.push(func() { got = append(got, i) })
	}

	for _, ev := range q.drain(100) {
		ev.fn()
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, q.len())
}

func TestQueueBatchBound(t *testing.T) {
	q := newEventQueue()
	for i := 0; i < 40; i++ {
		q.push(func() {})
	}

	assert.Len(t, q.drain(DrainBatchSize), DrainBatchSize)
	assert.Equal(t, 40-DrainBatchSize, q.len())

	// The wake signal stays pending while work remains.
	select {
	case <-q.wake():
	default:
		t.Fatal("expected pending wake signal")
	}
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := newEventQueue()

	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.push(func() {
					mu.Lock()
					count++
					mu.Unlock()
				})
			}
		}()
	}
	wg.Wait()

	for {
		batch := q.drain(DrainBatchSize)
		if len(batch) == 0 {
			break
		}
		for _, ev := range batch {
			ev.fn()
		}
	}
	assert.Equal(t, 800, count)
}

func TestQueueDrainEmpty(t *testing.T) {
	q := newEventQueue()
	assert.Nil(t, q.drain(10))
}
