package utils_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/benmeehan/geo-checkin/internal/utils"
)

func TestEventLoop_RunsTasksInOrder(t *testing.T) {
	loop := utils.NewEventLoop(8)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		assert.True(t, loop.Submit(func() { got = append(got, i) }))
	}
	loop.Flush()

	assert.Len(t, got, 100)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
	loop.Shutdown()
}

func TestEventLoop_SerializesConcurrentSubmitters(t *testing.T) {
	loop := utils.NewEventLoop(4)

	counter := 0
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				loop.Submit(func() { counter++ })
			}
		}()
	}
	wg.Wait()
	loop.Shutdown()

	assert.Equal(t, 1000, counter)
}

func TestEventLoop_ShutdownDrainsAndRejects(t *testing.T) {
	loop := utils.NewEventLoop(16)

	ran := 0
	for i := 0; i < 10; i++ {
		loop.Submit(func() { ran++ })
	}
	loop.Shutdown()

	assert.Equal(t, 10, ran)
	assert.False(t, loop.Submit(func() { ran++ }))
	loop.Shutdown()
	loop.Flush()
	assert.Equal(t, 10, ran)
}
