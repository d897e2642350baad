package keylock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockSerializesSameKey(t *testing.T) {
	k := New()
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("reaction:1")
			defer unlock()
			v := counter
			v++
			counter = v
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
	assert.Equal(t, 0, k.Len(), "idle keys are released")
}

func TestLockDifferentKeysDoNotBlock(t *testing.T) {
	k := New()
	unlockA := k.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()
	<-done
	require.Equal(t, 1, k.Len())
}

func TestUnlockIsIdempotent(t *testing.T) {
	k := New()
	unlock := k.Lock("a")
	unlock()
	unlock()
	assert.Equal(t, 0, k.Len())

	// 重复解锁后仍可正常加锁
	unlock = k.Lock("a")
	unlock()
}
