package repo

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	var kl KeyLock[string]

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("a")
			counter++
			kl.Unlock("a")
		}()
	}
	wg.Wait()

	require.Equal(t, 50, counter)
	require.Zero(t, kl.Len())
}

func TestKeyLockDropsReleasedEntries(t *testing.T) {
	var kl KeyLock[uint]

	kl.Lock(1)
	kl.Lock(2)
	require.Equal(t, 2, kl.Len())

	kl.Unlock(1)
	require.Equal(t, 1, kl.Len())
	kl.Unlock(2)
	require.Zero(t, kl.Len())
}

func TestKeyLockIndependentKeys(t *testing.T) {
	var kl KeyLock[string]

	kl.Lock("a")
	done := make(chan struct{})
	go func() {
		kl.Lock("b") // must not wait on "a"
		kl.Unlock("b")
		close(done)
	}()
	<-done
	kl.Unlock("a")
	require.Zero(t, kl.Len())
}
