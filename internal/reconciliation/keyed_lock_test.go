package reconciliation

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLockSharesInFlightResult(t *testing.T) {
	lock := NewKeyedLock()

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})

	fn := func() (*Report, error) {
		calls.Add(1)
		close(started)
		<-release
		return &Report{EntriesCreated: 3}, nil
	}

	var wg sync.WaitGroup
	results := make([]*Report, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = lock.Do("user-1", fn)
	}()
	<-started

	for i := 1; i < 5; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Joins the in-flight sync; the fn here must never run
			results[i], _ = lock.Do("user-1", func() (*Report, error) {
				calls.Add(1)
				return &Report{}, nil
			})
		}()
	}

	// Give the joiners time to attach before releasing
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, 3, r.EntriesCreated)
	}
}

func TestKeyedLockDistinctKeysRunIndependently(t *testing.T) {
	lock := NewKeyedLock()

	blockA := make(chan struct{})
	startedA := make(chan struct{})
	go func() {
		lock.Do("user-a", func() (*Report, error) {
			close(startedA)
			<-blockA
			return &Report{}, nil
		})
	}()
	<-startedA

	done := make(chan struct{})
	go func() {
		lock.Do("user-b", func() (*Report, error) { return &Report{}, nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sync for a different user blocked behind an unrelated lock")
	}
	close(blockA)
}

func TestKeyedLockReleasesOnError(t *testing.T) {
	lock := NewKeyedLock()

	wantErr := errors.New("provider unavailable")
	_, err := lock.Do("user-1", func() (*Report, error) { return nil, wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 0, lock.Inflight())

	// The key is reusable after a failed sync
	report, err := lock.Do("user-1", func() (*Report, error) {
		return &Report{EntriesUpdated: 1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.EntriesUpdated)
	assert.Equal(t, 0, lock.Inflight())
}
