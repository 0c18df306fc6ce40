package registration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockTable_SerializesSameKey(t *testing.T) {
	table := NewLockTable()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := table.Acquire(context.Background(), "event-1")
			if err != nil {
				t.Error(err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, table.size())
}

func TestLockTable_OtherKeyProceedsWhileHeld(t *testing.T) {
	table := NewLockTable()
	release1, err := table.Acquire(context.Background(), "event-1")
	require.NoError(t, err)

	worked := make(chan struct{})
	go func() {
		defer close(worked)
		release2, err := table.Acquire(context.Background(), "event-2")
		if err != nil {
			t.Error(err)
			return
		}
		release2()
	}()
	select {
	case <-worked:
	case <-time.After(time.Second):
		t.Fatal("event-2 waited behind event-1")
	}

	// event-1 is still exclusively held
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = table.Acquire(ctx, "event-1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release1()
	assert.Equal(t, 0, table.size())
}

func TestLockTable_AcquireTimesOut(t *testing.T) {
	table := NewLockTable()
	release, err := table.Acquire(context.Background(), "event-1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = table.Acquire(ctx, "event-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Equal(t, 0, table.size())
}
