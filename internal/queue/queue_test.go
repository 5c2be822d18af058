package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := New[int]()
	for i := 0; i < 5; i++ {
		require.True(t, q.Put(i))
	}
	assert.Equal(t, 5, q.Len())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		v, err := q.Take(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	assert.Equal(t, 0, q.Len())
}

func TestQueue_PutFront(t *testing.T) {
	q := New[string]()
	q.Put("b")
	q.Put("c")
	q.PutFront("a")

	var got []string
	for {
		v, ok := q.TryTake()
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestQueue_TakeBlocksUntilPut(t *testing.T) {
	q := New[int]()
	done := make(chan int)
	go func() {
		v, err := q.Take(context.Background())
		if err != nil {
			t.Errorf("take: %v", err)
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	q.Put(42)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("Take did not unblock")
	}
}

func TestQueue_TakeContextCancel(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Take(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// still usable afterwards
	q.Put(1)
	v, err := q.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestQueue_Close(t *testing.T) {
	q := New[int]()
	q.Put(7)
	q.Close()
	assert.False(t, q.Put(8))

	v, err := q.Take(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = q.Take(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	q := New[string]()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Put(fmt.Sprintf("%d:%d", p, i))
			}
		}(p)
	}

	last := make(map[int]int)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for n := 0; n < producers*perProducer; n++ {
		v, err := q.Take(ctx)
		require.NoError(t, err)
		var p, i int
		_, err = fmt.Sscanf(v, "%d:%d", &p, &i)
		require.NoError(t, err)
		assert.Greater(t, i, last[p], "producer %d order violated", p)
		last[p] = i
	}
	wg.Wait()
	assert.Equal(t, 0, q.Len())
}
