package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPutGetNowait(t *testing.T) {
	q := New[int](2, Config{})
	require.NoError(t, q.PutNowait(1))
	require.NoError(t, q.PutNowait(2))
	require.ErrorIs(t, q.PutNowait(3), ErrFull)

	v, err := q.GetNowait()
	require.NoError(t, err)
	require.Equal(t, 1, v)

	v, err = q.GetNowait()
	require.NoError(t, err)
	require.Equal(t, 2, v)

	_, err = q.GetNowait()
	require.ErrorIs(t, err, ErrEmpty)
}

func TestPutManyGetMany_Atomicity(t *testing.T) {
	// Invariant 1: for any interleaving of PutMany(xs) and GetMany(k), no
	// observer sees a prefix of xs followed by non-xs items before the
	// rest of xs arrives. This checks the sequential case: GetMany runs
	// after PutMany has returned.
	q := New[int](1000, Config{})
	const n = 200
	xs := make([]int, n)
	for i := range xs {
		xs[i] = i
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		require.NoError(t, q.PutMany(xs))
	}()
	wg.Wait()

	got := q.GetMany(n)
	require.Equal(t, xs, got)
}

func TestPutMany_RetriesWithoutRecursion(t *testing.T) {
	q := New[int](2, Config{MaxRetries: 3, BaseSleep: time.Millisecond})
	require.NoError(t, q.PutNowait(1))

	done := make(chan error, 1)
	go func() {
		done <- q.PutMany([]int{2, 3, 4})
	}()

	// Drain two slots (one for each item still pending) shortly after to
	// let the retry succeed before MaxRetries is exhausted.
	time.Sleep(5 * time.Millisecond)
	_, _ = q.GetNowait()
	_, _ = q.GetNowait()

	err := <-done
	require.NoError(t, err)
}

func TestPutMany_ExhaustsRetries(t *testing.T) {
	q := New[int](1, Config{MaxRetries: 2, BaseSleep: time.Millisecond})
	require.NoError(t, q.PutNowait(1))
	err := q.PutMany([]int{2, 3})
	require.ErrorIs(t, err, ErrFull)
}

func TestGetMany_FewerThanRequested(t *testing.T) {
	q := New[int](10, Config{})
	require.NoError(t, q.PutMany([]int{1, 2, 3}))
	got := q.GetMany(10)
	require.Equal(t, []int{1, 2, 3}, got)
	require.Nil(t, q.GetMany(10))
}

func TestWakeHook_CalledBeforeEnqueue(t *testing.T) {
	q := New[int](10, Config{})
	var woken int
	q.SetWake(func() { woken++ })

	require.NoError(t, q.PutNowait(1))
	require.Equal(t, 1, woken)

	require.NoError(t, q.PutMany([]int{2, 3}))
	require.Equal(t, 2, woken)
}

func TestGetOne(t *testing.T) {
	q := New[string](5, Config{})
	_, ok := q.GetOne()
	require.False(t, ok)

	require.NoError(t, q.PutNowait("a"))
	v, ok := q.GetOne()
	require.True(t, ok)
	require.Equal(t, "a", v)
}

func TestEmptyPutManyIsNoop(t *testing.T) {
	q := New[int](1, Config{})
	require.NoError(t, q.PutMany(nil))
	require.True(t, q.Empty())
}
