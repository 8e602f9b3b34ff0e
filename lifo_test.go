package forkjoin

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLifo_Order(t *testing.T) {
	var s lifo[int]
	require.True(t, s.empty())

	for i := range 5 {
		s.push(i)
	}
	require.Equal(t, 5, s.len())

	for want := 4; want >= 0; want-- {
		got, ok := s.pop()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := s.pop()
	require.False(t, ok)
	require.True(t, s.empty())
}

func TestLifo_Clear(t *testing.T) {
	var s lifo[string]
	s.push("a")
	s.push("b")
	s.clear()
	require.True(t, s.empty())
	require.Equal(t, 0, s.len())
}

func TestLifo_ConcurrentPushPop(t *testing.T) {
	const (
		producers = 8
		perWorker = 5000
	)

	var (
		s    lifo[int]
		seen [producers * perWorker]int32
		mu   sync.Mutex
		wg   sync.WaitGroup
	)

	for p := range producers {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := range perWorker {
				s.push(p*perWorker + i)
			}
		}()
		go func() {
			defer wg.Done()
			for n := 0; n < perWorker; {
				v, ok := s.pop()
				if !ok {
					continue
				}
				mu.Lock()
				seen[v]++
				mu.Unlock()
				n++
			}
		}()
	}
	wg.Wait()

	require.True(t, s.empty())
	for i, n := range seen {
		require.Equal(t, int32(1), n, "value %d popped %d times", i, n)
	}
}
