package latch

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatch_Empty(t *testing.T) {
	l := New[string]()

	v, ok := l.Get()
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestLatch_SetOnce(t *testing.T) {
	l := New[int]()

	require.True(t, l.Set(1))
	assert.False(t, l.Set(2), "second write must be ignored")

	v, ok := l.Get()
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLatch_ZeroValueIsDistinguishable(t *testing.T) {
	l := New[*int]()

	require.True(t, l.Set(nil))

	v, ok := l.Get()
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestLatch_SubscribeNotifiedSynchronously(t *testing.T) {
	l := New[string]()

	var got []string
	l.Subscribe(func(v string) { got = append(got, "first:"+v) })
	l.Subscribe(func(v string) { got = append(got, "second:"+v) })

	l.Set("x")
	assert.Equal(t, []string{"first:x", "second:x"}, got)

	l.Set("y")
	assert.Equal(t, []string{"first:x", "second:x"}, got, "listeners fire only for the first write")
}

func TestLatch_Unsubscribe(t *testing.T) {
	l := New[string]()

	called := false
	unsub := l.Subscribe(func(string) { called = true })
	unsub()
	unsub()

	l.Set("x")
	assert.False(t, called)
}

func TestLatch_SubscribeAfterSet(t *testing.T) {
	l := New[string]()
	l.Set("x")

	called := false
	unsub := l.Subscribe(func(string) { called = true })
	unsub()

	assert.False(t, called)
}

func TestLatch_ConcurrentSet(t *testing.T) {
	l := New[int]()

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if l.Set(i) {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, stored)
}
