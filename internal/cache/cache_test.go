package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time { return f.t }

func TestClient_SetGet(t *testing.T) {
	c := New()

	_, ok := c.Get("projects")
	require.False(t, ok)

	c.Set("projects", []string{"a"})
	v, ok := c.Get("projects")
	require.True(t, ok)
	require.Equal(t, []string{"a"}, v)
}

func TestClient_SetErrorKeepsValue(t *testing.T) {
	c := New()
	c.Set("skills", 1)
	c.SetError("skills", errors.New("offline"))

	e, ok := c.Entry("skills")
	require.True(t, ok)
	require.Equal(t, 1, e.Value)
	require.EqualError(t, e.Err, "offline")

	c.Set("skills", 2)
	e, _ = c.Entry("skills")
	require.NoError(t, e.Err)
}

func TestClient_SetErrorWithoutValue(t *testing.T) {
	c := New()
	c.SetError("gallery", errors.New("offline"))

	_, ok := c.Get("gallery")
	require.False(t, ok, "an error-only entry must not report a value")
	require.True(t, c.IsStale("gallery", time.Hour))
}

func TestClient_SnapshotRestore(t *testing.T) {
	c := New()
	c.Set("projects", []int{1, 2})
	snap := c.Snapshot("projects")

	c.Set("projects", []int{1})
	c.Restore(snap)

	v, _ := Value[[]int](c, "projects")
	require.Equal(t, []int{1, 2}, v)
}

func TestClient_RestoreAbsent(t *testing.T) {
	c := New()
	snap := c.Snapshot("messages")

	c.Set("messages", []int{7})
	c.Restore(snap)

	_, ok := c.Get("messages")
	require.False(t, ok)
	require.Empty(t, c.Keys())
}

func TestClient_IsStale(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := New(WithClock(clock.Now))

	require.True(t, c.IsStale("k", time.Minute))

	c.Set("k", "v")
	require.False(t, c.IsStale("k", time.Minute))

	clock.t = clock.t.Add(2 * time.Minute)
	require.True(t, c.IsStale("k", time.Minute))
	require.False(t, c.IsStale("k", 0), "zero max age never goes stale")
}

func TestClient_SubscribeNotifiesInOrder(t *testing.T) {
	c := New()
	var calls []string
	unsubA := c.Subscribe("k", func(key string) { calls = append(calls, "a:"+key) })
	c.Subscribe("k", func(key string) { calls = append(calls, "b:"+key) })
	c.Subscribe("other", func(key string) { calls = append(calls, "other") })

	c.Set("k", 1)
	require.Equal(t, []string{"a:k", "b:k"}, calls)

	unsubA()
	unsubA()
	calls = nil
	c.Update("k", func(old any, ok bool) any { return old.(int) + 1 })
	require.Equal(t, []string{"b:k"}, calls)
}

func TestClient_ListenerMayReadCache(t *testing.T) {
	c := New()
	var seen any
	c.Subscribe("k", func(key string) {
		seen, _ = c.Get(key)
	})
	c.Set("k", "fresh")
	require.Equal(t, "fresh", seen)
}

func TestMutate(t *testing.T) {
	c := New()

	Mutate(c, "nums", func(old []int, ok bool) []int {
		require.False(t, ok)
		return append([]int{1}, old...)
	})
	Mutate(c, "nums", func(old []int, ok bool) []int {
		require.True(t, ok)
		return append([]int{2}, old...)
	})

	v, ok := Value[[]int](c, "nums")
	require.True(t, ok)
	require.Equal(t, []int{2, 1}, v)

	_, ok = Value[string](c, "nums")
	require.False(t, ok, "wrong type must not match")
}

func TestClient_RemoveNotifies(t *testing.T) {
	c := New()
	n := 0
	c.Subscribe("k", func(string) { n++ })
	c.Remove("k")
	require.Equal(t, 0, n, "removing an absent key is silent")
	c.Set("k", 1)
	c.Remove("k")
	require.Equal(t, 2, n)
}

func TestClient_UpdateExisting(t *testing.T) {
	c := New()
	ran := MutateExisting(c, "projects", func(old []int) []int { return append(old, 1) })
	require.False(t, ran)
	_, ok := c.Get("projects")
	require.False(t, ok, "UpdateExisting must not create the key")

	c.Set("projects", []int{1})
	ran = MutateExisting(c, "projects", func(old []int) []int { return append([]int{2}, old...) })
	require.True(t, ran)
	v, _ := Value[[]int](c, "projects")
	require.Equal(t, []int{2, 1}, v)
}
