package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher()

	var got []string
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserRegistered, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventUserLoggedIn, func(context.Context, Event) error {
		t.Fatal("unexpected handler")
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventUserRegistered, "u-1", time.Now(), nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"first:u-1", "second:u-1"}, got)
}

func TestDispatcher_ContinuesAfterHandlerError(t *testing.T) {
	d := NewInMemoryDispatcher()
	boom := errors.New("boom")

	called := false
	d.Subscribe(EventLoginFailed, func(context.Context, Event) error { return boom })
	d.Subscribe(EventLoginFailed, func(context.Context, Event) error {
		called = true
		return nil
	})

	err := d.Publish(context.Background(), NewEvent(EventLoginFailed, "", time.Now(), LoginFailedPayload{Reason: "unknown_email"}))
	assert.ErrorIs(t, err, boom)
	assert.True(t, called)
}

func TestDispatcher_ConcurrentPublish(t *testing.T) {
	d := NewInMemoryDispatcher()

	var mu sync.Mutex
	count := 0
	d.Subscribe(EventUserLoggedIn, func(context.Context, Event) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Publish(context.Background(), NewEvent(EventUserLoggedIn, "u-1", time.Now(), nil))
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, count)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a := NewEvent(EventUserLoggedIn, "u-1", time.Now(), nil)
	b := NewEvent(EventUserLoggedIn, "u-1", time.Now(), nil)
	assert.NotEqual(t, a.ID, b.ID)
}
