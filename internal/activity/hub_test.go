package activity_test

import (
	"context"
	"testing"
	"time"

	"enginefleet/internal/activity"

	"github.com/stretchr/testify/require"
)

func TestHubPublishSubscribe(t *testing.T) {
	hub := activity.NewHub(activity.NewMemoryPubSub())
	defer hub.Close()

	ctx := context.Background()
	ch, unsub := hub.Subscribe(ctx)
	defer unsub()

	want := activity.Event{Component: "worker", Level: activity.LevelInfo, Message: "job started", At: time.Now()}
	require.NoError(t, hub.Publish(ctx, want))

	select {
	case got := <-ch:
		require.Equal(t, want.Component, got.Component)
		require.Equal(t, want.Level, got.Level)
		require.Equal(t, want.Message, got.Message)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestHubMultipleSubscribers(t *testing.T) {
	hub := activity.NewHub(activity.NewMemoryPubSub())
	defer hub.Close()

	ctx := context.Background()
	ch1, unsub1 := hub.Subscribe(ctx)
	defer unsub1()
	ch2, unsub2 := hub.Subscribe(ctx)
	defer unsub2()

	require.NoError(t, hub.Publish(ctx, activity.Event{Component: "sweeper", Message: "evicted alice"}))

	for _, ch := range []<-chan activity.Event{ch1, ch2} {
		select {
		case ev := <-ch:
			require.Equal(t, "sweeper", ev.Component)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}
