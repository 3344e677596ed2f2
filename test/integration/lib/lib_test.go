package lib_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdklib "github.com/slok/jobwatch/pkg/lib"
	intlib "github.com/slok/jobwatch/test/integration/lib"
	"github.com/slok/jobwatch/test/integration/provider"
)

func intPtr(i int) *int { return &i }

func TestSDKWatch(t *testing.T) {
	intlib.NewConfig(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	srv := provider.NewServer(t, "secret", 20)
	srv.PutJob(provider.Job{ID: "job-1", EntityID: "video-1", Status: "RUNNING", Progress: intPtr(0)})
	srv.PutJob(provider.Job{ID: "job-0", Status: "COMPLETED", Progress: intPtr(100)})
	client := intlib.NewTestClient(t, srv, false)

	var (
		mu     sync.Mutex
		events []sdklib.CompletionEvent
	)
	unsubscribe := client.OnEntityCompletion("video-1", func(ev sdklib.CompletionEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer unsubscribe()

	res, err := client.Watch(ctx, "job-1", nil)
	require.NoError(t, err)
	assert.Equal(t, sdklib.SessionStateSucceeded, res.State)
	require.NotNil(t, res.Task)
	assert.Equal(t, 100, res.Task.Progress)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(events) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// The historical finished job is never tracked.
	_, ok := client.Task("job-0")
	assert.False(t, ok)
	require.Eventually(t, func() bool { return len(client.Tasks()) == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestSDKAutoResume(t *testing.T) {
	intlib.NewConfig(t)

	srv := provider.NewServer(t, "secret", 25)
	srv.PutJob(provider.Job{ID: "job-1", Status: "RUNNING", Progress: intPtr(0)})
	srv.PutJob(provider.Job{ID: "job-2", Status: "RUNNING", Progress: intPtr(50)})

	var (
		mu        sync.Mutex
		completed = map[string]bool{}
	)
	client := intlib.NewTestClient(t, srv, true)
	unsubscribe := client.OnCompletion(func(ev sdklib.CompletionEvent) {
		mu.Lock()
		completed[ev.Job.ID] = true
		mu.Unlock()
	})
	defer unsubscribe()

	// Every processing job is resumed one after the other until all of them finish.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return completed["job-1"] && completed["job-2"]
	}, 20*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool { return !client.IsPolling() }, 5*time.Second, 10*time.Millisecond)
	assert.Greater(t, srv.Requests(), 1)
}
