// Package lib provides a Go SDK to follow long running provider jobs (e.g. video
// transcoding) from any number of independent consumers.
//
// The client tracks the jobs as tasks with a canonical status, runs a single polling
// loop at a time against the provider job listing, and broadcasts an event when a tracked
// job finishes.
//
// # Quick Start
//
// Create a client and wait for a job to finish:
//
//	client, err := lib.New(ctx, lib.Config{
//	    Provider: lib.ProviderHTTP,
//	    HTTP:     &lib.HTTPProviderConfig{URL: "https://api.example.com/v1", Token: token},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	res, err := client.Watch(ctx, "job-1", &lib.WatchOpts{
//	    OnUpdate: func(t lib.Task) { fmt.Printf("%s %d%%\n", t.Status, t.Progress) },
//	})
//
// # Polling
//
// There is only one polling session at a time. [Client.StartPolling] for the task that is
// being polled is a no-op, for a different task it stops the current session first. Every
// tick lists the provider jobs and reconciles all the tracked tasks, not only the polled one.
// A session finishes when the task completes or fails, when it disappears from the
// provider listing, when it's stopped, or when MaxRetries non terminal ticks have been made.
//
// Consumers that only care about a task while they are alive use a [Controller]: closing
// it detaches the callbacks without stopping the polling other consumers may depend on.
//
// # Auto Resume
//
// With [Config].AutoResume, when nothing is polling and a task is still processing (e.g.
// its consumer went away), polling is resumed for it after a settle delay. Tasks whose
// polling timed out or was stopped are not resumed.
//
// # Completion Events
//
// Consumers that don't own the polling can wait for the completion of an entity's job:
//
//	unsubscribe := client.OnEntityCompletion("video-1", func(ev lib.CompletionEvent) {
//	    fmt.Println("video-1 finished:", ev.Task.Status)
//	})
//	defer unsubscribe()
//
// Finished tasks are removed from the client after a grace window.
//
// # Error Handling
//
// All methods return errors that can be inspected with [errors.Is]:
//
//   - [ErrNotFound]: Job does not exist.
//   - [ErrNotValid]: Invalid input or operation.
//   - [ErrJobFailed]: The provider marked the job as failed.
//   - [ErrTimeout]: Polling gave up before the job finished.
//
// # Testing
//
// Use [ProviderFake] to write tests without a real provider, running jobs advance
// FakeProgressStep on every listing:
//
//	client, _ := lib.New(ctx, lib.Config{
//	    Provider:         lib.ProviderFake,
//	    FakeProgressStep: 50,
//	    Interval:         10 * time.Millisecond,
//	})
//	defer client.Close()
//	client.PutJob(ctx, lib.Job{ID: "job-1", Status: "RUNNING"})
//
// # Thread Safety
//
// A [Client] is safe for concurrent use from multiple goroutines.
package lib
