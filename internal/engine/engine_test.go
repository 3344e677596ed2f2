package engine_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/engine"
	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/joblist/fake"
	"github.com/slok/jobwatch/internal/joblist/rest"
	"github.com/slok/jobwatch/internal/joblist/sqlite"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

func TestNew(t *testing.T) {
	customLister := joblist.ListerFunc(func(context.Context, int, int) ([]model.Job, error) {
		return []model.Job{{ID: "J1", Status: "RUNNING"}}, nil
	})

	tests := map[string]struct {
		cfg     func(t *testing.T) engine.Config
		expErr  bool
		expRepo bool
		expFake bool
	}{
		"Without provider should fail.": {
			cfg:    func(t *testing.T) engine.Config { return engine.Config{} },
			expErr: true,
		},
		"With more than one provider should fail.": {
			cfg: func(t *testing.T) engine.Config {
				return engine.Config{Lister: customLister, Fake: &fake.ListerConfig{}}
			},
			expErr: true,
		},
		"An invalid provider config should fail.": {
			cfg: func(t *testing.T) engine.Config {
				return engine.Config{HTTP: &rest.ListerConfig{}}
			},
			expErr: true,
		},
		"A custom lister should be used as the provider.": {
			cfg: func(t *testing.T) engine.Config { return engine.Config{Lister: customLister} },
		},
		"The HTTP provider should not be managed.": {
			cfg: func(t *testing.T) engine.Config {
				return engine.Config{HTTP: &rest.ListerConfig{URL: "http://127.0.0.1:1"}}
			},
		},
		"The fake provider should be exposed.": {
			cfg: func(t *testing.T) engine.Config {
				return engine.Config{Fake: &fake.ListerConfig{ProgressStep: 10}}
			},
			expFake: true,
		},
		"The SQLite provider should be managed.": {
			cfg: func(t *testing.T) engine.Config {
				return engine.Config{SQLite: &sqlite.ProviderConfig{DBPath: filepath.Join(t.TempDir(), "jobs.db")}}
			},
			expRepo: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			cfg := test.cfg(t)
			cfg.Logger = log.Noop
			e, err := engine.New(context.Background(), cfg)
			if test.expErr {
				assert.Error(err)
				return
			}
			require.NoError(err)

			assert.NotNil(e.Lister)
			assert.NotNil(e.Store)
			assert.NotNil(e.Hub)
			assert.NotNil(e.Orchestrator)
			assert.NotNil(e.AutoResumer)
			assert.Equal(test.expRepo, e.Repository != nil)
			assert.Equal(test.expFake, e.Fake != nil)
			assert.NoError(e.Close())
		})
	}
}

func TestEngineWiring(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	e, err := engine.New(context.Background(), engine.Config{
		Fake:   &fake.ListerConfig{ProgressStep: 50},
		Logger: log.Noop,
	})
	require.NoError(err)
	defer e.Close()

	e.Fake.PutJob(model.Job{ID: "J1", EntityID: "video-1", Status: "RUNNING"})

	events := make(chan model.CompletionEvent, 1)
	unsubscribe := e.Hub.SubscribeEntity("video-1", func(ev model.CompletionEvent) { events <- ev })
	defer unsubscribe()

	// The orchestrator lists the fake provider, updates the store and publishes on the hub.
	ctx := context.Background()
	require.NoError(e.Orchestrator.Refresh(ctx))
	task, ok := e.Store.Task("J1")
	require.True(ok)
	assert.Equal(model.TaskStatusProcessing, task.Status)
	assert.Equal(50, task.Progress)

	require.NoError(e.Orchestrator.Refresh(ctx))
	task, ok = e.Store.Task("J1")
	require.True(ok)
	assert.Equal(model.TaskStatusCompleted, task.Status)

	ev := <-events
	assert.Equal("J1", ev.Job.ID)
}
