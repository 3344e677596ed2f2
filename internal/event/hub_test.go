package event_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/event"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

func TestHubPublish(t *testing.T) {
	tests := map[string]struct {
		subscribe func(h *event.Hub, got *[]string) []func()
		events    []model.CompletionEvent
		exp       []string
	}{
		"Global subscribers should receive all the events.": {
			subscribe: func(h *event.Hub, got *[]string) []func() {
				return []func(){h.Subscribe(func(ev model.CompletionEvent) { *got = append(*got, "all:"+ev.Job.ID) })}
			},
			events: []model.CompletionEvent{
				{EntityID: "video-1", Job: model.Job{ID: "J1"}},
				{EntityID: "video-2", Job: model.Job{ID: "J2"}},
			},
			exp: []string{"all:J1", "all:J2"},
		},
		"Entity subscribers should only receive their entity events.": {
			subscribe: func(h *event.Hub, got *[]string) []func() {
				return []func(){h.SubscribeEntity("video-2", func(ev model.CompletionEvent) { *got = append(*got, "v2:"+ev.Job.ID) })}
			},
			events: []model.CompletionEvent{
				{EntityID: "video-1", Job: model.Job{ID: "J1"}},
				{EntityID: "video-2", Job: model.Job{ID: "J2"}},
			},
			exp: []string{"v2:J2"},
		},
		"The entity should default to the job entity.": {
			subscribe: func(h *event.Hub, got *[]string) []func() {
				return []func(){h.SubscribeEntity("video-1", func(ev model.CompletionEvent) { *got = append(*got, "v1:"+ev.Job.ID) })}
			},
			events: []model.CompletionEvent{
				{Job: model.Job{ID: "J1", EntityID: "video-1"}},
			},
			exp: []string{"v1:J1"},
		},
		"Unsubscribed subscribers should not receive events.": {
			subscribe: func(h *event.Hub, got *[]string) []func() {
				unsub := h.Subscribe(func(ev model.CompletionEvent) { *got = append(*got, "all:"+ev.Job.ID) })
				unsub()
				return nil
			},
			events: []model.CompletionEvent{{Job: model.Job{ID: "J1"}}},
			exp:    []string{},
		},
		"Subscribers should be called in subscription order.": {
			subscribe: func(h *event.Hub, got *[]string) []func() {
				return []func(){
					h.Subscribe(func(ev model.CompletionEvent) { *got = append(*got, "first") }),
					h.SubscribeEntity("video-1", func(ev model.CompletionEvent) { *got = append(*got, "second") }),
					h.Subscribe(func(ev model.CompletionEvent) { *got = append(*got, "third") }),
				}
			},
			events: []model.CompletionEvent{{EntityID: "video-1", Job: model.Job{ID: "J1"}}},
			exp:    []string{"first", "second", "third"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			h, err := event.NewHub(event.HubConfig{Logger: log.Noop})
			require.NoError(t, err)

			got := []string{}
			for _, unsub := range test.subscribe(h, &got) {
				defer unsub()
			}

			for _, ev := range test.events {
				h.Publish(ev)
			}

			assert.Equal(t, test.exp, got)
		})
	}
}

func TestHubPublishSetsEventID(t *testing.T) {
	h, err := event.NewHub(event.HubConfig{})
	require.NoError(t, err)

	var ids []string
	unsub := h.Subscribe(func(ev model.CompletionEvent) { ids = append(ids, ev.ID) })
	defer unsub()

	h.Publish(model.CompletionEvent{Job: model.Job{ID: "J1"}})
	h.Publish(model.CompletionEvent{ID: "custom", Job: model.Job{ID: "J1"}})

	require.Len(t, ids, 2)
	assert.Len(t, ids[0], 26)
	assert.Equal(t, "custom", ids[1])
}
