package fake_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/joblist/fake"
	"github.com/slok/jobwatch/internal/model"
)

func intPtr(i int) *int { return &i }

func TestListerScriptedListings(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	l, err := fake.NewLister(fake.ListerConfig{
		Listings: [][]model.Job{
			{{ID: "J1", Status: "RUNNING", Progress: intPtr(40)}},
			{{ID: "J1", Status: "COMPLETED"}},
		},
	})
	require.NoError(err)

	ctx := context.Background()
	got1, err := l.ListJobs(ctx, 1, 100)
	require.NoError(err)
	got2, err := l.ListJobs(ctx, 1, 100)
	require.NoError(err)
	got3, err := l.ListJobs(ctx, 1, 100)
	require.NoError(err)

	assert.Equal("RUNNING", got1[0].Status)
	assert.Equal("COMPLETED", got2[0].Status)
	assert.Equal("COMPLETED", got3[0].Status)
	assert.Equal(3, l.Calls())
}

func TestListerProgressSimulation(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	l, err := fake.NewLister(fake.ListerConfig{ProgressStep: 60})
	require.NoError(err)
	l.PutJob(model.Job{ID: "J1", EntityID: "video-1", Status: "PENDING"})
	l.PutJob(model.Job{ID: "J2", Status: "QUEUED"})

	ctx := context.Background()
	got, err := l.ListJobs(ctx, 1, 100)
	require.NoError(err)
	assert.Equal([]model.Job{
		{ID: "J1", EntityID: "video-1", Status: "RUNNING", Progress: intPtr(60)},
		{ID: "J2", Status: "QUEUED"},
	}, got)

	got, err = l.ListJobs(ctx, 1, 100)
	require.NoError(err)
	assert.Equal("COMPLETED", got[0].Status)
	assert.Equal(100, *got[0].Progress)

	l.RemoveJob("J1")
	got, err = l.ListJobs(ctx, 1, 100)
	require.NoError(err)
	assert.Equal([]model.Job{{ID: "J2", Status: "QUEUED"}}, got)
}

func TestListerPagination(t *testing.T) {
	l, err := fake.NewLister(fake.ListerConfig{})
	require.NoError(t, err)
	for _, id := range []string{"A", "B", "C"} {
		l.PutJob(model.Job{ID: id, Status: "RUNNING"})
	}

	tests := map[string]struct {
		page     int
		pageSize int
		expIDs   []string
	}{
		"First page.":           {page: 1, pageSize: 2, expIDs: []string{"A", "B"}},
		"Second page.":          {page: 2, pageSize: 2, expIDs: []string{"C"}},
		"Page out of range.":    {page: 3, pageSize: 2, expIDs: []string{}},
		"No pagination values.": {page: 0, pageSize: 0, expIDs: []string{"A", "B", "C"}},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := l.ListJobs(context.Background(), test.page, test.pageSize)
			require.NoError(t, err)

			ids := []string{}
			for _, j := range got {
				ids = append(ids, j.ID)
			}
			assert.Equal(t, test.expIDs, ids)
		})
	}
}

func TestListerErrorsAndDelay(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	l, err := fake.NewLister(fake.ListerConfig{Delay: 50 * time.Millisecond})
	require.NoError(err)
	l.FailNext(errors.New("connection reset"))

	_, err = l.ListJobs(context.Background(), 1, 100)
	assert.Error(err)

	_, err = l.ListJobs(context.Background(), 1, 100)
	assert.NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.ListJobs(ctx, 1, 100)
	assert.ErrorIs(err, context.Canceled)
}
