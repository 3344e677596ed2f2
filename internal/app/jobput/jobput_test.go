package jobput_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/app/jobput"
	"github.com/slok/jobwatch/internal/joblist/joblistmock"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

func intPtr(i int) *int { return &i }

func TestServiceRun(t *testing.T) {
	tests := map[string]struct {
		mock     func(m *joblistmock.MockRepository)
		req      jobput.Request
		expErr   bool
		expErrIs error
	}{
		"Storing a job with a known status should store it.": {
			mock: func(m *joblistmock.MockRepository) {
				exp := model.Job{ID: "J1", EntityID: "video-1", Status: "RUNNING", Progress: intPtr(10)}
				m.On("PutJob", mock.Anything, exp).Once().Return(nil)
			},
			req: jobput.Request{Job: model.Job{ID: "J1", EntityID: "video-1", Status: "RUNNING", Progress: intPtr(10)}},
		},

		"Storing a job with an unknown status should fail.": {
			mock:     func(m *joblistmock.MockRepository) {},
			req:      jobput.Request{Job: model.Job{ID: "J1", Status: "QUEUED"}},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"Storing a job with an unknown status when allowed should store it.": {
			mock: func(m *joblistmock.MockRepository) {
				m.On("PutJob", mock.Anything, model.Job{ID: "J1", Status: "QUEUED"}).Once().Return(nil)
			},
			req: jobput.Request{Job: model.Job{ID: "J1", Status: "QUEUED"}, AllowUnknownStatus: true},
		},

		"Storing a job without ID should fail.": {
			mock:     func(m *joblistmock.MockRepository) {},
			req:      jobput.Request{Job: model.Job{Status: "RUNNING"}},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"Storing a job with an invalid progress should fail.": {
			mock:     func(m *joblistmock.MockRepository) {},
			req:      jobput.Request{Job: model.Job{ID: "J1", Status: "RUNNING", Progress: intPtr(101)}},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},

		"A repository error should fail.": {
			mock: func(m *joblistmock.MockRepository) {
				m.On("PutJob", mock.Anything, mock.Anything).Once().Return(errors.New("disk full"))
			},
			req:    jobput.Request{Job: model.Job{ID: "J1", Status: "COMPLETED"}},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			m := joblistmock.NewMockRepository(t)
			test.mock(m)

			svc, err := jobput.NewService(jobput.ServiceConfig{Repository: m, Logger: log.Noop})
			require.NoError(err)

			err = svc.Run(context.Background(), test.req)
			if test.expErr {
				assert.Error(t, err)
				if test.expErrIs != nil {
					assert.ErrorIs(t, err, test.expErrIs)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
