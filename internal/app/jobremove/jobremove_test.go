package jobremove_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/app/jobremove"
	"github.com/slok/jobwatch/internal/joblist/joblistmock"
	"github.com/slok/jobwatch/internal/model"
)

func TestServiceRun(t *testing.T) {
	notFound := fmt.Errorf("job J2: %w", model.ErrNotFound)

	tests := map[string]struct {
		mock     func(m *joblistmock.MockRepository)
		req      jobremove.Request
		expErr   bool
		expErrIs error
	}{
		"Removing existing jobs should remove all of them.": {
			mock: func(m *joblistmock.MockRepository) {
				m.On("DeleteJob", mock.Anything, "J1").Once().Return(nil)
				m.On("DeleteJob", mock.Anything, "J2").Once().Return(nil)
			},
			req: jobremove.Request{IDs: []string{"J1", "J2"}},
		},

		"Removing a missing job should fail and stop.": {
			mock: func(m *joblistmock.MockRepository) {
				m.On("DeleteJob", mock.Anything, "J2").Once().Return(notFound)
			},
			req:      jobremove.Request{IDs: []string{"J2", "J3"}},
			expErr:   true,
			expErrIs: model.ErrNotFound,
		},

		"Removing a missing job ignoring missing ones should continue.": {
			mock: func(m *joblistmock.MockRepository) {
				m.On("DeleteJob", mock.Anything, "J2").Once().Return(notFound)
				m.On("DeleteJob", mock.Anything, "J3").Once().Return(nil)
			},
			req: jobremove.Request{IDs: []string{"J2", "J3"}, IgnoreMissing: true},
		},

		"Removing without IDs should fail.": {
			mock:     func(m *joblistmock.MockRepository) {},
			req:      jobremove.Request{},
			expErr:   true,
			expErrIs: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m := joblistmock.NewMockRepository(t)
			test.mock(m)

			svc, err := jobremove.NewService(jobremove.ServiceConfig{Repository: m})
			require.NoError(t, err)

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
