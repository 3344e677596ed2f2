package config_test

import (
	"context"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/config"
	"github.com/slok/jobwatch/internal/model"
)

func baseConfig() config.Config {
	c := config.Default()
	c.Provider.SQLite.DBPath = "/home/user/.jobwatch/jobs.db"
	return c
}

func TestYAMLLoaderLoad(t *testing.T) {
	tests := map[string]struct {
		fs          fstest.MapFS
		path        string
		expCfg      func() config.Config
		expErr      bool
		expNotExist bool
	}{
		"Empty config file should return the base configuration.": {
			fs:     fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte("---\n")}},
			path:   "config.yaml",
			expCfg: baseConfig,
		},

		"A complete HTTP provider config file should load successfully.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
provider:
  type: http
  http:
    url: https://api.example.com/v1
    token: s3cr3t
    timeout: 3s
    rate_limit: 0.5
    burst: 1
    max_retries: 5
polling:
  interval: 2s
  max_retries: 30
  page_size: 50
  grace_window: 500ms
  settle_delay: 1s
`)}},
			path: "config.yaml",
			expCfg: func() config.Config {
				c := baseConfig()
				c.Provider.Type = config.ProviderTypeHTTP
				c.Provider.HTTP = config.HTTPProvider{
					URL:        "https://api.example.com/v1",
					Token:      "s3cr3t",
					Timeout:    3 * time.Second,
					RateLimit:  0.5,
					Burst:      1,
					MaxRetries: 5,
				}
				c.Polling = config.Polling{
					Interval:    2 * time.Second,
					MaxRetries:  30,
					PageSize:    50,
					GraceWindow: 500 * time.Millisecond,
					SettleDelay: time.Second,
				}
				return c
			},
		},

		"A partial config file should keep the base values.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
provider:
  type: sqlite
  sqlite:
    db_path: /tmp/jobs.db
polling:
  interval: 1s
`)}},
			path: "config.yaml",
			expCfg: func() config.Config {
				c := baseConfig()
				c.Provider.SQLite.DBPath = "/tmp/jobs.db"
				c.Polling.Interval = time.Second
				return c
			},
		},

		"Fake provider progress step can be disabled.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
provider:
  type: fake
  fake:
    progress_step: 0
`)}},
			path: "config.yaml",
			expCfg: func() config.Config {
				c := baseConfig()
				c.Provider.Type = config.ProviderTypeFake
				c.Provider.Fake.ProgressStep = 0
				return c
			},
		},

		"HTTP provider without URL should fail.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
provider:
  type: http
`)}},
			path:   "config.yaml",
			expErr: true,
		},

		"HTTP provider with a non HTTP URL should fail.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
provider:
  type: http
  http:
    url: ftp://example.com
`)}},
			path:   "config.yaml",
			expErr: true,
		},

		"Unknown provider type should fail.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
provider:
  type: kafka
`)}},
			path:   "config.yaml",
			expErr: true,
		},

		"Negative polling values should fail.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
polling:
  max_retries: -1
`)}},
			path:   "config.yaml",
			expErr: true,
		},

		"Invalid YAML should fail.": {
			fs:     fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte("polling: [")}},
			path:   "config.yaml",
			expErr: true,
		},

		"Invalid duration should fail.": {
			fs: fstest.MapFS{"config.yaml": &fstest.MapFile{Data: []byte(`
polling:
  interval: often
`)}},
			path:   "config.yaml",
			expErr: true,
		},

		"Missing file should fail with not exist error.": {
			fs:          fstest.MapFS{},
			path:        "config.yaml",
			expErr:      true,
			expNotExist: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			loader := config.NewYAMLLoader(test.fs, baseConfig())
			gotCfg, err := loader.Load(context.Background(), test.path)

			if test.expErr {
				require.Error(err)
				if test.expNotExist {
					assert.ErrorIs(err, fs.ErrNotExist)
				} else {
					assert.ErrorIs(err, model.ErrNotValid)
				}
				return
			}

			require.NoError(err)
			assert.Equal(test.expCfg(), gotCfg)
		})
	}
}

func TestDefaultRequiresSQLitePath(t *testing.T) {
	assert.Error(t, config.Default().Validate())
	assert.NoError(t, baseConfig().Validate())
}
