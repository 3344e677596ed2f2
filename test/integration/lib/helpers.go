package lib

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	sdklib "github.com/slok/jobwatch/pkg/lib"
	"github.com/slok/jobwatch/test/integration/provider"
)

// NewConfig skips the test if the integration tests are not activated.
func NewConfig(t *testing.T) {
	t.Helper()

	const envActivation = "JOBWATCH_INTEGRATION"

	if os.Getenv(envActivation) != "true" {
		t.Skipf("Skipping integration test: %s is not set to 'true'", envActivation)
	}
}

// NewTestClient creates an SDK client that follows the jobs of the provider server.
func NewTestClient(t *testing.T, srv *provider.Server, autoResume bool) *sdklib.Client {
	t.Helper()

	client, err := sdklib.New(context.Background(), sdklib.Config{
		Provider: sdklib.ProviderHTTP,
		HTTP: &sdklib.HTTPProviderConfig{
			URL:   srv.URL,
			Token: srv.Token,
		},
		Interval:    50 * time.Millisecond,
		MaxRetries:  40,
		GraceWindow: 100 * time.Millisecond,
		AutoResume:  autoResume,
		SettleDelay: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}
