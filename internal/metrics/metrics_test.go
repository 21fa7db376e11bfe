package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-bot/internal/logger"
)

func TestPrometheusExport(t *testing.T) {
	reg := prometheus.NewRegistry()

	mp, err := NewMetricProvider(
		WithServiceName("dex-arbitrage-bot"),
		WithRegisterer(reg),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
	)
	require.NoError(t, err)
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("arbitrage_scans_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	srv := httptest.NewServer(NewServer(0, logger.NewDiscard(), WithGatherer(reg)).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Regexp(t, `arbitrage_scans_total(\{[^}]*\})? 3`, string(body))
}

func TestServer_StopBeforeStart(t *testing.T) {
	assert.NoError(t, NewServer(0, logger.NewDiscard()).Stop(context.Background()))
}
