package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestReporter(t *testing.T) {
	r, err := NewReporter(ServiceInfo{Engine: "reporter-test"})
	require.NoError(t, err)

	r.ChunkConverted("reporter-test", 4096, 2)
	r.ChunkConverted("reporter-test", 8, 1)
	r.ConversionFinished("reporter-test", 3)
	r.ConversionFailed("reporter-test", "conversion")
	r.ConversionFailed("reporter-test", "conversion")
	r.JobProcessed("SUCCEEDED", 10)
	r.PipelineFailed("decode")

	require.Equal(t, 2.0, testutil.ToFloat64(chunksTotal.WithLabelValues("reporter-test")))
	require.Equal(t, 4104.0, testutil.ToFloat64(convertedBytesTotal.WithLabelValues("reporter-test")))
	require.Equal(t, 2.0, testutil.ToFloat64(conversionFailures.WithLabelValues("reporter-test", "conversion")))
	require.Equal(t, 1.0, testutil.ToFloat64(jobsTotal.WithLabelValues("reporter-test", "SUCCEEDED")))
	require.Equal(t, 1.0, testutil.ToFloat64(pipelineFailures.WithLabelValues("reporter-test", "decode")))
}

func TestPrometheusServer(t *testing.T) {
	r, err := NewReporter(ServiceInfo{Engine: "server-test"})
	require.NoError(t, err)
	r.ChunkConverted("server-test", 10, 1)

	p, err := NewPrometheusServer(Config{Addr: "127.0.0.1:0", Path: "/stats"})
	require.NoError(t, err)

	srv := httptest.NewServer(p.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `flpipe_chunks_total{engine="server-test"} 1`)

	missing, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestPrometheusServerDefaultPath(t *testing.T) {
	p, err := NewPrometheusServer(Config{})
	require.NoError(t, err)

	srv := httptest.NewServer(p.server.Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
