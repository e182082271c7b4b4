package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Duration of a single engine call.
	chunkDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "flpipe_chunk_durations_seconds",
			Help:       "Chunk conversion duration distributions.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"engine"},
	)

	chunkDurationsHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flpipe_chunk_durations_histogram_seconds",
			Help:    "Chunk conversion duration distributions.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
		[]string{"engine"},
	)

	// Duration of a whole conversion, from open to close.
	conversionDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "flpipe_conversion_durations_seconds",
			Help:       "Conversion duration distributions.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"engine"},
	)

	conversionDurationsHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flpipe_conversion_durations_histogram_seconds",
			Help:    "Conversion duration distributions.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	chunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flpipe_chunks_total",
			Help: "Number of chunks handed to the engine.",
		},
		[]string{"engine"},
	)

	convertedBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flpipe_converted_bytes_total",
			Help: "Number of source bytes handed to the engine.",
		},
		[]string{"engine"},
	)

	conversionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flpipe_conversion_failures_total",
			Help: "Number of failed conversions by kind.",
		},
		[]string{"engine", "kind"},
	)

	// Jobs that went through the pipeline, by result status.
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flpipe_jobs_total",
			Help: "Number of processed conversion jobs.",
		},
		[]string{"engine", "status"},
	)

	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flpipe_job_durations_histogram_seconds",
			Help:    "Job processing duration distributions, including storage transfers.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine", "status"},
	)

	pipelineFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flpipe_pipeline_errors_total",
			Help: "Number of pipeline errors.",
		},
		[]string{"engine", "failure"},
	)
)

// prometheusServer exposes the collected metrics over HTTP.
type prometheusServer struct {
	server   *http.Server
	registry *prometheus.Registry
	conf     Config
}

// NewPrometheusServer creates the metrics server.
// It does not start listening until Serve is called.
func NewPrometheusServer(conf Config) (*prometheusServer, error) {
	p := &prometheusServer{
		registry: prometheus.NewRegistry(),
		conf:     conf,
	}

	for _, c := range []prometheus.Collector{
		chunkDuration,
		chunkDurationsHistogram,
		conversionDuration,
		conversionDurationsHistogram,
		chunksTotal,
		convertedBytesTotal,
		conversionFailures,
		jobsTotal,
		jobDuration,
		pipelineFailures,
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
	} {
		if err := p.registry.Register(c); err != nil {
			return nil, err
		}
	}

	path := p.conf.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(
		p.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))

	p.server = &http.Server{
		Addr:    p.conf.Addr,
		Handler: mux,
	}

	return p, nil
}

// Serve blocks until the server is stopped.
func (p *prometheusServer) Serve() error {
	if err := p.server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop
func (p *prometheusServer) Stop(ctx context.Context) error {
	return p.server.Shutdown(ctx)
}

// reporter records conversion and pipeline metrics.
type reporter struct {
	info ServiceInfo
}

// NewReporter
func NewReporter(info ServiceInfo) (*reporter, error) {
	return &reporter{info: info}, nil
}

// ChunkConverted
func (r *reporter) ChunkConverted(engine string, bytes int, milliseconds float64) {
	chunkDuration.WithLabelValues(engine).Observe(milliseconds / 1000)
	chunkDurationsHistogram.WithLabelValues(engine).Observe(milliseconds / 1000)
	chunksTotal.WithLabelValues(engine).Inc()
	convertedBytesTotal.WithLabelValues(engine).Add(float64(bytes))
}

// ConversionFinished
func (r *reporter) ConversionFinished(engine string, milliseconds float64) {
	conversionDuration.WithLabelValues(engine).Observe(milliseconds / 1000)
	conversionDurationsHistogram.WithLabelValues(engine).Observe(milliseconds / 1000)
}

// ConversionFailed
func (r *reporter) ConversionFailed(engine string, kind string) {
	conversionFailures.WithLabelValues(engine, kind).Inc()
}

// JobProcessed
func (r *reporter) JobProcessed(status string, milliseconds float64) {
	jobsTotal.WithLabelValues(r.info.Engine, status).Inc()
	jobDuration.WithLabelValues(r.info.Engine, status).Observe(milliseconds / 1000)
}

// PipelineFailed
func (r *reporter) PipelineFailed(failure string) {
	pipelineFailures.WithLabelValues(r.info.Engine, failure).Inc()
}
