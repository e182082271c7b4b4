package main

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/weak-head/fl-pipe/internal/config"
	"github.com/weak-head/fl-pipe/internal/convert"
	"github.com/weak-head/fl-pipe/internal/engine"
	"github.com/weak-head/fl-pipe/internal/logger"
	"github.com/weak-head/fl-pipe/internal/metrics"
	"github.com/weak-head/fl-pipe/internal/pipeline"
	"github.com/weak-head/fl-pipe/internal/processor"
	"github.com/weak-head/fl-pipe/internal/sleeper"
	"github.com/weak-head/fl-pipe/internal/storage"
	"github.com/weak-head/fl-pipe/internal/stream"
)

// shutdownTimeout bounds the graceful shutdown of the metrics endpoint.
const shutdownTimeout = 5 * time.Second

type metricsServer interface {
	Serve() error
	Stop(ctx context.Context) error
}

// service runs the conversion pipelines and the metrics endpoint.
type service struct {
	pipelines []*pipeline.Pipeline
	metrics   metricsServer
	closers   []io.Closer

	log logger.Log
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Consume conversion jobs from kafka and publish the results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				cfg.Pipeline.Workers = workers
			}
			if err := cfg.ValidateService(); err != nil {
				return err
			}

			log, err := ctx.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			svc, err := newService(cfg, log)
			if err != nil {
				return err
			}
			return svc.run(cmd.Context())
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Number of pipelines, overrides pipeline.workers")
	return cmd
}

// newService wires the storage, the converter and the streams into
// cfg.Pipeline.Workers pipelines. Each pipeline owns a reader of the
// consumer group, the result writer is shared.
func newService(cfg *config.Config, log logger.Log) (*service, error) {
	log = log.WithField(logger.FieldFunction, "newService")
	svc := &service{log: log}

	store, err := storage.NewMinioStorage(cfg.StorageConfig(), log)
	if err != nil {
		log.Error(err, "Failed to create the object storage client.")
		return nil, err
	}

	registry := engine.DefaultRegistry()
	converter, err := newConverter(registry, cfg, cfg.ConverterConfig(), cfg.Converter.LockFile, log)
	if err != nil {
		log.Error(err, "Failed to create the converter.")
		return nil, err
	}

	// Jobs without a MIME type are DRM messages.
	if err := checkMimeType(registry, cfg.Converter.Engine, convert.MimeTypeDM); err != nil {
		log.Error(err, "The engine cannot convert DRM messages.")
		return nil, err
	}

	proc, err := processor.NewProcessor(cfg.ProcessorConfig(), converter, store, log)
	if err != nil {
		log.Error(err, "Failed to create the job processor.")
		return nil, err
	}

	reporter, err := metrics.NewReporter(metrics.ServiceInfo{Engine: cfg.Converter.Engine})
	if err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		server, err := metrics.NewPrometheusServer(cfg.MetricsConfig())
		if err != nil {
			log.Error(err, "Failed to create the prometheus server.")
			return nil, err
		}
		svc.metrics = server
	}

	writer, err := stream.NewWriter(cfg.WriterConfig())
	if err != nil {
		log.Error(err, "Failed to create the result writer.")
		return nil, err
	}
	svc.closers = append(svc.closers, writer)

	readerConf := cfg.ReaderConfig()
	for i := 0; i < cfg.Pipeline.Workers; i++ {
		reader, err := stream.NewReader(readerConf)
		if err != nil {
			log.Error(err, "Failed to create the job reader.")
			svc.close()
			return nil, err
		}
		svc.closers = append(svc.closers, reader)
		readerConf.CreateIfNotExist = false

		slp, err := sleeper.NewExponentialSleeper(cfg.Backoff())
		if err != nil {
			svc.close()
			return nil, err
		}

		p, err := pipeline.NewPipeline(reader, writer, proc, slp, reporter, log)
		if err != nil {
			svc.close()
			return nil, err
		}
		svc.pipelines = append(svc.pipelines, p)
	}

	return svc, nil
}

// run blocks until ctx is canceled or one of the pipelines fails.
func (s *service) run(ctx context.Context) error {
	log := s.log.WithField(logger.FieldFunction, "service.run")
	defer s.close()

	g, gctx := errgroup.WithContext(ctx)

	if s.metrics != nil {
		g.Go(func() error {
			if err := s.metrics.Serve(); err != nil {
				log.Error(err, "Prometheus server has failed.")
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return s.metrics.Stop(stopCtx)
		})
	}

	for _, p := range s.pipelines {
		g.Go(func() error {
			return p.Run(gctx)
		})
	}

	log.Infof("Started %d pipeline(s).", len(s.pipelines))
	err := g.Wait()
	if err != nil {
		log.Error(err, "Service has stopped with an error.")
		return err
	}
	log.Info("Service has been stopped.")
	return nil
}

func (s *service) close() {
	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			s.log.Error(err, "Failed to close the stream.")
		}
	}
	s.closers = nil
}
