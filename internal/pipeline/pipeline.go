package pipeline

import (
	"context"
	"errors"
	"time"

	proto "github.com/gogo/protobuf/proto"
	"github.com/google/uuid"
	kafka "github.com/segmentio/kafka-go"

	api "github.com/weak-head/fl-pipe/api/v1"
	"github.com/weak-head/fl-pipe/internal/convert"
	"github.com/weak-head/fl-pipe/internal/logger"
)

const (
	// retryFetchCount defines the number of retries
	// to fetch a message from the reader before giving up.
	retryFetchCount = 3

	// retryWriteCount defines the number of retries
	// to write a message to the writer before giving up.
	retryWriteCount = 3

	// retryCommitCount defines the number of retries
	// to commit a message to the reader before giving up.
	retryCommitCount = 3
)

// Failure reasons reported to the Reporter.
const (
	FailureFetch      = "fetch"
	FailureDecode     = "decode"
	FailureProcessing = "processing"
	FailureEncode     = "encode"
	FailureWrite      = "write"
	FailureCommit     = "commit"
)

var (
	// ErrNoReaderProvided happens when reader is not provided.
	ErrNoReaderProvided = errors.New("no reader provided")

	// ErrNoWriterProvided happens when writer is not provided.
	ErrNoWriterProvided = errors.New("no writer provided")

	// ErrNoSleeperProvided happens when sleeper is not provided.
	ErrNoSleeperProvided = errors.New("no sleeper provided")

	// ErrNoProcessorProvided happens when processor is not provided.
	ErrNoProcessorProvided = errors.New("no processor provided")

	// ErrNoReporterProvided happens when reporter is not provided.
	ErrNoReporterProvided = errors.New("no reporter provided")

	errNoResult = errors.New("processor returned no result")
)

// Reader is a transactional message reader.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Writer is an atomic message writer.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Processor defines a conversion job processor.
type Processor interface {
	Process(ctx context.Context, job *api.ConversionJob) (*api.ConversionResult, error)
}

// Sleeper is a routine sleeper with some sleeping strategy
// and ability to reset the strategy state.
type Sleeper interface {
	Sleep()
	Reset()
}

// Reporter is a pipeline status and progress reporter that collects
// and aggregates metrics related to pipeline flow.
type Reporter interface {
	JobProcessed(status string, milliseconds float64)
	PipelineFailed(failure string)
}

// Pipeline is a conversion job pipeline.
type Pipeline struct {
	processor Processor
	reader    Reader
	writer    Writer

	sleeper  Sleeper
	reporter Reporter

	log logger.Log
}

// NewPipeline creates and initializes a new conversion pipeline.
func NewPipeline(
	reader Reader,
	writer Writer,
	processor Processor,
	sleeper Sleeper,
	reporter Reporter,
	log logger.Log,
) (*Pipeline, error) {
	if reader == nil {
		return nil, ErrNoReaderProvided
	}

	if writer == nil {
		return nil, ErrNoWriterProvided
	}

	if processor == nil {
		return nil, ErrNoProcessorProvided
	}

	if sleeper == nil {
		return nil, ErrNoSleeperProvided
	}

	if reporter == nil {
		return nil, ErrNoReporterProvided
	}

	return &Pipeline{
		processor: processor,
		reader:    reader,
		writer:    writer,
		sleeper:   sleeper,
		reporter:  reporter,
		log: log.WithFields(logger.Fields{
			logger.FieldPackage: "pipeline",
			"pipeline_id":       uuid.NewString(),
		}),
	}, nil
}

// Run starts the conversion pipeline,
// that ensures that each job is processed at least once.
//
// The job is extracted from the kafka stream and sent to the processor,
// that retrieves the DRM message from the storage, converts it and uploads
// the forward-lock file back. The outcome of the job is sent down the
// pipeline to the result stream before the job is committed.
//
// Run returns nil when ctx is canceled. A job whose processing is cut
// short by the cancellation is left uncommitted and is redelivered, while
// a job that has already been processed is still published and committed.
func (p *Pipeline) Run(ctx context.Context) error {
	log := p.log.WithField(logger.FieldFunction, "Pipeline.Run")
	log.Info("Starting the pipeline.")

	// Once processed, a job is published and committed even while stopping.
	finishCtx := context.WithoutCancel(ctx)

	failedFetches := 0
	for {
		select {
		case <-ctx.Done():
			log.Info("Pipeline has been stopped.")
			return nil
		default:
			// Nop
		}

		log.Debug("Fetching the next message from the reader.")
		m, err := p.reader.FetchMessage(ctx)
		if err != nil {
			log.Error(err, "Failed to fetch a message from the kafka reader")
			p.reporter.PipelineFailed(FailureFetch)

			if ctx.Err() != nil {
				log.Info("Pipeline has been stopped.")
				return nil
			}

			failedFetches += 1
			if failedFetches >= retryFetchCount {
				log.Errorf(err,
					"Giving up fetching the message. Stopping pipeline because of %d consecutive failed fetches",
					retryFetchCount)
				return err
			} else {
				p.sleeper.Sleep()
				continue
			}
		}
		failedFetches = 0

		msgLog := log.WithFields(logger.Fields{
			"partition": m.Partition,
			"offset":    m.Offset,
		})
		msgLog.Debug("Fetched a new message")

		job := &api.ConversionJob{}
		if err := proto.Unmarshal(m.Value, job); err != nil {
			msgLog.Error(err, "Failed to decode the conversion job, dropping the message")
			p.reporter.PipelineFailed(FailureDecode)

			if err := p.commit(finishCtx, log, m); err != nil {
				return err
			}
			p.sleeper.Reset()
			continue
		}

		started := time.Now()
		result, err := p.processor.Process(ctx, job)
		if ctx.Err() != nil && interrupted(result, err) {
			log.Info("Pipeline has been stopped.")
			return nil
		}
		if err == nil && result == nil {
			err = errNoResult
		}
		if err != nil {
			msgLog.WithField("job", job.JobId).Error(err, "Failed to process the conversion job")
			p.reporter.PipelineFailed(FailureProcessing)
			result = &api.ConversionResult{
				JobId:        job.JobId,
				Source:       job.Source,
				Status:       api.ConversionResult_FAILED,
				ErrorKind:    FailureProcessing,
				ErrorMessage: err.Error(),
			}
		}
		p.reporter.JobProcessed(result.Status.String(), float64(time.Since(started).Microseconds())/1000)

		value, err := proto.Marshal(result)
		if err != nil {
			msgLog.Error(err, "Failed to encode the conversion result, dropping the message")
			p.reporter.PipelineFailed(FailureEncode)

			if err := p.commit(finishCtx, log, m); err != nil {
				return err
			}
			p.sleeper.Reset()
			continue
		}

		key := []byte(result.JobId)
		if len(key) == 0 {
			key = m.Key
		}

		if err := p.publish(finishCtx, log, kafka.Message{Key: key, Value: value}); err != nil {
			return err
		}

		if err := p.commit(finishCtx, log, m); err != nil {
			return err
		}

		p.sleeper.Reset()
	}
}

// interrupted reports whether the processing has not run to completion,
// so the job has to be redelivered.
func interrupted(result *api.ConversionResult, err error) bool {
	return err != nil || result == nil || result.ErrorKind == convert.KindCanceled
}

// publish writes the message, retrying up to retryWriteCount times.
func (p *Pipeline) publish(ctx context.Context, log logger.Log, msg kafka.Message) error {
	writeAttempt := 0
	for {
		err := p.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}

		log.Error(err, "Failed to write the message to the kafka writer")
		p.reporter.PipelineFailed(FailureWrite)

		writeAttempt += 1
		if writeAttempt >= retryWriteCount {
			log.Errorf(err,
				"Giving up writing the message. Stopping pipeline because of %d consecutive failed writes",
				retryWriteCount)
			return err
		}
		p.sleeper.Sleep()
	}
}

// commit commits the message, retrying up to retryCommitCount times.
func (p *Pipeline) commit(ctx context.Context, log logger.Log, m kafka.Message) error {
	commitAttempt := 0
	for {
		err := p.reader.CommitMessages(ctx, m)
		if err == nil {
			return nil
		}

		log.Error(err, "Failed to commit read message to the kafka reader")
		p.reporter.PipelineFailed(FailureCommit)

		commitAttempt += 1
		if commitAttempt >= retryCommitCount {
			log.Errorf(err,
				"Giving up committing the message. Stopping pipeline because of %d consecutive failed commits",
				retryCommitCount)
			return err
		}
		p.sleeper.Sleep()
	}
}
