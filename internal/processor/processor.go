package processor

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"

	api "github.com/weak-head/fl-pipe/api/v1"
	"github.com/weak-head/fl-pipe/internal/convert"
	"github.com/weak-head/fl-pipe/internal/logger"
)

var (
	// ErrNoConverterProvided happens when converter is not provided.
	ErrNoConverterProvided = errors.New("no converter provided")

	// ErrNoStorageProvided happens when storage is not provided.
	ErrNoStorageProvided = errors.New("no storage provided")
)

// KindInvalidJob is the error kind of a job that names no source object.
const KindInvalidJob = "invalid_job"

// Config
type Config struct {
	// DestinationBucket receives the converted objects.
	// The source bucket is used when empty.
	DestinationBucket string

	// WorkDir holds the per-job scratch directories.
	// The system temp dir is used when empty.
	WorkDir string

	// ConsumeSource removes the source object once the job is done,
	// whether the conversion succeeded or not.
	ConsumeSource bool
}

// Converter is the interface that wraps the basic ConvertFile method.
//
// ConvertFile converts the file at src into a new file at dst.
// It must return a non-nil error if the conversion has failed.
type Converter interface {
	ConvertFile(ctx context.Context, src, dst, mimeType string) (*convert.Result, error)
}

// Storage moves objects between the object storage and local files.
type Storage interface {
	Download(ctx context.Context, bucket string, objectName string, path string) error
	Upload(ctx context.Context, bucket string, objectName string, path string, contentType string) (int64, error)
	Remove(ctx context.Context, bucket string, objectName string) error
}

// processor is a wrapper over the converter that interacts
// with the provided storage to retrieve the source messages
// and store the converted files.
type processor struct {
	config Config

	converter Converter
	storage   Storage

	log logger.Log
}

// NewProcessor creates a new conversion job processor.
// It returns an error if the creation failed.
func NewProcessor(
	config Config,
	converter Converter,
	storage Storage,
	log logger.Log,
) (*processor, error) {
	if converter == nil {
		return nil, ErrNoConverterProvided
	}

	if storage == nil {
		return nil, ErrNoStorageProvided
	}

	return &processor{
		config:    config,
		converter: converter,
		storage:   storage,
		log:       log.WithField(logger.FieldPackage, "processor"),
	}, nil
}

// Process downloads the source object, converts it and uploads
// the converted file back to the storage.
//
// A conversion that fails is reported with a FAILED result and a nil error.
// Process returns an error when the job directory could not be created or
// the storage could not be reached. The pipeline publishes such a job as
// FAILED with the "processing" kind, unless ctx has been canceled.
func (p *processor) Process(ctx context.Context, job *api.ConversionJob) (*api.ConversionResult, error) {
	log := p.log.WithFields(logger.Fields{
		logger.FieldFunction: "processor.Process",
		"job":                job.JobId,
	})

	source := job.GetSource()
	if source.GetObjectName() == "" {
		log.Warn("Dropping a job without the source object.")
		return failed(job, KindInvalidJob, "job has no source object"), nil
	}

	log = log.WithFields(logger.Fields{
		"bucket":     source.Bucket,
		"objectName": source.ObjectName,
	})
	log.Info("Processing a new conversion job.")

	mimeType := job.MimeType
	if mimeType == "" {
		mimeType = convert.MimeTypeDM
	}

	dir, err := os.MkdirTemp(p.config.WorkDir, "flpipe-")
	if err != nil {
		log.Error(err, "Failed to create the job directory.")
		return nil, err
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			log.Warn("Could not remove the job directory: " + err.Error())
		}
	}()

	src := filepath.Join(dir, "source"+path.Ext(source.ObjectName))
	dst := filepath.Join(dir, "converted"+convert.FileExtension)

	if err := p.storage.Download(ctx, source.Bucket, source.ObjectName, src); err != nil {
		log.Error(err, "Failed to retrieve the source object from the storage.")
		return nil, err
	}

	res, err := p.converter.ConvertFile(ctx, src, dst, mimeType)
	if err != nil {
		kind := convert.KindOf(err)
		log.WithField("kind", kind).Error(err, "Failed to convert the source object.")

		if kind != convert.KindCanceled {
			p.consume(ctx, log, source)
		}
		return failed(job, kind, err.Error()), nil
	}

	bucket := p.config.DestinationBucket
	if bucket == "" {
		bucket = source.Bucket
	}
	objectName := convert.OutputName(source.ObjectName)

	if _, err := p.storage.Upload(ctx, bucket, objectName, dst, convert.MimeTypeFL); err != nil {
		log.Error(err, "Failed to store the converted object.")
		return nil, err
	}

	// The converted object is stored, the job is done even when stopping.
	p.consume(context.WithoutCancel(ctx), log, source)

	log.WithField("size", humanize.IBytes(uint64(res.Size))).
		Info("Conversion job has been processed.")

	return &api.ConversionResult{
		JobId:  job.JobId,
		Source: copyLocation(source),
		Converted: &api.Location{
			Kind:       source.Kind,
			Bucket:     bucket,
			ObjectName: objectName,
		},
		Status:       api.ConversionResult_SUCCEEDED,
		ChunkCount:   int64(res.ChunkCount),
		BytesWritten: res.Size,
	}, nil
}

// consume removes the source object when configured to.
// A failure is logged and otherwise ignored, the job outcome stands.
func (p *processor) consume(ctx context.Context, log logger.Log, source *api.Location) {
	if !p.config.ConsumeSource {
		return
	}
	if err := p.storage.Remove(ctx, source.Bucket, source.ObjectName); err != nil {
		log.Error(err, "Failed to remove the source object.")
	}
}

func failed(job *api.ConversionJob, kind, msg string) *api.ConversionResult {
	return &api.ConversionResult{
		JobId:        job.JobId,
		Source:       copyLocation(job.GetSource()),
		Status:       api.ConversionResult_FAILED,
		ErrorKind:    kind,
		ErrorMessage: msg,
	}
}

func copyLocation(l *api.Location) *api.Location {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}
