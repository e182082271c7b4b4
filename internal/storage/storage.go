package storage

import (
	"context"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/weak-head/fl-pipe/internal/logger"
)

// minioStorage moves objects between the storage and local files.
type minioStorage struct {
	config Config
	client *minio.Client

	// buckets that are known to exist
	buckets sync.Map

	log logger.Log
}

// NewMinioStorage creates a new storage client.
// No request is made until the first operation.
func NewMinioStorage(conf Config, log logger.Log) (*minioStorage, error) {
	l := log.WithFields(logger.Fields{
		logger.FieldPackage: "storage",
		"endpoint":          conf.Endpoint,
	})

	minioClient, err := minio.New(conf.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(conf.AccessKey, conf.SecretKey, ""),
		Secure: conf.UseSSL,
		Region: conf.Region,
	})
	if err != nil {
		l.WithField(logger.FieldFunction, "NewMinioStorage").
			Error(err, "Failed to create a new minio client.")
		return nil, err
	}

	l.WithField(logger.FieldFunction, "NewMinioStorage").
		Info("Created a new minio storage client.")

	return &minioStorage{
		config: conf,
		client: minioClient,
		log:    l,
	}, nil
}

// Download writes the object to the local file at path.
func (m *minioStorage) Download(
	ctx context.Context,
	bucket string,
	objectName string,
	path string,
) error {
	log := m.log.WithFields(logger.Fields{
		logger.FieldFunction: "minioStorage.Download",
		"bucket":             bucket,
		"objectName":         objectName,
		"path":               path,
	})

	if err := m.client.FGetObject(ctx, bucket, objectName, path, minio.GetObjectOptions{}); err != nil {
		log.Error(err, "Failed to download the object from the storage.")
		return err
	}

	log.Debug("Downloaded the object from the storage.")
	return nil
}

// Upload stores the local file at path as a new object
// and returns the number of uploaded bytes.
func (m *minioStorage) Upload(
	ctx context.Context,
	bucket string,
	objectName string,
	path string,
	contentType string,
) (int64, error) {
	log := m.log.WithFields(logger.Fields{
		logger.FieldFunction: "minioStorage.Upload",
		"bucket":             bucket,
		"objectName":         objectName,
	})

	if m.config.CreateBucketIfNotExist {
		if err := m.createBucket(ctx, bucket); err != nil {
			log.Error(err, "Failed to create a new bucket.")
			return 0, err
		}
	}

	info, err := m.client.FPutObject(ctx, bucket, objectName, path, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		log.Error(err, "Failed to store the object.")
		return 0, err
	}

	log.WithField("size", humanize.IBytes(uint64(info.Size))).
		Debug("Uploaded a new object to the storage.")
	return info.Size, nil
}

// Remove deletes the object. Removing a missing object is not an error.
func (m *minioStorage) Remove(
	ctx context.Context,
	bucket string,
	objectName string,
) error {
	log := m.log.WithFields(logger.Fields{
		logger.FieldFunction: "minioStorage.Remove",
		"bucket":             bucket,
		"objectName":         objectName,
	})

	if err := m.client.RemoveObject(ctx, bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		log.Error(err, "Failed to remove the object.")
		return err
	}

	log.Debug("Removed the object from the storage.")
	return nil
}

// createBucket makes sure the bucket exists.
func (m *minioStorage) createBucket(ctx context.Context, bucket string) error {
	if _, ok := m.buckets.Load(bucket); ok {
		return nil
	}

	log := m.log.WithFields(logger.Fields{
		logger.FieldFunction: "minioStorage.createBucket",
		"bucket":             bucket,
	})

	exists, err := m.client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		log.Trace("Bucket already exist.")
		m.buckets.Store(bucket, struct{}{})
		return nil
	}

	if err := m.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: m.config.Region}); err != nil {
		return err
	}

	log.Info("A new bucket has been created.")
	m.buckets.Store(bucket, struct{}{})
	return nil
}
