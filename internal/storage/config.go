package storage

// Config describes the S3 compatible object storage that holds
// the source messages and the converted files.
type Config struct {
	// Endpoint is host:port of the storage, without the scheme.
	Endpoint string
	UseSSL   bool

	AccessKey string
	SecretKey string

	// Region is used when a bucket is created and skips the
	// bucket location lookup when set.
	Region string

	// CreateBucketIfNotExist creates the destination bucket
	// before the first upload to it.
	CreateBucketIfNotExist bool
}
