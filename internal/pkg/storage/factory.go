package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const (
	// DriverS3 stores objects in AWS S3 or an S3 compatible endpoint.
	DriverS3 = "s3"
	// DriverGCS stores objects in Google Cloud Storage.
	DriverGCS = "gcs"
	// DriverMinIO stores objects in a MinIO server.
	DriverMinIO = "minio"
)

// ErrUnknownDriver is returned by NewFromDriver for a name it does not know.
var ErrUnknownDriver = errors.New("storage: unknown driver")

// FactoryOptions holds the settings of every backend; NewFromDriver reads
// only the one it builds.
type FactoryOptions struct {
	// S3 is used by DriverS3.
	S3 S3Options
	// GCS is used by DriverGCS.
	GCS GCSOptions
	// MinIO is used by DriverMinIO.
	MinIO MinIOOptions
}

// NewFromDriver builds the Storage named by driver. The name is matched
// case-insensitively.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Storage, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverS3:
		return NewS3(ctx, opts.S3)
	case DriverGCS:
		return NewGCS(ctx, opts.GCS)
	case DriverMinIO:
		return NewMinIO(opts.MinIO)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}
}
