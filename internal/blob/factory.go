package blob

import (
	"context"
	"fmt"
	"os"
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// ConfigFromEnv reads the backend selection from the environment.
//
//	PLICORE_BLOB_DRIVER: fs|s3|memory (default fs)
//	PLICORE_BLOB_FS_ROOT: save folder when driver=fs
//	(S3 specific variables documented in internal/infra/blob/s3)
func ConfigFromEnv() Config {
	cfg := Config{
		Driver: Driver(os.Getenv("PLICORE_BLOB_DRIVER")),
		FSRoot: os.Getenv("PLICORE_BLOB_FS_ROOT"),
		S3:     S3ConfigFromEnv(),
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverFilesystem
	}
	return cfg
}

// Open constructs the Store named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// OpenFromEnv is Open(ctx, ConfigFromEnv()).
func OpenFromEnv(ctx context.Context) (Store, error) {
	return Open(ctx, ConfigFromEnv())
}
