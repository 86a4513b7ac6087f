// Package config assembles the run configuration: defaults, then PLICORE_*
// environment variables, then command-line flags applied by the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"plicore/internal/annotate"
	"plicore/internal/artifact"
	"plicore/internal/blob"
	"plicore/internal/index"
)

// Config is everything a run needs besides its input paths.
type Config struct {
	NeighboringResidueThreshold float64 `json:"neighboring_residue_threshold"`
	NeighboringLigandThreshold  float64 `json:"neighboring_ligand_threshold"`
	CrystalContactThreshold     float64 `json:"crystal_contact_threshold"`
	MinPolymerSize              int     `json:"min_polymer_size"`
	SkipPoseChecks              bool    `json:"skip_posebusters"`
	AddHydrogens                bool    `json:"add_hydrogens"`
	Workers                     int     `json:"workers"`

	// SaveFolder is the filesystem root of the artifacts when the blob
	// driver is fs.
	SaveFolder  string      `json:"save_folder"`
	BlobDriver  blob.Driver `json:"blob_driver"`
	S3          S3          `json:"s3"`
	IndexDriver string      `json:"index_driver"`
	IndexDSN    string      `json:"-"`

	ValidationPath string `json:"validation_path,omitempty"`
	AffinityPath   string `json:"affinity_path,omitempty"`
	TemplatesPath  string `json:"templates_path,omitempty"`
	TablesPath     string `json:"tables_path,omitempty"`

	LogFormat   string `json:"log_format"`
	LogLevel    string `json:"log_level"`
	MetricsAddr string `json:"metrics_addr,omitempty"`
	TracePath   string `json:"trace_path,omitempty"`
}

// S3 is the artifact bucket location. Credentials come from the AWS
// default chain.
type S3 struct {
	Bucket    string `json:"bucket,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	Region    string `json:"region,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	PathStyle bool   `json:"path_style,omitempty"`
}

// Default returns the built-in configuration.
func Default() Config {
	part := annotate.DefaultPartitionOptions()
	return Config{
		NeighboringResidueThreshold: part.ResidueThreshold,
		NeighboringLigandThreshold:  part.LigandThreshold,
		CrystalContactThreshold:     part.CrystalContactThreshold,
		MinPolymerSize:              annotate.DefaultMinPolymerSize,
		SaveFolder:                  "plicore-out",
		BlobDriver:                  blob.DriverFilesystem,
		IndexDriver:                 index.DriverNone,
		LogFormat:                   "text",
		LogLevel:                    "info",
	}
}

// FromEnv overlays PLICORE_* variables on base. Malformed values are
// reported together.
func FromEnv(base Config) (Config, error) {
	c := base
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = f
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	float("PLICORE_NEIGHBORING_RESIDUE_THRESHOLD", &c.NeighboringResidueThreshold)
	float("PLICORE_NEIGHBORING_LIGAND_THRESHOLD", &c.NeighboringLigandThreshold)
	float("PLICORE_CRYSTAL_CONTACT_THRESHOLD", &c.CrystalContactThreshold)
	integer("PLICORE_MIN_POLYMER_SIZE", &c.MinPolymerSize)
	boolean("PLICORE_SKIP_POSEBUSTERS", &c.SkipPoseChecks)
	boolean("PLICORE_ADD_HYDROGENS", &c.AddHydrogens)
	integer("PLICORE_WORKERS", &c.Workers)

	var driver string
	str("PLICORE_BLOB_DRIVER", &driver)
	if driver != "" {
		c.BlobDriver = blob.Driver(strings.ToLower(driver))
	}
	str("PLICORE_BLOB_FS_ROOT", &c.SaveFolder)
	str("PLICORE_SAVE_FOLDER", &c.SaveFolder)
	str("PLICORE_BLOB_S3_BUCKET", &c.S3.Bucket)
	str("PLICORE_BLOB_S3_PREFIX", &c.S3.Prefix)
	str("PLICORE_BLOB_S3_REGION", &c.S3.Region)
	str("PLICORE_BLOB_S3_ENDPOINT", &c.S3.Endpoint)
	boolean("PLICORE_BLOB_S3_PATH_STYLE", &c.S3.PathStyle)

	idx := index.ConfigFromEnv()
	if os.Getenv("PLICORE_INDEX_DRIVER") != "" {
		c.IndexDriver = idx.Driver
	}
	if idx.DSN != "" {
		c.IndexDSN = idx.DSN
	}

	str("PLICORE_VALIDATION", &c.ValidationPath)
	str("PLICORE_AFFINITY", &c.AffinityPath)
	str("PLICORE_TEMPLATES", &c.TemplatesPath)
	str("PLICORE_TABLES", &c.TablesPath)
	str("PLICORE_LOG_FORMAT", &c.LogFormat)
	str("PLICORE_LOG_LEVEL", &c.LogLevel)
	str("PLICORE_METRICS_ADDR", &c.MetricsAddr)
	str("PLICORE_TRACE_FILE", &c.TracePath)

	return c, errors.Join(errs...)
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]float64{
		"neighboring_residue_threshold": c.NeighboringResidueThreshold,
		"neighboring_ligand_threshold":  c.NeighboringLigandThreshold,
		"crystal_contact_threshold":     c.CrystalContactThreshold,
	} {
		if !(v > 0) {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", name, v))
		}
	}
	if c.MinPolymerSize <= 0 {
		errs = append(errs, fmt.Errorf("min_polymer_size must be positive, got %d", c.MinPolymerSize))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	switch c.BlobDriver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("s3 blob driver needs a bucket"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown blob driver %q", c.BlobDriver))
	}
	switch c.IndexDriver {
	case index.DriverNone, index.DriverMemory, index.DriverSQLite, index.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown index driver %q", c.IndexDriver))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// PipelineOptions maps the thresholds onto annotate.Options.
func (c Config) PipelineOptions() annotate.Options {
	opts := annotate.DefaultOptions()
	opts.MinPolymerSize = c.MinPolymerSize
	opts.Partition = annotate.PartitionOptions{
		ResidueThreshold:        c.NeighboringResidueThreshold,
		LigandThreshold:         c.NeighboringLigandThreshold,
		CrystalContactThreshold: c.CrystalContactThreshold,
	}
	opts.SkipPoseChecks = c.SkipPoseChecks
	opts.AddHydrogens = c.AddHydrogens
	return opts
}

// ArtifactOptions maps the output switches onto artifact.Options.
func (c Config) ArtifactOptions() artifact.Options {
	return artifact.Options{AddHydrogens: c.AddHydrogens}
}

// BlobConfig selects the artifact store.
func (c Config) BlobConfig() blob.Config {
	cfg := blob.Config{Driver: c.BlobDriver, FSRoot: c.SaveFolder}
	cfg.S3.Bucket = c.S3.Bucket
	cfg.S3.Prefix = c.S3.Prefix
	cfg.S3.Region = c.S3.Region
	cfg.S3.Endpoint = c.S3.Endpoint
	cfg.S3.PathStyle = c.S3.PathStyle
	return cfg
}

// IndexConfig selects the annotation index.
func (c Config) IndexConfig() index.Config {
	return index.Config{Driver: c.IndexDriver, DSN: c.IndexDSN}
}

// JSON renders c for run records. The index DSN is omitted.
func (c Config) JSON() string {
	b, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(b)
}
