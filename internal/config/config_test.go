package config

import (
	"encoding/json"
	"strings"
	"testing"

	"plicore/internal/blob"
	"plicore/internal/index"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	opts := c.PipelineOptions()
	if opts.Partition.ResidueThreshold != 6 || opts.Partition.LigandThreshold != 4 || opts.Partition.CrystalContactThreshold != 4 || opts.MinPolymerSize != 10 {
		t.Fatalf("pipeline options = %+v", opts)
	}
	if c.BlobConfig().Driver != blob.DriverFilesystem || c.IndexConfig().Driver != index.DriverNone {
		t.Fatalf("drivers = %+v %+v", c.BlobConfig(), c.IndexConfig())
	}
}

func TestFromEnvOverlays(t *testing.T) {
	t.Setenv("PLICORE_NEIGHBORING_RESIDUE_THRESHOLD", "8.5")
	t.Setenv("PLICORE_MIN_POLYMER_SIZE", "12")
	t.Setenv("PLICORE_ADD_HYDROGENS", "true")
	t.Setenv("PLICORE_BLOB_DRIVER", "S3")
	t.Setenv("PLICORE_BLOB_S3_BUCKET", "systems")
	t.Setenv("PLICORE_BLOB_S3_PATH_STYLE", "1")
	t.Setenv("PLICORE_INDEX_DRIVER", "sqlite")
	t.Setenv("PLICORE_INDEX_DSN", "/tmp/index.db")
	t.Setenv("PLICORE_WORKERS", "4")
	c, err := FromEnv(Default())
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if c.NeighboringResidueThreshold != 8.5 || c.MinPolymerSize != 12 || !c.AddHydrogens || c.Workers != 4 {
		t.Fatalf("config = %+v", c)
	}
	if c.BlobDriver != blob.DriverS3 || c.BlobConfig().S3.Bucket != "systems" || !c.BlobConfig().S3.PathStyle {
		t.Fatalf("blob = %+v", c.BlobConfig())
	}
	if c.IndexConfig() != (index.Config{Driver: index.DriverSQLite, DSN: "/tmp/index.db"}) {
		t.Fatalf("index = %+v", c.IndexConfig())
	}
	if !c.ArtifactOptions().AddHydrogens {
		t.Fatalf("artifact options lost add_hydrogens")
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(c.JSON()), &decoded); err != nil {
		t.Fatalf("json: %v", err)
	}
	if strings.Contains(c.JSON(), "/tmp/index.db") {
		t.Fatalf("run config leaks the index dsn")
	}
	if decoded["skip_posebusters"] != false || decoded["min_polymer_size"] != float64(12) {
		t.Fatalf("decoded = %v", decoded)
	}
}

func TestFromEnvReportsMalformedValues(t *testing.T) {
	t.Setenv("PLICORE_CRYSTAL_CONTACT_THRESHOLD", "four")
	t.Setenv("PLICORE_SKIP_POSEBUSTERS", "maybe")
	c, err := FromEnv(Default())
	if err == nil {
		t.Fatalf("expected errors")
	}
	for _, key := range []string{"PLICORE_CRYSTAL_CONTACT_THRESHOLD", "PLICORE_SKIP_POSEBUSTERS"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error %q does not name %s", err, key)
		}
	}
	if c.CrystalContactThreshold != 4 {
		t.Fatalf("malformed value applied: %v", c.CrystalContactThreshold)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero threshold", func(c *Config) { c.NeighboringLigandThreshold = 0 }, "neighboring_ligand_threshold"},
		{"negative threshold", func(c *Config) { c.CrystalContactThreshold = -1 }, "crystal_contact_threshold"},
		{"polymer size", func(c *Config) { c.MinPolymerSize = 0 }, "min_polymer_size"},
		{"workers", func(c *Config) { c.Workers = -2 }, "workers"},
		{"s3 without bucket", func(c *Config) { c.BlobDriver = blob.DriverS3 }, "bucket"},
		{"blob driver", func(c *Config) { c.BlobDriver = "ftp" }, "blob driver"},
		{"index driver", func(c *Config) { c.IndexDriver = "mongo" }, "index driver"},
		{"log format", func(c *Config) { c.LogFormat = "xml" }, "log format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Validate() = %v, want mention of %q", err, tc.want)
			}
		})
	}
}
