package export

import (
	"context"
	"fmt"

	"dormcore/internal/infra/artifact"
	artifactfs "dormcore/internal/infra/artifact/fs"
	artifactmem "dormcore/internal/infra/artifact/memory"
	artifacts3 "dormcore/internal/infra/artifact/s3"
)

// ArtifactConfig selects where exported files go.
type ArtifactConfig struct {
	Driver artifact.Driver
	Root   string
	S3     artifacts3.Config
}

// OpenArtifacts builds the configured artifact store. An empty driver means
// the local filesystem.
func OpenArtifacts(ctx context.Context, cfg ArtifactConfig) (artifact.Store, error) {
	switch cfg.Driver {
	case "", artifact.DriverFilesystem:
		return artifactfs.New(cfg.Root)
	case artifact.DriverMemory:
		return artifactmem.New(), nil
	case artifact.DriverS3:
		return artifacts3.New(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown artifact driver %q", cfg.Driver)
	}
}
