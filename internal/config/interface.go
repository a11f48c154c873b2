package config

import "context"

// Loader is the interface for a format-specific scene loader.
type Loader interface {
	// Load reads every scene file found under paths and merges them into a
	// single Scene.
	Load(ctx context.Context, paths ...string) (*Scene, error)
}
