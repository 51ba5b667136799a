package config

import (
	"fmt"

	deckerrors "github.com/standardbeagle/deckard/internal/errors"
)

// Validate checks a resolved Config for internally-consistent values,
// generalizing the teacher's per-section Validator into deckard's own
// section set.
func Validate(cfg *Config) error {
	if err := validateProject(&cfg.Project); err != nil {
		return deckerrors.Wrap(deckerrors.CodeInvalidArgs, err, "invalid project config")
	}
	if err := validateIndex(&cfg.Index); err != nil {
		return deckerrors.Wrap(deckerrors.CodeInvalidArgs, err, "invalid index config")
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		return deckerrors.Wrap(deckerrors.CodeInvalidArgs, err, "invalid storage config")
	}
	if err := validateEngine(&cfg.Engine); err != nil {
		return deckerrors.Wrap(deckerrors.CodeInvalidArgs, err, "invalid engine config")
	}
	return nil
}

func validateProject(p *Project) error {
	if p.Root == "" {
		return fmt.Errorf("project root cannot be empty")
	}
	return nil
}

func validateIndex(idx *Index) error {
	if idx.MaxFileSize <= 0 {
		return fmt.Errorf("max_file_size must be positive, got %d", idx.MaxFileSize)
	}
	if idx.MaxFileCount <= 0 {
		return fmt.Errorf("max_file_count must be positive, got %d", idx.MaxFileCount)
	}
	if idx.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", idx.MaxDepth)
	}
	return nil
}

func validateStorage(s *Storage) error {
	if s.MaxBatch <= 0 {
		return fmt.Errorf("storage.max_batch must be positive, got %d", s.MaxBatch)
	}
	if s.ReadPoolMax <= 0 {
		return fmt.Errorf("storage.read_pool_max must be positive, got %d", s.ReadPoolMax)
	}
	return nil
}

func validateEngine(e *Engine) error {
	if e.Mode != "sqlite" && e.Mode != "embedded" {
		return fmt.Errorf("engine.mode must be 'sqlite' or 'embedded', got %q", e.Mode)
	}
	return nil
}
