package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

// IngestDirectory walks root, filters by includeExts (or the default set),
// skips hidden entries if requested and uploads each matching file. A
// failing file is recorded in its Result and the walk continues.
func (s *Service) IngestDirectory(ctx context.Context, caseID uuid.UUID, root string, includeExts []string, skipHidden bool) ([]Result, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, common.InvalidInputf("root path is required")
	}
	exts := extSet(includeExts)

	var results []Result
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			results = append(results, Result{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !allowedExt(path, exts) {
			return nil
		}
		stats.Matched++

		r, err := s.IngestPath(ctx, caseID, path)
		if err != nil {
			s.logger.Warn("ingest.dir.file_failed", "path", path, "error", err)
			results = append(results, Result{SourcePath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, *r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	s.logger.Info("ingest.dir.ok",
		"case_id", caseID,
		"root", root,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}
