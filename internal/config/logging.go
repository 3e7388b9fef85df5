package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// logStampLayout is fixed-width so lexical order of file names is chronological.
const logStampLayout = "20060102T150405.000"

// LogFile is an open log file plus the older files pruned when it was opened.
// PruneErr is set when pruning stopped early; the file itself is still usable.
type LogFile struct {
	*os.File
	Pruned   []string
	PruneErr error
}

// SetupLogFile opens <dir>/<prefix>-<stamp>.log and keeps at most maxFiles
// files with that prefix.
func SetupLogFile(dir, prefix string, maxFiles int) (*LogFile, error) {
	if prefix == "" {
		return nil, fmt.Errorf("log file prefix is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	name := filepath.Join(dir, fmt.Sprintf("%s-%s.log", prefix, time.Now().UTC().Format(logStampLayout)))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create log file: %w", err)
	}

	pruned, pruneErr := pruneLogs(dir, prefix, maxFiles)
	return &LogFile{File: f, Pruned: pruned, PruneErr: pruneErr}, nil
}

func pruneLogs(dir, prefix string, maxFiles int) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, prefix+"-*.log"))
	if err != nil {
		return nil, err
	}
	if maxFiles <= 0 || len(files) <= maxFiles {
		return nil, nil
	}

	sort.Strings(files)
	stale := files[:len(files)-maxFiles]
	removed := make([]string, 0, len(stale))
	for _, path := range stale {
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("remove %s: %w", path, err)
		}
		removed = append(removed, path)
	}
	return removed, nil
}
