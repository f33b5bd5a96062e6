// Package workspace keeps a directory of notes in sync with the
// long-term memory index.
package workspace

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/engine"
)

// ErrWorkspace wraps failures scanning or tracking the workspace
// directory.
var ErrWorkspace = errors.New("workspace sync failed")

// Ingester accepts document text for long-term indexing. *engine.Engine
// satisfies it.
type Ingester interface {
	Learn(ctx context.Context, text, source string) (*engine.LearnResult, error)
}

// Config locates the workspace and its tracking state.
type Config struct {
	// Dir is the directory to sync.
	Dir string

	// Extensions filters synced files. Defaults to markdown and plain
	// text.
	Extensions []string

	// StatePath stores the content-hash index between runs. Empty keeps
	// tracking in memory only.
	StatePath string
}

// SyncResult reports one sync pass.
type SyncResult struct {
	Scanned  int `json:"scanned"`
	Ingested int `json:"ingested"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// Syncer walks the workspace and feeds changed documents to the ingester.
// Files whose content hash matches the tracked one are skipped.
type Syncer struct {
	config   Config
	ingester Ingester
	logger   *zap.Logger

	mu     sync.Mutex
	hashes map[string]string
}

// NewSyncer creates a Syncer. Previously tracked hashes are loaded from
// StatePath when it exists.
func NewSyncer(config Config, ingester Ingester, logger *zap.Logger) (*Syncer, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("%w: workspace directory is required", ErrWorkspace)
	}
	if len(config.Extensions) == 0 {
		config.Extensions = []string{".md", ".txt"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Syncer{
		config:   config,
		ingester: ingester,
		logger:   logger,
		hashes:   make(map[string]string),
	}

	if err := s.loadState(); err != nil {
		return nil, err
	}

	return s, nil
}

// Sync walks the workspace once. Per-file read and ingest failures are
// logged and counted; only an unreadable directory fails the pass.
func (s *Syncer) Sync(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}

	err := filepath.WalkDir(s.config.Dir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !s.matches(path) {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		result.Scanned++
		switch s.syncFile(ctx, path) {
		case synced:
			result.Ingested++
		case unchanged:
			result.Skipped++
		case failed:
			result.Failed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: walking %s: %v", ErrWorkspace, s.config.Dir, err)
	}

	if err := s.saveState(); err != nil {
		return nil, err
	}

	s.logger.Info("workspace synced",
		zap.String("dir", s.config.Dir),
		zap.Int("scanned", result.Scanned),
		zap.Int("ingested", result.Ingested),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

type syncOutcome int

const (
	synced syncOutcome = iota
	unchanged
	failed
)

// syncFile ingests one file unless its content hash is already tracked.
func (s *Syncer) syncFile(ctx context.Context, path string) syncOutcome {
	content, err := os.ReadFile(path)
	if err != nil {
		s.logger.Warn("skipping unreadable file", zap.String("path", path), zap.Error(err))
		return failed
	}

	hash := contentHash(content)
	source := s.sourceName(path)

	s.mu.Lock()
	tracked := s.hashes[source]
	s.mu.Unlock()
	if tracked == hash {
		return unchanged
	}

	if _, err := s.ingester.Learn(ctx, string(content), source); err != nil {
		s.logger.Warn("skipping file after ingest failure", zap.String("path", path), zap.Error(err))
		return failed
	}

	s.mu.Lock()
	s.hashes[source] = hash
	s.mu.Unlock()
	return synced
}

// Tracked returns the number of files with a recorded hash.
func (s *Syncer) Tracked() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.hashes)
}

// Untrack forgets a file's hash so the next sync re-ingests it.
func (s *Syncer) Untrack(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, source)
}

func (s *Syncer) matches(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, allowed := range s.config.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// sourceName is the path relative to the workspace root, used as the
// document source id.
func (s *Syncer) sourceName(path string) string {
	rel, err := filepath.Rel(s.config.Dir, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

func (s *Syncer) loadState() error {
	if s.config.StatePath == "" {
		return nil
	}

	data, err := os.ReadFile(s.config.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: reading state %s: %v", ErrWorkspace, s.config.StatePath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := json.Unmarshal(data, &s.hashes); err != nil {
		return fmt.Errorf("%w: parsing state %s: %v", ErrWorkspace, s.config.StatePath, err)
	}
	return nil
}

func (s *Syncer) saveState() error {
	if s.config.StatePath == "" {
		return nil
	}

	s.mu.Lock()
	data, err := json.MarshalIndent(s.hashes, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("%w: encoding state: %v", ErrWorkspace, err)
	}

	if err := os.WriteFile(s.config.StatePath, data, 0o644); err != nil {
		return fmt.Errorf("%w: writing state %s: %v", ErrWorkspace, s.config.StatePath, err)
	}
	return nil
}

func contentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
