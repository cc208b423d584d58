package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/respondeo/internal/common"
	"github.com/ternarybob/respondeo/internal/interfaces"
)

// settleDelay is how long a file must stay quiet after its last write
// event before it is ingested. Editors and copies emit bursts of writes;
// ingesting mid-burst would read a half-written file.
const settleDelay = 500 * time.Millisecond

// Service watches an inbox directory and keeps the index in sync with it:
// created or modified files are ingested, removed or renamed-away files
// have their documents deleted. Hidden files and unsupported extensions
// are ignored.
type Service struct {
	ingest     interfaces.IngestService
	documents  interfaces.DocumentStorage
	dir        string
	extensions map[string]struct{}
	logger     arbor.ILogger

	mu      sync.Mutex
	pending map[string]*time.Timer
	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	running bool
}

// NewService creates a watcher over the configured inbox directory.
func NewService(ingest interfaces.IngestService, documents interfaces.DocumentStorage, config *common.Config, logger arbor.ILogger) *Service {
	extensions := make(map[string]struct{}, len(config.Watcher.Extensions))
	for _, ext := range config.Watcher.Extensions {
		extensions[strings.ToLower(ext)] = struct{}{}
	}

	return &Service{
		ingest:     ingest,
		documents:  documents,
		dir:        config.Watcher.Dir,
		extensions: extensions,
		logger:     logger,
		pending:    make(map[string]*time.Timer),
	}
}

// Start creates the inbox directory if needed, ingests any files already
// in it, and begins watching for changes.
func (s *Service) Start() error {
	if s.running {
		return fmt.Errorf("watcher already running")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory %s: %w", s.dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	s.watcher = watcher
	s.running = true

	s.wg.Add(1)
	common.SafeGo(s.logger, "watcher-events", s.eventLoop)

	s.logger.Info().
		Str("dir", s.dir).
		Int("extensions", len(s.extensions)).
		Msg("Watcher started")

	// Pick up files dropped while the service was down. Ingestion is
	// idempotent, so re-scanning known files inserts nothing new.
	s.scanExisting()
	return nil
}

// Stop cancels pending ingestions and shuts the watcher down.
func (s *Service) Stop() error {
	if !s.running {
		return nil
	}

	s.mu.Lock()
	for path, timer := range s.pending {
		timer.Stop()
		delete(s.pending, path)
	}
	s.mu.Unlock()

	err := s.watcher.Close()
	s.wg.Wait()
	s.running = false

	s.logger.Info().Msg("Watcher stopped")
	return err
}

// IsRunning reports whether the watcher is active.
func (s *Service) IsRunning() bool {
	return s.running
}

func (s *Service) eventLoop() {
	defer s.wg.Done()

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(event)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// handleEvent routes one filesystem event. Chmod-only events are noise
// and dropped before any path checks.
func (s *Service) handleEvent(event fsnotify.Event) {
	switch {
	case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
		if !s.shouldIngest(event.Name) {
			return
		}
		s.scheduleIngest(event.Name)

	case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
		if isHidden(event.Name) || !s.supportedExtension(event.Name) {
			return
		}
		s.cancelPending(event.Name)
		s.removeDocument(event.Name)
	}
}

// scheduleIngest (re)arms the settle timer for a path. Each new write
// event pushes ingestion back by settleDelay.
func (s *Service) scheduleIngest(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, exists := s.pending[path]; exists {
		timer.Stop()
	}
	s.pending[path] = time.AfterFunc(settleDelay, func() {
		s.mu.Lock()
		delete(s.pending, path)
		s.mu.Unlock()

		// Extractors parse arbitrary dropped files; a panic on a
		// malformed one must not kill the watcher.
		common.SafeGo(s.logger, "watcher-ingest", func() { s.ingestFile(path) })
	})
}

func (s *Service) cancelPending(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, exists := s.pending[path]; exists {
		timer.Stop()
		delete(s.pending, path)
	}
}

func (s *Service) ingestFile(path string) {
	// The file may be gone again by the time the settle timer fires.
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return
	}

	result, err := s.ingest.IngestFile(context.Background(), path)
	if err != nil {
		s.logger.Error().
			Str("path", path).
			Err(err).
			Msg("Watched file ingestion failed")
		return
	}

	s.logger.Info().
		Str("path", path).
		Str("document_id", result.DocumentID).
		Int("chunks", result.ChunkCount).
		Int("inserted", result.Inserted).
		Msg("Watched file ingested")
}

// removeDocument deletes the document whose source path matches the
// removed file. Unknown paths are ignored.
func (s *Service) removeDocument(path string) {
	ctx := context.Background()

	docs, err := s.documents.List(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list documents for removal")
		return
	}

	for _, doc := range docs {
		if doc.SourcePath != path {
			continue
		}
		deleted, err := s.ingest.DeleteDocument(ctx, doc.ID)
		if err != nil {
			s.logger.Error().
				Str("path", path).
				Str("document_id", doc.ID).
				Err(err).
				Msg("Failed to delete document for removed file")
			return
		}
		s.logger.Info().
			Str("path", path).
			Str("document_id", doc.ID).
			Int("chunks_deleted", deleted).
			Msg("Document removed with watched file")
		return
	}
}

// scanExisting ingests supported files already present in the inbox.
func (s *Service) scanExisting() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to scan watch directory")
		return
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		if !s.shouldIngest(path) {
			continue
		}
		s.ingestFile(path)
	}
}

func (s *Service) shouldIngest(path string) bool {
	if isHidden(path) {
		return false
	}
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return false
	}
	return s.supportedExtension(path)
}

func (s *Service) supportedExtension(path string) bool {
	if len(s.extensions) == 0 {
		return true
	}
	_, ok := s.extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// isHidden reports whether any path component is dot-prefixed. The "."
// and ".." components do not count as hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
