package lexicon

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder keeps the lexicon currently in effect and swaps it atomically on reload.
// Readers never block.
type Holder struct {
	current atomic.Pointer[Lexicon]
}

// NewHolder creates a holder serving l.
func NewHolder(l *Lexicon) *Holder {
	h := &Holder{}
	h.current.Store(l)
	return h
}

// Lexicon returns the current table.
func (h *Holder) Lexicon() *Lexicon { return h.current.Load() }

// Store replaces the current table.
func (h *Holder) Store(l *Lexicon) { h.current.Store(l) }

// Reload loads path and swaps it in. On error the previous table stays.
func (h *Holder) Reload(path string) error {
	l, err := Load(path)
	if err != nil {
		return err
	}
	h.Store(l)
	return nil
}

// Watch reloads path whenever it changes until ctx is done.
// The parent directory is watched so editors that replace the file by rename are handled.
func (h *Holder) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("lexicon watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	target := filepath.Clean(path)
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
					continue
				}
				if err := h.Reload(path); err != nil {
					logger.Warn("lexicon reload failed, keeping previous table", zap.Error(err))
					continue
				}
				logger.Info("lexicon reloaded", zap.String("path", path), zap.Int("version", h.Lexicon().Version()))
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("lexicon watcher error", zap.Error(err))
			}
		}
	}()
	return nil
}
