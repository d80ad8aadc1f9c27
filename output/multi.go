package output

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/scope-dorker/models"
)

// MultiWriter fans every result out to several writers.
type MultiWriter struct {
	writers []ResultWriter
	mu      sync.Mutex
}

// NewMultiWriter wraps writers; nil entries are skipped.
func NewMultiWriter(writers ...ResultWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Write stops at the first failing writer.
func (mw *MultiWriter) Write(result *models.SearchResult) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	for i, w := range mw.writers {
		if err := w.Write(result); err != nil {
			return fmt.Errorf("writer %d: %w", i, err)
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (mw *MultiWriter) Close() error {
	mw.mu.Lock()
	defer mw.mu.Unlock()

	var errs []error
	for i, w := range mw.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
