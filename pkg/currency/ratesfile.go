package currency

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
)

// ratesDocument is the on-disk shape of a rates file:
//
//	rates:
//	  EUR: 1.08
//	  GBP: 1.27
type ratesDocument struct {
	Rates map[string]float64 `yaml:"rates"`
}

// FileSource serves exchange rates from a YAML file, for running the
// simulator without network access. Rates are reloaded when the file changes.
type FileSource struct {
	path   string
	logger *observability.Logger

	mu    sync.RWMutex
	rates map[string]float64

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileSource loads the rates file at path and returns a source backed by it
func NewFileSource(path string, logger *observability.Logger) (*FileSource, error) {
	if logger == nil {
		logger = observability.NewLogger("info", nil)
	}
	s := &FileSource{
		path:   path,
		logger: logger.WithField("component", "rates-file"),
		done:   make(chan struct{}),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Rate returns the configured rate from fromCurrency into the reference
// currency
func (s *FileSource) Rate(_ context.Context, fromCurrency string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rate, ok := s.rates[strings.ToUpper(fromCurrency)]
	if !ok {
		return 0, fmt.Errorf("no rate configured for %s", fromCurrency)
	}
	return rate, nil
}

// Watch starts watching the rates file and reloads it on change. Call Close
// to stop the watcher.
func (s *FileSource) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create rates file watcher: %w", err)
	}
	if err := watcher.Add(s.path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch rates file: %w", err)
	}
	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := s.reload(); err != nil {
						s.logger.WithError(err).Warn("failed to reload rates file, keeping previous rates")
					} else {
						s.logger.WithField("path", s.path).Info("reloaded rates file")
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.WithError(err).Warn("rates file watcher error")
			case <-s.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the file watcher if one is running
func (s *FileSource) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *FileSource) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read rates file: %w", err)
	}

	var doc ratesDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse rates file: %w", err)
	}
	if len(doc.Rates) == 0 {
		return fmt.Errorf("rates file %s contains no rates", s.path)
	}

	normalized := make(map[string]float64, len(doc.Rates))
	for currency, rate := range doc.Rates {
		normalized[strings.ToUpper(currency)] = rate
	}

	s.mu.Lock()
	s.rates = normalized
	s.mu.Unlock()
	return nil
}
