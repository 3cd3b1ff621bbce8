// Package criteria loads content acceptance criteria from a YAML file and
// keeps them up to date when the file changes.
//
// Example file:
//
//	min_entropy: 7.0
//	min_std_dev: 40
//	max_std_dev: 90
//
// Fields that are not set keep their default value; an explicit zero
// disables the corresponding rule.
package criteria

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/ossf/byte-analysis/internal/bytedist"
)

// ErrEmptyFile is returned by Load for a criteria file with no content. Such a
// file is usually caught part way through being rewritten.
var ErrEmptyFile = errors.New("criteria file is empty")

// reloadDelay is how long Watch waits after the last event on the criteria
// file before reloading it.
var reloadDelay = 100 * time.Millisecond

// Load reads and validates the criteria file at path. An empty file is an
// error wrapping ErrEmptyFile.
func Load(path string) (bytedist.Criteria, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return bytedist.Criteria{}, fmt.Errorf("reading criteria file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return bytedist.Criteria{}, fmt.Errorf("%w: %s", ErrEmptyFile, path)
	}
	return Parse(data)
}

// Parse decodes YAML criteria on top of bytedist.DefaultCriteria() and
// validates the result.
func Parse(data []byte) (bytedist.Criteria, error) {
	c := bytedist.DefaultCriteria()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return bytedist.Criteria{}, fmt.Errorf("parsing criteria: %w", err)
	}
	if err := c.Validate(); err != nil {
		return bytedist.Criteria{}, err
	}
	return c, nil
}

// Holder stores the criteria currently in force. It is safe for concurrent use.
type Holder struct {
	current atomic.Pointer[bytedist.Criteria]
}

func NewHolder(c bytedist.Criteria) *Holder {
	h := &Holder{}
	h.Set(c)
	return h
}

func (h *Holder) Current() bytedist.Criteria {
	return *h.current.Load()
}

func (h *Holder) Set(c bytedist.Criteria) {
	h.current.Store(&c)
}

/*
Watch monitors path and calls onChange with the newly loaded criteria each
time the file is written or replaced. It blocks until ctx is cancelled.

The parent directory is watched rather than the file, so that editors which
save by renaming a new file into place are handled. Bursts of events are
coalesced, and the file is reloaded once they have stopped for reloadDelay.

If a reload fails (for example invalid YAML or out of range thresholds), the
error is logged and onChange is not called, so the previous criteria stay in
force.
*/
func Watch(ctx context.Context, path string, onChange func(bytedist.Criteria)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watching criteria file: %w", err)
	}
	slog.InfoContext(ctx, "watching criteria file for changes", "path", path)

	reload := make(chan struct{}, 1)
	timer := time.AfterFunc(reloadDelay, func() {
		select {
		case reload <- struct{}{}:
		default:
		}
	})
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(reloadDelay)

		case <-reload:
			c, err := Load(path)
			if err != nil {
				slog.ErrorContext(ctx, "criteria reload failed, keeping previous criteria",
					"path", path, "error", err)
				continue
			}
			slog.InfoContext(ctx, "criteria reloaded",
				"path", path,
				"min_entropy", c.MinEntropy,
				"min_std_dev", c.MinStdDev,
				"max_std_dev", c.MaxStdDev)
			onChange(c)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.ErrorContext(ctx, "criteria watcher error", "error", err)
		}
	}
}

// LoadAndWatch loads the criteria file into a Holder and starts a goroutine
// that keeps it updated until ctx is cancelled.
func LoadAndWatch(ctx context.Context, path string) (*Holder, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	h := NewHolder(c)
	go func() {
		if err := Watch(ctx, path, h.Set); err != nil {
			slog.ErrorContext(ctx, "criteria watch stopped", "path", path, "error", err)
		}
	}()
	return h, nil
}
