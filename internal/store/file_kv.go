package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
)

const fileLockRetry = 25 * time.Millisecond

var errCorruptFile = errors.New("store: corrupt file")

// FileKV persists every key in one JSON file. Writes go through a temporary file and a
// rename, serialised across processes with an advisory lock next to the file.
type FileKV struct {
	path   string
	mu     sync.Mutex
	lock   *flock.Flock
	logger *zap.Logger
}

// NewFileKV returns a FileKV bound to path. The file is created on first write.
func NewFileKV(path string) *FileKV {
	return &FileKV{
		path:   path,
		lock:   flock.New(path + ".lock"),
		logger: zap.NewNop(),
	}
}

// Path returns the backing file.
func (f *FileKV) Path() string { return f.path }

// SetLogger sets the logger used when a corrupt file is replaced.
func (f *FileKV) SetLogger(logger *zap.Logger) {
	if logger != nil {
		f.logger = logger
	}
}

func (f *FileKV) Get(ctx context.Context, key string) ([]byte, error) {
	unlock, err := f.acquire(ctx, false)
	if err != nil {
		return nil, err
	}
	defer unlock()

	values, err := f.read()
	if err != nil {
		return nil, err
	}
	v, ok := values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return []byte(v), nil
}

func (f *FileKV) Set(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return ErrInvalidInput
	}
	return f.update(ctx, func(values map[string]string) {
		values[key] = string(value)
	})
}

func (f *FileKV) Delete(ctx context.Context, key string) error {
	return f.update(ctx, func(values map[string]string) {
		delete(values, key)
	})
}

func (f *FileKV) update(ctx context.Context, mutate func(map[string]string)) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("store: create dir: %w", err)
	}
	unlock, err := f.acquire(ctx, true)
	if err != nil {
		return err
	}
	defer unlock()

	values, err := f.read()
	if errors.Is(err, errCorruptFile) {
		// Writes always succeed over an undecodable file; its bytes are kept aside.
		aside := f.path + ".corrupt"
		f.logger.Warn("file store unreadable; starting empty",
			zap.String("path", f.path), zap.String("moved_to", aside), zap.Error(err))
		if rerr := os.Rename(f.path, aside); rerr != nil {
			f.logger.Warn("file store could not be moved aside", zap.String("path", f.path), zap.Error(rerr))
		}
		values, err = map[string]string{}, nil
	}
	if err != nil {
		return err
	}
	mutate(values)
	return f.write(values)
}

func (f *FileKV) acquire(ctx context.Context, exclusive bool) (func(), error) {
	// flock state is per handle, so goroutines of this process also need the mutex.
	f.mu.Lock()
	release := f.mu.Unlock
	if _, err := os.Stat(filepath.Dir(f.path)); errors.Is(err, fs.ErrNotExist) {
		return release, nil
	}
	var (
		ok  bool
		err error
	)
	if exclusive {
		ok, err = f.lock.TryLockContext(ctx, fileLockRetry)
	} else {
		ok, err = f.lock.TryRLockContext(ctx, fileLockRetry)
	}
	if err != nil {
		release()
		return nil, fmt.Errorf("store: lock %s: %w", f.path, err)
	}
	if !ok {
		release()
		return nil, fmt.Errorf("store: lock %s: not acquired", f.path)
	}
	return func() {
		_ = f.lock.Unlock()
		release()
	}, nil
}

func (f *FileKV) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", errCorruptFile, f.path, err)
	}
	return values, nil
}

func (f *FileKV) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("store: replace %s: %w", f.path, err)
	}
	return nil
}
