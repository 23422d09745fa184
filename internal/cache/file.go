package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"StockOverview/internal/bucket"
)

const fileExt = ".json"

// Retention is the number of buckets kept per granularity.
type Retention struct {
	Minutes int
	Days    int
}

// FileStore keeps one JSON file per key under Dir.
type FileStore struct {
	Dir      string
	Location *time.Location
}

// NewFileStore creates the cache folder if needed. loc is the zone bucket keys
// were formatted in; Sweep uses it to date files.
func NewFileStore(dir string, loc *time.Location) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("cache folder is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache folder: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &FileStore{Dir: dir, Location: loc}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(s.Dir, key+fileExt), nil
}

func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (s *FileStore) Read(_ context.Context, key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("read cache entry %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorruptEntry, key, err)
	}
	return nil
}

// Write marshals v to a temp file and renames it into place, so readers never
// see a partial entry. An existing entry is left alone.
func (s *FileStore) Write(ctx context.Context, key string, v any) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if ok, err := s.Exists(ctx, key); err != nil {
		return err
	} else if ok {
		log.Debug().Str("key", key).Msg("cache entry exists, skipping write")
		return nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(s.Dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}

	// Another writer may have landed the same bucket while we marshalled.
	if ok, _ := s.Exists(ctx, key); ok {
		log.Debug().Str("key", key).Msg("cache entry written concurrently, dropping ours")
		os.Remove(tmpName)
		return nil
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename cache entry %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) Prune(_ context.Context, key string) {
	p, err := s.path(key)
	if err != nil {
		log.Warn().Err(err).Msg("prune skipped")
		return
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Warn().Err(err).Str("key", key).Msg("prune cache entry")
	}
}

// Sweep deletes every cache file whose bucket is at least the retention
// window older than now, plus temp files abandoned for longer than a day.
// Per-request pruning only removes the single bucket that just aged out, so
// buckets for minutes without traffic are collected here. It returns the
// number of files removed.
func (s *FileStore) Sweep(ctx context.Context, now time.Time, keep Retention) (int, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("list cache folder: %w", err)
	}
	now = now.In(s.Location)

	removed := 0
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if e.IsDir() {
			continue
		}
		name := e.Name()

		if strings.HasSuffix(name, ".tmp") {
			info, err := e.Info()
			if err == nil && now.Sub(info.ModTime()) > 24*time.Hour {
				if os.Remove(filepath.Join(s.Dir, name)) == nil {
					removed++
				}
			}
			continue
		}
		if !strings.HasSuffix(name, fileExt) {
			continue
		}

		k, err := bucket.Parse(strings.TrimSuffix(name, fileExt), s.Location)
		if err != nil {
			continue
		}
		n := keep.Minutes
		if k.Granularity.Name == bucket.Day.Name {
			n = keep.Days
		}
		current, err := bucket.Parse(bucket.Format(k.Symbol, now, k.Granularity), s.Location)
		if err != nil {
			continue
		}
		if k.Start.After(current.Earlier(n).Start) {
			continue
		}
		if err := os.Remove(filepath.Join(s.Dir, name)); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Warn().Err(err).Str("file", name).Msg("sweep cache entry")
			}
			continue
		}
		removed++
	}
	return removed, nil
}
