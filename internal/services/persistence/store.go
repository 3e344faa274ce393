package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/LeonardoBeccarini/greenhouse_project/internal/model/entities"
)

const (
	filePrefix = "greenhouse"
	fileSuffix = ".json"
)

// FileStore keeps one pretty-printed JSON document per greenhouse in Dir,
// named greenhouse<id>.json.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{Dir: dir}
}

func (s *FileStore) path(id int) string {
	return filepath.Join(s.Dir, filePrefix+strconv.Itoa(id)+fileSuffix)
}

// SaveAll writes every snapshot. Each file is replaced atomically so a
// crash never leaves a half-written greenhouse behind.
func (s *FileStore) SaveAll(snaps []entities.GreenhouseSnapshot) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	var errs []error
	for _, snap := range snaps {
		if err := s.save(snap); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *FileStore) save(snap entities.GreenhouseSnapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode greenhouse %d: %w", snap.ID, err)
	}
	tmp, err := os.CreateTemp(s.Dir, filePrefix+"-*.tmp")
	if err != nil {
		return fmt.Errorf("save greenhouse %d: %w", snap.ID, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("save greenhouse %d: %w", snap.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save greenhouse %d: %w", snap.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(snap.ID)); err != nil {
		return fmt.Errorf("save greenhouse %d: %w", snap.ID, err)
	}
	return nil
}

// LoadAll reads every greenhouse file in Dir, sorted by id. A missing
// directory is an empty store. Unreadable files are logged and skipped.
func (s *FileStore) LoadAll() ([]entities.GreenhouseSnapshot, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var out []entities.GreenhouseSnapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		if _, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)); err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.Dir, name))
		if err != nil {
			log.Printf("persistence: skip %s: %v", name, err)
			continue
		}
		var snap entities.GreenhouseSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Printf("persistence: skip %s: invalid JSON: %v", name, err)
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
