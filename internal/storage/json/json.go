// Package json is a file backed position store for local runs and tests.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/helmos/coin-robot/internal/storage"
)

// Store keeps one json file per position under a directory.
type Store struct {
	dir string
}

// NewStore creates the store, making the directory if needed.
func NewStore(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if err := os.MkdirAll(dir, os.ModePerm); err != nil {
			return nil, fmt.Errorf("could not make dir: %s: %w", dir, err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Insert(_ context.Context, record storage.Record) (string, error) {
	record.ID = uuid.New().String()
	if err := s.write(record); err != nil {
		return "", err
	}
	return record.ID, nil
}

func (s *Store) Update(_ context.Context, record storage.Record) error {
	if record.ID == "" {
		return fmt.Errorf("record without id: %w", storage.ErrNotFound)
	}
	if _, err := os.Stat(s.path(record.ID)); err != nil {
		return fmt.Errorf("record %s: %w", record.ID, storage.ErrNotFound)
	}
	return s.write(record)
}

func (s *Store) Open(_ context.Context) ([]storage.Record, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("could not read dir %s: %w", s.dir, err)
	}
	var records []storage.Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("could not read file %s: %w", entry.Name(), err)
		}
		var record storage.Record
		if err := json.Unmarshal(data, &record); err != nil {
			return nil, fmt.Errorf("could not unmarshal %s: %w", entry.Name(), err)
		}
		if !record.Closed {
			records = append(records, record)
		}
	}
	return records, nil
}

func (s *Store) write(record storage.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("could not marshal record %s: %w", record.ID, err)
	}
	if err := os.WriteFile(s.path(record.ID), data, 0o644); err != nil {
		return fmt.Errorf("could not write record %s: %s: %w", record.ID, err.Error(), storage.ErrCouldNotSave)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}
