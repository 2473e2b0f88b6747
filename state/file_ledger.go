package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/researchaccelerator-hub/telegram-job/model"
)

// FileLedger keeps each record as <dir>/<key>.json.
type FileLedger struct {
	dir string
}

// NewFileLedger creates the ledger directory if needed.
func NewFileLedger(dir string) (*FileLedger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
	}
	return &FileLedger{dir: dir}, nil
}

func (l *FileLedger) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid ledger key %q", key)
	}
	return filepath.Join(l.dir, key+".json"), nil
}

func (l *FileLedger) Get(_ context.Context, key string) (*model.JobRecord, error) {
	path, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger record %s: %w", key, err)
	}

	var rec model.JobRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse ledger record %s: %w", key, err)
	}
	return &rec, nil
}

// Put writes through a temporary file and a rename so a crash never leaves half a record.
func (l *FileLedger) Put(_ context.Context, rec model.JobRecord) error {
	path, err := l.path(rec.Key)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger record %s: %w", rec.Key, err)
	}

	tmp, err := os.CreateTemp(l.dir, rec.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger record %s: %w", rec.Key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close ledger record %s: %w", rec.Key, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to store ledger record %s: %w", rec.Key, err)
	}
	return nil
}

func (l *FileLedger) Close() error { return nil }
