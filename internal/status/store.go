package status

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"priceops/gateway/internal/domain"
)

// Store keeps the single most recent run outcome per process, one JSON file
// per process under <dataDir>/status. Every write replaces the whole file.
type Store struct {
	mu  sync.Mutex
	dir string
}

func NewStore(dataDir string) (*Store, error) {
	dir := filepath.Join(dataDir, "status")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Store{dir: dir}, nil
}

// Record overwrites the record for processName with the current UTC
// timestamp. Callers treat a returned error as a warning: the run that
// produced the record already finished and stays finished.
func (s *Store) Record(processName string, succeeded bool, message string) error {
	rec := domain.StatusRecord{
		ProcessName:  processName,
		TimestampUTC: time.Now().UTC().Format(time.RFC3339),
		Success:      succeeded,
		Message:      message,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeFileAtomic(s.path(processName), data)
}

// Read returns the last record for processName. ok=false with a nil error
// means no run has been recorded yet, which is a valid state.
func (s *Store) Read(processName string) (domain.StatusRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(processName))
	if errors.Is(err, os.ErrNotExist) {
		return domain.StatusRecord{}, false, nil
	}
	if err != nil {
		return domain.StatusRecord{}, false, err
	}
	var rec domain.StatusRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.StatusRecord{}, false, err
	}
	if rec.ProcessName == "" {
		return domain.StatusRecord{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) path(processName string) string {
	return filepath.Join(s.dir, processName+".json")
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".status-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
