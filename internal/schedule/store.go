package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// JobIDPrefix keys the on-disk mapping: "schedule_<Process>" -> "HH:MM".
// A key is present only while the schedule is enabled; disabling removes it.
const JobIDPrefix = "schedule_"

var timePattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ValidationError reports a rejected mutation. Nothing was changed.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// ParseTime validates an HH:MM wall-clock string and splits it.
func ParseTime(raw string) (hour, minute int, err error) {
	m := timePattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, 0, &ValidationError{Code: "invalid_time", Message: fmt.Sprintf("time %q does not match HH:MM", raw)}
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	return hour, minute, nil
}

func JobID(processName string) string {
	return JobIDPrefix + processName
}

// Store is the durable mapping of process to daily trigger time. All
// mutations are whole-file read-modify-write with an atomic replace, so the
// file is valid JSON after every write.
type Store struct {
	mu        sync.Mutex
	file      string
	isProcess func(name string) bool
}

func NewStore(dataDir string, isProcess func(string) bool) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &Store{file: filepath.Join(dataDir, "schedules.json"), isProcess: isProcess}, nil
}

// Set persists timeOfDay for processName, rejecting malformed times and
// unknown processes without touching the file.
func (s *Store) Set(processName, timeOfDay string) error {
	if s.isProcess != nil && !s.isProcess(processName) {
		return &ValidationError{Code: "unknown_process", Message: fmt.Sprintf("unknown process %q", processName)}
	}
	if _, _, err := ParseTime(timeOfDay); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.loadLocked()
	data[JobID(processName)] = timeOfDay
	return s.saveLocked(data)
}

// Clear removes the schedule key. Clearing an absent schedule is a no-op
// success, not an error.
func (s *Store) Clear(processName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.loadLocked()
	if _, ok := data[JobID(processName)]; !ok {
		return nil
	}
	delete(data, JobID(processName))
	return s.saveLocked(data)
}

// LoadAll returns process -> HH:MM for every well-formed entry. Unrecognized
// keys, unknown processes and malformed times are skipped with a warning so
// the rest of the file still loads.
func (s *Store) LoadAll() map[string]string {
	s.mu.Lock()
	raw := s.loadLocked()
	s.mu.Unlock()

	out := make(map[string]string)
	for jobID, timeOfDay := range raw {
		if !strings.HasPrefix(jobID, JobIDPrefix) {
			log.Printf("schedule: skipping entry %q: unrecognized key", jobID)
			continue
		}
		process := strings.TrimPrefix(jobID, JobIDPrefix)
		if s.isProcess != nil && !s.isProcess(process) {
			log.Printf("schedule: skipping entry %q: unknown process", jobID)
			continue
		}
		if _, _, err := ParseTime(timeOfDay); err != nil {
			log.Printf("schedule: skipping entry %q: %v", jobID, err)
			continue
		}
		out[process] = timeOfDay
	}
	return out
}

// Flush rewrites the file from its current content. Called on shutdown so
// the file on disk is the final word.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(s.loadLocked())
}

func (s *Store) loadLocked() map[string]string {
	data := map[string]string{}
	raw, err := os.ReadFile(s.file)
	if errors.Is(err, os.ErrNotExist) {
		return data
	}
	if err != nil {
		log.Printf("schedule: read %s failed, starting over: %v", s.file, err)
		return data
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		log.Printf("schedule: %s is not a valid JSON mapping, starting over: %v", s.file, err)
		return data
	}
	for k, v := range parsed {
		str, ok := v.(string)
		if !ok {
			log.Printf("schedule: skipping entry %q: value is not a string", k)
			continue
		}
		data[k] = str
	}
	return data
}

func (s *Store) saveLocked(data map[string]string) error {
	buf, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(s.file, buf)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".schedules-*")
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
