package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spboyer/checkerd/internal/models"
)

const (
	stateFileName       = "state.json"
	transitionsFileName = "transitions.ndjson"
)

// FileStore keeps its state in memory and writes it to dir after every
// change: checkers, runs and overrides as one JSON document, transitions
// as an append-only NDJSON journal.
type FileStore struct {
	*MemoryStore

	dir string

	journalMu sync.Mutex
	journal   *os.File
	enc       *json.Encoder
}

// OpenFileStore loads the store in dir, creating the directory if needed.
func OpenFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	fs := &FileStore{MemoryStore: NewMemoryStore(), dir: dir}
	if err := fs.load(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(filepath.Join(dir, transitionsFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening transition journal: %w", err)
	}
	fs.journal = f
	fs.enc = json.NewEncoder(f)
	fs.MemoryStore.onChange = fs.writeState
	return fs, nil
}

// Dir returns the directory backing the store.
func (fs *FileStore) Dir() string { return fs.dir }

func (fs *FileStore) load() error {
	data, err := os.ReadFile(filepath.Join(fs.dir, stateFileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("reading store state: %w", err)
	default:
		st := newState()
		if err := json.Unmarshal(data, st); err != nil {
			return fmt.Errorf("parsing store state: %w", err)
		}
		if st.Checkers == nil {
			st.Checkers = make(map[string]*models.Checker)
		}
		if st.Runs == nil {
			st.Runs = make(map[string]*models.CheckerRun)
		}
		fs.st = st
	}

	f, err := os.Open(filepath.Join(fs.dir, transitionsFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading transition journal: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var t models.StatusTransition
		if err := json.Unmarshal(scanner.Bytes(), &t); err != nil {
			// partially written trailing line
			continue
		}
		fs.st.Transitions = append(fs.st.Transitions, t)
	}
	return scanner.Err()
}

// writeState is called with the MemoryStore lock held.
func (fs *FileStore) writeState() error {
	data, err := json.MarshalIndent(fs.st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling store state: %w", err)
	}

	tmp, err := os.CreateTemp(fs.dir, stateFileName+".*")
	if err != nil {
		return fmt.Errorf("writing store state: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing store state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("writing store state: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(fs.dir, stateFileName)); err != nil {
		return fmt.Errorf("replacing store state: %w", err)
	}
	return nil
}

// RecordTransition keeps t in memory and appends it to the journal.
func (fs *FileStore) RecordTransition(t models.StatusTransition) error {
	if err := fs.MemoryStore.RecordTransition(t); err != nil {
		return err
	}

	fs.journalMu.Lock()
	defer fs.journalMu.Unlock()

	if fs.enc == nil {
		return fmt.Errorf("store is closed")
	}
	if err := fs.enc.Encode(t); err != nil {
		return fmt.Errorf("writing transition: %w", err)
	}
	return nil
}

// Close closes the transition journal.
func (fs *FileStore) Close() error {
	fs.journalMu.Lock()
	defer fs.journalMu.Unlock()

	if fs.journal == nil {
		return nil
	}
	err := fs.journal.Close()
	fs.journal = nil
	fs.enc = nil
	return err
}
