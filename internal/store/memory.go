package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spboyer/checkerd/internal/models"
)

// state is the in-memory image shared by MemoryStore and FileStore.
type state struct {
	Checkers    map[string]*models.Checker    `json:"checkers"`
	Runs        map[string]*models.CheckerRun `json:"runs"`
	Overrides   []models.Override             `json:"overrides"`
	Transitions []models.StatusTransition     `json:"-"`
}

func newState() *state {
	return &state{
		Checkers: make(map[string]*models.Checker),
		Runs:     make(map[string]*models.CheckerRun),
	}
}

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	st        *state
	retention int
	now       func() time.Time

	// onChange is called with the lock held after every mutation.
	onChange func() error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		st:        newState(),
		retention: DefaultRunRetention,
		now:       time.Now,
	}
}

func (m *MemoryStore) changed() error {
	if m.onChange == nil {
		return nil
	}
	return m.onChange()
}

func (m *MemoryStore) GetOrCreateChecker(name, section string) (*models.Checker, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.st.Checkers[name]; ok {
		cp := *c
		return &cp, nil
	}
	c := models.NewChecker(name, section, m.now().UTC())
	m.st.Checkers[name] = c
	if err := m.changed(); err != nil {
		return nil, err
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) GetChecker(name string) (*models.Checker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.st.Checkers[name]
	if !ok {
		return nil, fmt.Errorf("checker %q: %w", name, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) SaveChecker(c *models.Checker) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *c
	m.st.Checkers[c.Name] = &cp
	return m.changed()
}

func (m *MemoryStore) ListCheckers() ([]*models.Checker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.Checker, 0, len(m.st.Checkers))
	for _, c := range m.st.Checkers {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) CreateRun(run *models.CheckerRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.st.Runs[run.ID]; ok {
		return fmt.Errorf("run %q already exists", run.ID)
	}
	m.st.Runs[run.ID] = copyRun(run)
	m.prune(run.Checker)
	return m.changed()
}

func (m *MemoryStore) SaveRun(run *models.CheckerRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.st.Runs[run.ID]; !ok {
		return fmt.Errorf("run %q: %w", run.ID, ErrNotFound)
	}
	m.st.Runs[run.ID] = copyRun(run)
	return m.changed()
}

func (m *MemoryStore) GetRun(id string) (*models.CheckerRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.st.Runs[id]
	if !ok {
		return nil, fmt.Errorf("run %q: %w", id, ErrNotFound)
	}
	return copyRun(run), nil
}

func (m *MemoryStore) LatestRun(checker, excludeID string) (*models.CheckerRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, run := range m.runsLocked(checker) {
		if run.ID != excludeID {
			return copyRun(run), nil
		}
	}
	return nil, fmt.Errorf("latest run of %q: %w", checker, ErrNotFound)
}

func (m *MemoryStore) Runs(checker string, limit int) ([]*models.CheckerRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := m.runsLocked(checker)
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	out := make([]*models.CheckerRun, len(runs))
	for i, r := range runs {
		out[i] = copyRun(r)
	}
	return out, nil
}

// runsLocked returns checker's runs newest first. Caller holds the lock.
func (m *MemoryStore) runsLocked(checker string) []*models.CheckerRun {
	var runs []*models.CheckerRun
	for _, r := range m.st.Runs {
		if r.Checker == checker {
			runs = append(runs, r)
		}
	}
	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs
}

// prune drops the oldest runs of checker beyond the retention limit.
func (m *MemoryStore) prune(checker string) {
	if m.retention <= 0 {
		return
	}
	runs := m.runsLocked(checker)
	for _, r := range runs[min(len(runs), m.retention):] {
		delete(m.st.Runs, r.ID)
	}
}

func (m *MemoryStore) Overrides(checker string) ([]models.Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.Override
	for _, o := range m.st.Overrides {
		if o.AllCheckers || o.Checker == checker {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *MemoryStore) AddOverride(o *models.Override) error {
	if !o.AllCheckers && o.Checker == "" {
		return fmt.Errorf("override must name a checker or apply to all checkers")
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = m.now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.st.Overrides = append(m.st.Overrides, *o)
	return m.changed()
}

func (m *MemoryStore) DeleteOverride(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, o := range m.st.Overrides {
		if o.ID == id {
			m.st.Overrides = append(m.st.Overrides[:i], m.st.Overrides[i+1:]...)
			return m.changed()
		}
	}
	return fmt.Errorf("override %q: %w", id, ErrNotFound)
}

func (m *MemoryStore) RecordTransition(t models.StatusTransition) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.st.Transitions = append(m.st.Transitions, t)
	return nil
}

func (m *MemoryStore) Transitions(checker string) ([]models.StatusTransition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []models.StatusTransition
	for _, t := range m.st.Transitions {
		if t.Checker == checker {
			out = append(out, t)
		}
	}
	return out, nil
}

func copyRun(run *models.CheckerRun) *models.CheckerRun {
	cp := *run
	if run.Failures != nil {
		cp.Failures = make([]models.CheckerFailure, len(run.Failures))
		copy(cp.Failures, run.Failures)
	}
	if run.Data != nil {
		cp.Data = make(map[string]any, len(run.Data))
		for k, v := range run.Data {
			cp.Data[k] = v
		}
	}
	return &cp
}
