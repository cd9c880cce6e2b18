// Package testutils provides in-memory implementations of the ports for
// tests that exercise services without a real store.
package testutils

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// MemoryStore implements every persistence port in memory.
// It is safe for concurrent use. Setting one of the Fail fields makes the
// corresponding operation return that error, which lets tests drive
// storage failure paths.
type MemoryStore struct {
	mu sync.Mutex

	seq         uint64
	judgments   []domain.Judgment
	respondents map[string]domain.Respondent
	sessions    map[string]domain.Snapshot
	aggregates  []domain.AggregateStat

	// FailAppend is returned by AppendJudgment when set.
	FailAppend error
	// FailSaveSession is returned by SaveSession when set.
	FailSaveSession error
	// FailSaveRanking is returned by SaveRanking when set.
	FailSaveRanking error
	// FailList is returned by ListFinalized when set.
	FailList error

	// ListCalls counts ListFinalized invocations.
	ListCalls int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		respondents: make(map[string]domain.Respondent),
		sessions:    make(map[string]domain.Snapshot),
	}
}

// AppendJudgment appends j to the log.
func (m *MemoryStore) AppendJudgment(_ context.Context, j domain.Judgment) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppend != nil {
		return 0, m.FailAppend
	}
	m.seq++
	m.judgments = append(m.judgments, j)
	return m.seq, nil
}

// ListJudgments returns one respondent's judgments in append order.
func (m *MemoryStore) ListJudgments(_ context.Context, respondentID string) ([]domain.Judgment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []domain.Judgment{}
	for _, j := range m.judgments {
		if j.RespondentID == respondentID {
			out = append(out, j)
		}
	}
	return out, nil
}

// JudgmentCount returns the total number of logged judgments.
func (m *MemoryStore) JudgmentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.judgments)
}

// CreateRespondent stores r.
func (m *MemoryStore) CreateRespondent(_ context.Context, r domain.Respondent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.respondents[r.ID]; exists {
		return ports.NewStoreError(r.ID, "create_respondent", ports.ErrDuplicateRecord)
	}
	m.respondents[r.ID] = r
	return nil
}

// GetRespondent returns the respondent with the given ID.
func (m *MemoryStore) GetRespondent(_ context.Context, id string) (domain.Respondent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.respondents[id]
	if !ok {
		return domain.Respondent{}, ports.NewStoreError(id, "get_respondent", domain.ErrRespondentNotFound)
	}
	r.Ranking = r.Ranking.Clone()
	return r, nil
}

// RespondentExistsForIP reports whether any respondent came from ip.
func (m *MemoryStore) RespondentExistsForIP(_ context.Context, ip string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.respondents {
		if r.IP == ip {
			return true, nil
		}
	}
	return false, nil
}

// SaveRanking attaches ranking to the respondent once.
func (m *MemoryStore) SaveRanking(_ context.Context, id string, ranking domain.RankAssignment, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaveRanking != nil {
		return m.FailSaveRanking
	}
	r, ok := m.respondents[id]
	if !ok {
		return ports.NewStoreError(id, "save_ranking", domain.ErrRespondentNotFound)
	}
	if r.Finalized() {
		return ports.NewStoreError(id, "save_ranking", ports.ErrDuplicateRecord)
	}
	r.Ranking = ranking.Clone()
	r.FinalizedAt = &at
	m.respondents[id] = r
	return nil
}

// ListFinalized returns every respondent holding a ranking, ordered by ID.
func (m *MemoryStore) ListFinalized(_ context.Context) ([]domain.Respondent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls++
	if m.FailList != nil {
		return nil, m.FailList
	}
	out := []domain.Respondent{}
	for _, id := range slices.Sorted(maps.Keys(m.respondents)) {
		r := m.respondents[id]
		if r.Finalized() {
			r.Ranking = r.Ranking.Clone()
			out = append(out, r)
		}
	}
	return out, nil
}

// PutRespondent stores r directly, bypassing the create checks. Tests use
// it to seed finalized respondents.
func (m *MemoryStore) PutRespondent(r domain.Respondent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.respondents[r.ID] = r
}

// SaveSession stores the respondent's snapshot.
func (m *MemoryStore) SaveSession(_ context.Context, id string, s domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailSaveSession != nil {
		return m.FailSaveSession
	}
	m.sessions[id] = s
	return nil
}

// LoadSession returns the respondent's snapshot.
func (m *MemoryStore) LoadSession(_ context.Context, id string) (domain.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	return s, ok, nil
}

// DeleteSession removes the respondent's snapshot.
func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, id)
	return nil
}

// CountSessions returns the number of open sessions.
func (m *MemoryStore) CountSessions(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions), nil
}

// ReplaceAggregates swaps the stored statistics.
func (m *MemoryStore) ReplaceAggregates(_ context.Context, stats []domain.AggregateStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.aggregates = slices.Clone(stats)
	return nil
}

// ListAggregates returns the stored statistics.
func (m *MemoryStore) ListAggregates(_ context.Context) ([]domain.AggregateStat, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.aggregates), nil
}

// String summarizes the store contents for test failure messages.
func (m *MemoryStore) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fmt.Sprintf("MemoryStore{judgments:%d respondents:%d sessions:%d aggregates:%d}",
		len(m.judgments), len(m.respondents), len(m.sessions), len(m.aggregates))
}

var (
	_ ports.JudgmentLog     = (*MemoryStore)(nil)
	_ ports.RespondentStore = (*MemoryStore)(nil)
	_ ports.SessionStore    = (*MemoryStore)(nil)
	_ ports.AggregateStore  = (*MemoryStore)(nil)
)
