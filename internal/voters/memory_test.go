package voters

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dunvault/dunvault/internal/audit"
	"github.com/dunvault/dunvault/internal/authz"
	"github.com/dunvault/dunvault/internal/shared"
)

// memoryRepo is an in-memory Repository honouring scope and filters.
type memoryRepo struct {
	mu          sync.Mutex
	voters      []Voter
	countCalls  int
	updateCalls int
}

func tagPtr(t Tag) *Tag { return &t }

func seedVoters() []Voter {
	return []Voter{
		{ID: 1, Bil: 1, NamaPemilih: "AHMAD BIN ALI", Jantina: "L", DaerahMengundi: "Kawang Baru", Lokaliti: "Kg Kawang", DUN: "Kawang", Tag: tagPtr(TagYes)},
		{ID: 2, Bil: 2, NamaPemilih: "SITI BINTI OMAR", Jantina: "P", DaerahMengundi: "Kawang Baru", Lokaliti: "Kg Kawang", DUN: "Kawang"},
		{ID: 3, Bil: 3, NamaPemilih: "CHONG AH KAU", Jantina: "L", DaerahMengundi: "Beringgis", Lokaliti: "Kg Beringgis", DUN: "Kawang", Tag: tagPtr(TagNo)},
		{ID: 4, Bil: 4, NamaPemilih: "MARY JOHN", Jantina: "P", DaerahMengundi: "Limbahau Laut", Lokaliti: "Kg Limbahau", DUN: "Limbahau", Tag: tagPtr(TagUnsure)},
		{ID: 5, Bil: 5, NamaPemilih: "AHMAD BIN SALLEH", Jantina: "L", DaerahMengundi: "Limbahau Laut", Lokaliti: "Kg Limbahau", DUN: "Limbahau"},
		{ID: 6, Bil: 6, NamaPemilih: "YUSOF BIN HASSAN", Jantina: "L", DaerahMengundi: "Papar", Lokaliti: "Pekan Papar", DUN: "Pantai Manis", Tag: tagPtr(TagYes)},
		{ID: 7, Bil: 7, NamaPemilih: "UNASSIGNED VOTER", Jantina: "P", DaerahMengundi: "Papar", Lokaliti: "Pekan Papar"},
	}
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{voters: seedVoters()}
}

func (m *memoryRepo) matches(v Voter, scope authz.Scope, q Query) bool {
	if !scope.Allows(v.DUN) {
		return false
	}
	if q.Name != "" && !strings.Contains(strings.ToLower(v.NamaPemilih), strings.ToLower(q.Name)) {
		return false
	}
	if q.Gender != "" && v.Jantina != q.Gender {
		return false
	}
	if q.Daerah != "" && v.DaerahMengundi != q.Daerah {
		return false
	}
	if q.Lokaliti != "" && v.Lokaliti != q.Lokaliti {
		return false
	}
	switch {
	case q.Untagged:
		return v.Tag == nil
	case q.Tag != nil:
		return v.Tag != nil && *v.Tag == *q.Tag
	}
	return true
}

func (m *memoryRepo) List(ctx context.Context, scope authz.Scope, q Query, limit, offset int) ([]Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Voter
	for _, v := range m.voters {
		if m.matches(v, scope, q) {
			out = append(out, v)
		}
	}
	if offset >= len(out) {
		return []Voter{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (*Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.voters {
		if v.ID == id {
			cp := v
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) UpdateTag(ctx context.Context, id int64, tag *Tag, at time.Time) (*Voter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	for i := range m.voters {
		if m.voters[i].ID == id {
			m.voters[i].Tag = tag
			m.voters[i].UpdatedAt = &at
			cp := m.voters[i]
			return &cp, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *memoryRepo) TagCounts(ctx context.Context, scope authz.Scope) (TagCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	var c TagCounts
	for _, v := range m.voters {
		if !scope.Allows(v.DUN) {
			continue
		}
		c.Total++
		if v.Tag == nil {
			continue
		}
		switch *v.Tag {
		case TagYes:
			c.Yes++
		case TagUnsure:
			c.Unsure++
		case TagNo:
			c.No++
		}
	}
	return c, nil
}

func (m *memoryRepo) Distinct(ctx context.Context, scope authz.Scope, column Column) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, v := range m.voters {
		if !scope.Allows(v.DUN) {
			continue
		}
		var value string
		switch column {
		case ColumnDaerah:
			value = v.DaerahMengundi
		case ColumnLokaliti:
			value = v.Lokaliti
		case ColumnDUN:
			value = v.DUN
		}
		if value != "" && !seen[value] {
			seen[value] = true
			out = append(out, value)
		}
	}
	return out, nil
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (m *memoryRecorder) Record(ctx context.Context, entry audit.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *memoryRecorder) last() audit.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return audit.Entry{}
	}
	return m.entries[len(m.entries)-1]
}

func (m *memoryRecorder) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
