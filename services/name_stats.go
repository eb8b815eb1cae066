package services

import (
	"context"
	"sort"
	"sync"

	"line-register-bot/models"
)

// NameStats is the aggregate frequency table of real names and nicknames
// Names are keyed by NormalizeName; counts never go below zero
type NameStats interface {
	Increment(ctx context.Context, kind models.NameKind, name string) error
	Decrement(ctx context.Context, kind models.NameKind, name string) error
	// Top returns the n most frequent names, highest count first, ties by name
	Top(ctx context.Context, kind models.NameKind, n int) ([]models.NameCount, error)
}

// ApplyNameChanges replays changes against stats: the old value is
// decremented and the new one incremented. Unchanged names are skipped
func ApplyNameChanges(ctx context.Context, stats NameStats, changes []NameChange) error {
	for _, ch := range changes {
		oldKey, newKey := NormalizeName(ch.Old), NormalizeName(ch.New)
		if oldKey == newKey {
			continue
		}
		if oldKey != "" {
			if err := stats.Decrement(ctx, ch.Kind, oldKey); err != nil {
				return err
			}
		}
		if newKey != "" {
			if err := stats.Increment(ctx, ch.Kind, newKey); err != nil {
				return err
			}
		}
	}
	return nil
}

// MemoryNameStats is a mutex-guarded in-process NameStats
type MemoryNameStats struct {
	mu     sync.Mutex
	tables map[models.NameKind]map[string]int64
}

// NewMemoryNameStats returns empty tables
func NewMemoryNameStats() *MemoryNameStats {
	return &MemoryNameStats{tables: make(map[models.NameKind]map[string]int64)}
}

func (s *MemoryNameStats) Increment(_ context.Context, kind models.NameKind, name string) error {
	key := NormalizeName(name)
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[kind]
	if t == nil {
		t = make(map[string]int64)
		s.tables[kind] = t
	}
	t[key]++
	return nil
}

func (s *MemoryNameStats) Decrement(_ context.Context, kind models.NameKind, name string) error {
	key := NormalizeName(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tables[kind]
	if t[key] <= 1 {
		delete(t, key)
		return nil
	}
	t[key]--
	return nil
}

func (s *MemoryNameStats) Top(_ context.Context, kind models.NameKind, n int) ([]models.NameCount, error) {
	s.mu.Lock()
	rows := make([]models.NameCount, 0, len(s.tables[kind]))
	for name, count := range s.tables[kind] {
		rows = append(rows, models.NameCount{Name: name, Count: count})
	}
	s.mu.Unlock()
	return rankNameCounts(rows, n), nil
}

// rankNameCounts sorts by count descending, breaks ties by name and keeps at
// most n rows. n <= 0 keeps all
func rankNameCounts(rows []models.NameCount, n int) []models.NameCount {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Name < rows[j].Name
	})
	if n > 0 && len(rows) > n {
		rows = rows[:n]
	}
	return rows
}

// RebuildNameStats counts the names of every registered user in users. It is
// used to warm an in-memory table after a restart
func RebuildNameStats(ctx context.Context, users UserStore, stats NameStats) (int, error) {
	recs, err := users.List(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, rec := range recs {
		if !rec.IsRegistered() {
			continue
		}
		changes := []NameChange{
			{Kind: models.NameKindReal, New: rec.RealName},
			{Kind: models.NameKindNick, New: rec.NickName},
		}
		if err := ApplyNameChanges(ctx, stats, changes); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
