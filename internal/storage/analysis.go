package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/brandtrack/internal/models"
)

// historyEnvelope is the on-disk format of the analysis history file.
type historyEnvelope struct {
	Analyses []models.AnalysisRecord `json:"analyses"`
	Metadata historyMetadata         `json:"metadata"`
}

type historyMetadata struct {
	TotalAnalyses int       `json:"total_analyses"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpdated   time.Time `json:"last_updated"`
}

// AnalysisStore is the durable, ownership-scoped collection of completed
// analyses. The whole collection is held in memory and rewritten to disk as
// a unit on every mutation; a single mutex serializes writers while readers
// share the lock. Persistence is best-effort: a failed write is logged and
// reported, never surfaced as a request error.
type AnalysisStore struct {
	mu           sync.RWMutex
	path         string
	retentionCap int
	data         historyEnvelope
}

// NewAnalysisStore opens (or creates) the history file under dir.
func NewAnalysisStore(dir, file string, retentionCap int) (*AnalysisStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &AnalysisStore{
		path:         filepath.Join(dir, file),
		retentionCap: retentionCap,
	}

	raw, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.data); err != nil {
			// A corrupt history file must not take the service down.
			slog.Error("analysis history unreadable, starting empty", "path", s.path, "error", err)
			s.data = historyEnvelope{}
		}
	case os.IsNotExist(err):
		now := time.Now().UTC()
		s.data.Metadata = historyMetadata{CreatedAt: now, LastUpdated: now}
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("initialize history file: %w", err)
		}
	default:
		return nil, fmt.Errorf("read history file: %w", err)
	}

	return s, nil
}

// Save assigns a fresh id and timestamp, appends the record and enforces the
// retention cap by evicting the oldest records. The returned bool reports
// whether the durable write succeeded; the record is kept in memory and the
// id is valid either way.
func (s *AnalysisStore) Save(rec models.AnalysisRecord) (uuid.UUID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.New()
	rec.Timestamp = time.Now().UTC()
	s.data.Analyses = append(s.data.Analyses, rec)

	if s.retentionCap > 0 && len(s.data.Analyses) > s.retentionCap {
		sort.SliceStable(s.data.Analyses, func(i, j int) bool {
			return s.data.Analyses[i].Timestamp.Before(s.data.Analyses[j].Timestamp)
		})
		evicted := len(s.data.Analyses) - s.retentionCap
		s.data.Analyses = s.data.Analyses[evicted:]
		slog.Debug("retention cap enforced", "evicted", evicted, "cap", s.retentionCap)
	}

	s.touchLocked()

	if err := s.persistLocked(); err != nil {
		slog.Error("persist analysis record", "id", rec.ID, "error", err)
		return rec.ID, false
	}
	return rec.ID, true
}

// List returns records newest-first, optionally filtered to one owner and
// truncated to limit. An empty owner returns records across all owners.
func (s *AnalysisStore) List(owner string, limit int) []models.AnalysisRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.AnalysisRecord, 0, len(s.data.Analyses))
	for _, rec := range s.data.Analyses {
		if owner != "" && rec.Owner != owner {
			continue
		}
		out = append(out, rec)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns the record with the given id. When owner is non-empty and the
// record belongs to someone else the result is "not found" — absence and
// ownership mismatch are deliberately indistinguishable.
func (s *AnalysisStore) Get(id uuid.UUID, owner string) (models.AnalysisRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.data.Analyses {
		if rec.ID != id {
			continue
		}
		if owner != "" && rec.Owner != owner {
			return models.AnalysisRecord{}, false
		}
		return rec, true
	}
	return models.AnalysisRecord{}, false
}

// Delete removes the record with the given id, subject to the same
// ownership rule as Get. Returns whether a record was removed.
func (s *AnalysisStore) Delete(id uuid.UUID, owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range s.data.Analyses {
		if rec.ID != id {
			continue
		}
		if owner != "" && rec.Owner != owner {
			return false
		}
		s.data.Analyses = append(s.data.Analyses[:i], s.data.Analyses[i+1:]...)
		s.touchLocked()
		if err := s.persistLocked(); err != nil {
			slog.Error("persist analysis history after delete", "id", id, "error", err)
		}
		return true
	}
	return false
}

// BrandCount is one leaderboard row in the cross-tenant summary.
type BrandCount struct {
	Name             string `json:"name"`
	TotalAppearances int    `json:"total_appearances"`
}

// StatisticsSummary is the system-wide dashboard aggregate. It spans all
// owners on purpose.
type StatisticsSummary struct {
	TotalAnalyses       int          `json:"total_analyses"`
	TotalBrandsDetected int          `json:"total_brands_detected"`
	MostCommonBrands    []BrandCount `json:"most_common_brands"`
	AverageAnalysisTime float64      `json:"average_analysis_time"`
}

// Statistics sums per-brand appearances across every stored record into a
// top-10 leaderboard and averages analysis time.
func (s *AnalysisStore) Statistics() StatisticsSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := StatisticsSummary{
		TotalAnalyses:    len(s.data.Analyses),
		MostCommonBrands: []BrandCount{},
	}
	if len(s.data.Analyses) == 0 {
		return summary
	}

	brandTotals := make(map[string]int)
	var totalTime float64
	for _, rec := range s.data.Analyses {
		totalTime += rec.AnalysisTimeSeconds
		for brand, entry := range rec.BrandTimeline {
			brandTotals[brand] += entry.Appearances
		}
	}

	counts := make([]BrandCount, 0, len(brandTotals))
	for brand, total := range brandTotals {
		counts = append(counts, BrandCount{Name: brand, TotalAppearances: total})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].TotalAppearances != counts[j].TotalAppearances {
			return counts[i].TotalAppearances > counts[j].TotalAppearances
		}
		return counts[i].Name < counts[j].Name
	})
	if len(counts) > 10 {
		counts = counts[:10]
	}

	summary.TotalBrandsDetected = len(brandTotals)
	summary.MostCommonBrands = counts
	summary.AverageAnalysisTime = totalTime / float64(len(s.data.Analyses))
	return summary
}

func (s *AnalysisStore) touchLocked() {
	s.data.Metadata.TotalAnalyses = len(s.data.Analyses)
	s.data.Metadata.LastUpdated = time.Now().UTC()
}

// persistLocked rewrites the whole collection atomically (temp file +
// rename). Callers must hold the write lock.
func (s *AnalysisStore) persistLocked() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
