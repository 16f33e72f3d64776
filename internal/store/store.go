// Package store holds the in-memory, deduplicated record set built during a crawl.
package store

import (
	"net/url"
	"path"
	"strings"
	"sync"
	"unicode"

	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
)

// MergeResult describes what happened to a fragment passed to Merge
type MergeResult int

const (
	// Skipped means the fragment had neither an ID nor a usable link
	Skipped MergeResult = iota
	// Inserted means the fragment created a new record
	Inserted
	// Merged means the fragment was folded into an existing record
	Merged
)

func (r MergeResult) String() string {
	switch r {
	case Inserted:
		return "new"
	case Merged:
		return "merged"
	default:
		return "skipped"
	}
}

// RecordStore is a keyed map of deduplicated records. All mutation goes
// through Merge and Restore, which serialize on the store lock.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]*models.Record
	order   []string // insertion order of IDs
	skipped int
}

// New creates an empty RecordStore
func New() *RecordStore {
	return &RecordStore{
		records: make(map[string]*models.Record),
	}
}

// Merge folds a fragment observed under partitionTag into the store.
//
// A new ID is inserted with partitions = [partitionTag]. For a known ID the
// tag is appended if absent, optional metrics are filled only while empty and
// text fields are never overwritten once set.
func (s *RecordStore) Merge(f models.Fragment, partitionTag string) MergeResult {
	id := strings.TrimSpace(f.ID)
	link := strings.TrimSpace(f.ProfileURL)
	if id == "" {
		id = idFromLink(link)
	}
	if id == "" {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		log.Debug().
			Str("partition", partitionTag).
			Str("name", f.DisplayName).
			Msg("Skipping fragment without id or link")
		return Skipped
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[id]
	if !exists {
		rec = &models.Record{
			ID:            id,
			DisplayName:   f.DisplayName,
			ProfileURL:    link,
			CategoryLabel: f.CategoryLabel,
		}
		if f.Rating != nil {
			v := *f.Rating
			rec.Rating = &v
		}
		if f.ReviewCount != nil {
			v := *f.ReviewCount
			rec.ReviewCount = &v
		}
		if partitionTag != "" {
			rec.Partitions = []string{partitionTag}
		}
		s.records[id] = rec
		s.order = append(s.order, id)
		return Inserted
	}

	if partitionTag != "" && !contains(rec.Partitions, partitionTag) {
		rec.Partitions = append(rec.Partitions, partitionTag)
	}
	if rec.Rating == nil && f.Rating != nil {
		v := *f.Rating
		rec.Rating = &v
	}
	if rec.ReviewCount == nil && f.ReviewCount != nil {
		v := *f.ReviewCount
		rec.ReviewCount = &v
	}
	if rec.DisplayName == "" {
		rec.DisplayName = f.DisplayName
	}
	if rec.CategoryLabel == "" {
		rec.CategoryLabel = f.CategoryLabel
	}
	if rec.ProfileURL == "" {
		rec.ProfileURL = link
	}
	return Merged
}

// Get returns a copy of the record with the given ID
func (s *RecordStore) Get(id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return models.Record{}, false
	}
	return rec.Clone(), true
}

// Len returns the number of unique records
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Skipped returns how many fragments were discarded as unmergeable
func (s *RecordStore) Skipped() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.skipped
}

// Snapshot returns deep copies of all records in first-insertion order.
// The copy is taken under the read lock, so callers see one consistent state.
func (s *RecordStore) Snapshot() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Record, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id].Clone())
	}
	return out
}

// Restore replaces the store contents with the given records, keeping their order.
// Duplicate IDs in the input are merged the same way Merge would.
func (s *RecordStore) Restore(records []models.Record) {
	s.mu.Lock()
	s.records = make(map[string]*models.Record, len(records))
	s.order = make([]string, 0, len(records))
	s.skipped = 0
	s.mu.Unlock()

	for _, r := range records {
		frag := models.Fragment{
			ID:            r.ID,
			DisplayName:   r.DisplayName,
			ProfileURL:    r.ProfileURL,
			Rating:        r.Rating,
			ReviewCount:   r.ReviewCount,
			CategoryLabel: r.CategoryLabel,
		}
		if len(r.Partitions) == 0 {
			s.Merge(frag, "")
			continue
		}
		for _, tag := range r.Partitions {
			s.Merge(frag, tag)
		}
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// idFromLink derives a dedup key from a profile link: the last path segment
// made only of digits, otherwise the link without query and fragment.
func idFromLink(link string) string {
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}

	p := strings.TrimRight(u.Path, "/")
	for p != "" && p != "/" {
		seg := path.Base(p)
		if seg != "" && strings.IndexFunc(seg, func(r rune) bool { return !unicode.IsDigit(r) }) == -1 {
			return seg
		}
		p = path.Dir(p)
	}

	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}
