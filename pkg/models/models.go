package models

import "time"

// Fragment holds the raw fields extracted for one listing from one page,
// before it is merged into the record store.
type Fragment struct {
	ID            string   `json:"id"`
	DisplayName   string   `json:"name"`
	ProfileURL    string   `json:"url"`
	Rating        *float64 `json:"rating,omitempty"`
	ReviewCount   *int     `json:"reviews_count,omitempty"`
	CategoryLabel string   `json:"category_label,omitempty"`
}

// Record is a deduplicated listing keyed by ID
type Record struct {
	ID            string   `json:"id" bson:"_id"`
	DisplayName   string   `json:"name" bson:"name"`
	ProfileURL    string   `json:"url" bson:"url"`
	Rating        *float64 `json:"rating,omitempty" bson:"rating,omitempty"`
	ReviewCount   *int     `json:"reviews_count,omitempty" bson:"reviews_count,omitempty"`
	CategoryLabel string   `json:"category_label,omitempty" bson:"category_label,omitempty"`
	Partitions    []string `json:"partitions" bson:"partitions"`
}

// Clone returns a deep copy of the record
func (r Record) Clone() Record {
	out := r
	if r.Rating != nil {
		v := *r.Rating
		out.Rating = &v
	}
	if r.ReviewCount != nil {
		v := *r.ReviewCount
		out.ReviewCount = &v
	}
	out.Partitions = append([]string(nil), r.Partitions...)
	return out
}

// Partition is one crawlable category of the directory
type Partition struct {
	Path  string `json:"path" yaml:"path"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

// PartitionStats summarizes the outcome of crawling one partition
type PartitionStats struct {
	Partition   string `json:"partition"`
	Found       int    `json:"found"`
	New         int    `json:"new"`
	PagesTotal  int    `json:"pages_total"`
	PagesFailed int    `json:"pages_failed"`
	Failed      bool   `json:"failed,omitempty"`
}

// CrawlProgress is the resume cursor persisted with every checkpoint.
// PartitionIndex is the 0-based index of the last fully completed partition,
// or -1 when none has completed yet.
type CrawlProgress struct {
	PartitionIndex int              `json:"partition_index"`
	RecordCount    int              `json:"record_count"`
	Stats          []PartitionStats `json:"stats"`
}

// Checkpoint is a durable snapshot of the accumulated records and progress
type Checkpoint struct {
	Version   int           `json:"version"`
	RunID     string        `json:"run_id"`
	CreatedAt time.Time     `json:"created_at"`
	Checksum  string        `json:"checksum"`
	Records   []Record      `json:"records"`
	Progress  CrawlProgress `json:"progress"`
}

// Dataset is the final output of a crawl handed to the sinks
type Dataset struct {
	RunID       string           `json:"run_id"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
	Interrupted bool             `json:"interrupted,omitempty"`
	Records     []Record         `json:"records"`
	Stats       []PartitionStats `json:"stats"`
}
