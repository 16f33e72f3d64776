package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/law-makers/dircrawl/pkg/models"
)

// CSV writes records_<ts>.csv and stats_<ts>.csv into a directory
type CSV struct {
	dir string
}

// NewCSV creates a CSV sink writing into dir
func NewCSV(dir string) *CSV {
	return &CSV{dir: dir}
}

func (c *CSV) Name() string { return FormatCSV }

func (c *CSV) Write(_ context.Context, ds *models.Dataset) error {
	records, err := encodeRecordsCSV(ds.Records)
	if err != nil {
		return err
	}
	if err := writeAtomic(stampedPath(c.dir, "records", "csv", ds.FinishedAt), records); err != nil {
		return err
	}

	stats, err := encodeStatsCSV(ds.Stats)
	if err != nil {
		return err
	}
	return writeAtomic(stampedPath(c.dir, "stats", "csv", ds.FinishedAt), stats)
}

func encodeRecordsCSV(records []models.Record) ([]byte, error) {
	var buf bytes.Buffer
	// BOM so spreadsheet tools pick UTF-8 for Cyrillic names
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"id", "name", "url", "rating", "reviews_count", "category_label", "partitions"}); err != nil {
		return nil, err
	}
	for _, r := range records {
		row := []string{
			r.ID,
			r.DisplayName,
			r.ProfileURL,
			formatRating(r.Rating),
			formatCount(r.ReviewCount),
			r.CategoryLabel,
			strings.Join(r.Partitions, "; "),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func encodeStatsCSV(stats []models.PartitionStats) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"partition", "found", "new", "pages_total", "pages_failed", "failed"}); err != nil {
		return nil, err
	}
	for _, s := range stats {
		row := []string{
			s.Partition,
			strconv.Itoa(s.Found),
			strconv.Itoa(s.New),
			strconv.Itoa(s.PagesTotal),
			strconv.Itoa(s.PagesFailed),
			strconv.FormatBool(s.Failed),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

func formatRating(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
