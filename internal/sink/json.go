package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/law-makers/dircrawl/pkg/models"
)

// JSON writes the whole dataset as an indented records_<ts>.json
type JSON struct {
	dir string
}

// NewJSON creates a JSON sink writing into dir
func NewJSON(dir string) *JSON {
	return &JSON{dir: dir}
}

func (j *JSON) Name() string { return FormatJSON }

func (j *JSON) Write(_ context.Context, ds *models.Dataset) error {
	out := *ds
	if out.Records == nil {
		out.Records = []models.Record{}
	}
	if out.Stats == nil {
		out.Stats = []models.PartitionStats{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}
	return writeAtomic(stampedPath(j.dir, "records", "json", ds.FinishedAt), data)
}
