package sink

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"

	"github.com/law-makers/dircrawl/pkg/models"
)

// Markdown writes a human-readable crawl report
type Markdown struct {
	dir string
	top int
}

// NewMarkdown creates a report sink. top limits the rated-records table.
func NewMarkdown(dir string, top int) *Markdown {
	if top <= 0 {
		top = 20
	}
	return &Markdown{dir: dir, top: top}
}

func (m *Markdown) Name() string { return FormatMarkdown }

func (m *Markdown) Write(_ context.Context, ds *models.Dataset) error {
	var buf bytes.Buffer
	if err := m.render(&buf, ds); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return writeAtomic(stampedPath(m.dir, "report", "md", ds.FinishedAt), buf.Bytes())
}

func (m *Markdown) render(buf *bytes.Buffer, ds *models.Dataset) error {
	md := markdown.NewMarkdown(buf)

	md.H1("Crawl Report")
	md.PlainText("")

	status := "complete"
	if ds.Interrupted {
		status = "interrupted"
	}
	failed := 0
	for _, s := range ds.Stats {
		if s.Failed {
			failed++
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run", "`" + ds.RunID + "`"},
			{"Started", ds.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Finished", ds.FinishedAt.Format("2006-01-02 15:04:05 MST")},
			{"Status", status},
			{"Partitions", strconv.Itoa(len(ds.Stats))},
			{"Failed partitions", strconv.Itoa(failed)},
			{"Unique records", strconv.Itoa(len(ds.Records))},
		},
	})
	md.PlainText("")

	md.H2("Partitions")
	rows := make([][]string, 0, len(ds.Stats))
	for _, s := range ds.Stats {
		rows = append(rows, []string{
			s.Partition,
			strconv.Itoa(s.Found),
			strconv.Itoa(s.New),
			fmt.Sprintf("%d/%d", s.PagesTotal-s.PagesFailed, s.PagesTotal),
			failMark(s.Failed),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Partition", "Found", "New", "Pages OK", "Failed"},
		Rows:   rows,
	})
	md.PlainText("")

	if top := topRated(ds.Records, m.top); len(top) > 0 {
		md.H2("Top Rated")
		trows := make([][]string, 0, len(top))
		for _, r := range top {
			trows = append(trows, []string{r.DisplayName, formatRating(r.Rating), formatCount(r.ReviewCount), r.CategoryLabel})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Name", "Rating", "Reviews", "Category"},
			Rows:   trows,
		})
		md.PlainText("")
	}

	if multi := multiPartition(ds.Records); multi > 0 {
		md.PlainTextf("%d records were listed under more than one partition.", multi)
	}

	return md.Build()
}

func failMark(failed bool) string {
	if failed {
		return "yes"
	}
	return ""
}

// topRated orders rated records by rating, then review count, then ID
func topRated(records []models.Record, n int) []models.Record {
	var rated []models.Record
	for _, r := range records {
		if r.Rating != nil {
			rated = append(rated, r)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool {
		a, b := rated[i], rated[j]
		if *a.Rating != *b.Rating {
			return *a.Rating > *b.Rating
		}
		ra, rb := 0, 0
		if a.ReviewCount != nil {
			ra = *a.ReviewCount
		}
		if b.ReviewCount != nil {
			rb = *b.ReviewCount
		}
		if ra != rb {
			return ra > rb
		}
		return a.ID < b.ID
	})
	if len(rated) > n {
		rated = rated[:n]
	}
	return rated
}

func multiPartition(records []models.Record) int {
	n := 0
	for _, r := range records {
		if len(r.Partitions) > 1 {
			n++
		}
	}
	return n
}
