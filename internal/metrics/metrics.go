// Package metrics exposes Prometheus collectors for the crawl.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesTotal       *prometheus.CounterVec
	partitionsTotal  *prometheus.CounterVec
	recordsTotal     *prometheus.CounterVec
	checkpointsTotal *prometheus.CounterVec
	recordsInStore   prometheus.Gauge
	fetchesInFlight  prometheus.Gauge

	once sync.Once
)

// Init registers the collectors. It is safe to call multiple times.
func Init() {
	once.Do(func() {
		pagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawl_pages_total",
				Help: "Total number of page fetches, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		partitionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawl_partitions_total",
				Help: "Total number of crawled partitions, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawl_records_merged_total",
				Help: "Total number of fragments merged into the store, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		checkpointsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dircrawl_checkpoints_total",
				Help: "Total number of checkpoint writes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		recordsInStore = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dircrawl_records",
				Help: "Number of unique records currently in the store.",
			},
		)

		fetchesInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dircrawl_fetches_in_flight",
				Help: "Number of page fetches currently in flight.",
			},
		)
	})
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// Recorder feeds crawl events into the collectors
type Recorder struct {
	records func() int
}

// NewRecorder initializes the collectors. records, if set, is polled for the store size.
func NewRecorder(records func() int) *Recorder {
	Init()
	return &Recorder{records: records}
}

func (r *Recorder) PageFetched(ok bool) {
	pagesTotal.WithLabelValues(outcome(ok)).Inc()
}

func (r *Recorder) PartitionDone(failed bool) {
	partitionsTotal.WithLabelValues(outcome(!failed)).Inc()
	if r.records != nil {
		recordsInStore.Set(float64(r.records()))
	}
}

func (r *Recorder) RecordMerged(result string) {
	recordsTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) InFlight(delta int) {
	fetchesInFlight.Add(float64(delta))
}

// CheckpointWritten counts a checkpoint write attempt
func (r *Recorder) CheckpointWritten(ok bool) {
	checkpointsTotal.WithLabelValues(outcome(ok)).Inc()
}
