// Package metrics exports generation run results in the Prometheus text format,
// for collection by the node_exporter textfile collector.
package metrics

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

const namespace = "sitemap_gen"

// RunCollector holds the gauges describing the most recent run
type RunCollector struct {
	registry *prom.Registry

	files       *prom.GaugeVec
	entries     prom.Gauge
	stale       prom.Gauge
	duration    prom.Gauge
	success     prom.Gauge
	lastRun     prom.Gauge
	lastSuccess prom.Gauge
}

// NewRunCollector creates a collector on its own registry
func NewRunCollector() *RunCollector {
	c := &RunCollector{
		registry: prom.NewRegistry(),
		files: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: namespace, Name: "files",
			Help: "Sitemap documents written by the last run, excluding the index",
		}, []string{"kind"}),
		entries: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "entries",
			Help: "URL entries written by the last run",
		}),
		stale: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "stale_files",
			Help: "Files from earlier runs that the last run did not regenerate",
		}),
		duration: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "last_run_duration_seconds",
			Help: "Wall time of the last run",
		}),
		success: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "last_run_success",
			Help: "1 if the last run wrote the sitemap index, 0 otherwise",
		}),
		lastRun: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
		lastSuccess: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace, Name: "last_success_timestamp_seconds",
			Help: "Unix time the last successful run finished",
		}),
	}
	c.registry.MustRegister(c.files, c.entries, c.stale, c.duration, c.success, c.lastRun, c.lastSuccess)
	return c
}

// Observe records a finished run. lastSuccess is the finish time of the most
// recent successful run known to the caller, used when run itself failed.
func (c *RunCollector) Observe(run *models.RunRecord, lastSuccess *models.RunRecord) {
	var top, child int
	for _, f := range run.Files {
		if f.Child {
			child++
		} else {
			top++
		}
	}
	c.files.WithLabelValues("top").Set(float64(top))
	c.files.WithLabelValues("child").Set(float64(child))
	c.entries.Set(float64(run.TotalEntries()))
	c.stale.Set(float64(len(run.Stale)))
	c.duration.Set(run.FinishedAt.Sub(run.StartedAt).Seconds())
	c.lastRun.Set(float64(run.FinishedAt.Unix()))

	if run.Success {
		c.success.Set(1)
		c.lastSuccess.Set(float64(run.FinishedAt.Unix()))
		return
	}
	c.success.Set(0)
	if lastSuccess != nil {
		c.lastSuccess.Set(float64(lastSuccess.FinishedAt.Unix()))
	}
}

// Registry exposes the underlying registry
func (c *RunCollector) Registry() *prom.Registry { return c.registry }

// WriteTextfile atomically writes the gauges to path
func (c *RunCollector) WriteTextfile(path string) error {
	if err := prom.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("%w: write metrics textfile '%s': %w", utils.ErrFilesystem, path, err)
	}
	return nil
}
