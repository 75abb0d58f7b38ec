// Package metrics records operational metrics for ingestion runs behind a
// narrow Backend interface (counters and timings), so the core packages never
// import Prometheus or Datadog directly.
//
// A Recorder is created once per run and injected into the components that
// report. A nil *Recorder is valid and records nothing.
package metrics

import "time"

// Metric names emitted by Recorder.
const (
	StepTotal           = "datalake_step_total"
	StepDurationSeconds = "datalake_step_duration_seconds"
	RowsTotal           = "datalake_rows_total"
	ObjectsTotal        = "datalake_objects_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) IncCounter(string, float64, Labels)       {}
func (Nop) ObserveHistogram(string, float64, Labels) {}
func (Nop) Flush() error                             { return nil }

// Recorder tags every metric with the job name.
type Recorder struct {
	backend Backend
	job     string
}

// New returns a Recorder for job. A nil backend records nothing.
func New(b Backend, job string) *Recorder {
	if b == nil {
		b = Nop{}
	}
	return &Recorder{backend: b, job: job}
}

// Step records one execution of a pipeline step (read, check, transform, plan, write)
// with its outcome and duration.
func (r *Recorder) Step(step string, err error, d time.Duration) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	lbls := Labels{"job": r.job, "step": step, "status": status}
	r.backend.IncCounter(StepTotal, 1, lbls)
	r.backend.ObserveHistogram(StepDurationSeconds, d.Seconds(), lbls)
}

// Rows adds delta rows of the given kind (read, written, loaded).
func (r *Recorder) Rows(kind string, delta int64) {
	if r == nil || delta <= 0 {
		return
	}
	r.backend.IncCounter(RowsTotal, float64(delta), Labels{"job": r.job, "kind": kind})
}

// Objects counts objects written to the lake.
func (r *Recorder) Objects(delta int64) {
	if r == nil || delta <= 0 {
		return
	}
	r.backend.IncCounter(ObjectsTotal, float64(delta), Labels{"job": r.job})
}

// Flush delegates to the backend.
func (r *Recorder) Flush() error {
	if r == nil {
		return nil
	}
	return r.backend.Flush()
}
