// Package fabricmetrics exposes the coordinator's own counters —
// dispatches, commits, aborts, in-doubt transactions — in Prometheus
// text exposition format, the way the original database process
// exposed its query/insert counters.
package fabricmetrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Collector holds the fabric's running counters. All fields are
// updated with atomic ops so a Session can bump them without its own
// locking.
type Collector struct {
	dispatches   uint64
	dispatchErrs uint64
	commits      uint64
	aborts       uint64
	inDoubt      uint64
}

func (c *Collector) IncDispatch()     { atomic.AddUint64(&c.dispatches, 1) }
func (c *Collector) IncDispatchError() { atomic.AddUint64(&c.dispatchErrs, 1) }
func (c *Collector) IncCommit()       { atomic.AddUint64(&c.commits, 1) }
func (c *Collector) IncAbort()        { atomic.AddUint64(&c.aborts, 1) }
func (c *Collector) IncInDoubt()      { atomic.AddUint64(&c.inDoubt, 1) }

// Exporter renders a Collector's counters in Prometheus text format.
type Exporter struct {
	c         *Collector
	namespace string
}

// NewExporter builds an Exporter over c under the given metric
// namespace prefix (e.g. "remotex").
func NewExporter(c *Collector, namespace string) *Exporter {
	return &Exporter{c: c, namespace: namespace}
}

// WriteMetrics writes every counter to w, one HELP/TYPE/sample triple
// per metric (https://prometheus.io/docs/instrumenting/exposition_formats/).
func (e *Exporter) WriteMetrics(w io.Writer) error {
	if err := e.writeCounter(w, "dispatches_total", "Total number of statements dispatched to backend nodes", atomic.LoadUint64(&e.c.dispatches)); err != nil {
		return err
	}
	if err := e.writeCounter(w, "dispatch_errors_total", "Total number of dispatches that ended in a protocol or remote error", atomic.LoadUint64(&e.c.dispatchErrs)); err != nil {
		return err
	}
	if err := e.writeCounter(w, "commits_total", "Total number of transactions committed", atomic.LoadUint64(&e.c.commits)); err != nil {
		return err
	}
	if err := e.writeCounter(w, "aborts_total", "Total number of transactions aborted", atomic.LoadUint64(&e.c.aborts)); err != nil {
		return err
	}
	if err := e.writeCounter(w, "in_doubt_total", "Total number of transactions that ended PART_COMMITTED and were registered in-doubt", atomic.LoadUint64(&e.c.inDoubt)); err != nil {
		return err
	}
	return nil
}

func (e *Exporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := e.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
		metricName, help, metricName, metricName, value)
	return err
}
