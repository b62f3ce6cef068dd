// Copyright (c) 2025 The fibtrie authors
// SPDX-License-Identifier: MIT

package fibtrie

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector exposes a table's use counters and structural statistics
// as Prometheus metrics. Register it with a prometheus.Registerer;
// collection is lock-free except for the route count.
type Collector struct {
	tb *Table

	lookups       *prometheus.Desc
	backtracks    *prometheus.Desc
	matchPassed   *prometheus.Desc
	matchMiss     *prometheus.Desc
	nullNodeHits  *prometheus.Desc
	resizeSkipped *prometheus.Desc

	routes   *prometheus.Desc
	prefixes *prometheus.Desc
	leaves   *prometheus.Desc
	tnodes   *prometheus.Desc
	nulls    *prometheus.Desc
	maxDepth *prometheus.Desc
	avgDepth *prometheus.Desc
}

// NewCollector returns a collector for tb. All metrics carry the
// routing table id as the "table" label.
func NewCollector(tb *Table) *Collector {
	labels := prometheus.Labels{"table": strconv.FormatUint(uint64(tb.ID), 10)}

	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("fibtrie_"+name, help, nil, labels)
	}

	return &Collector{
		tb: tb,

		lookups:       desc("lookups_total", "Lookups performed."),
		backtracks:    desc("backtracks_total", "Backtrack steps taken during lookups."),
		matchPassed:   desc("semantic_match_passed_total", "Leaf alias scans that produced a match."),
		matchMiss:     desc("semantic_match_miss_total", "Leaf alias scans that produced no match."),
		nullNodeHits:  desc("null_node_hits_total", "Empty child slots hit during lookups."),
		resizeSkipped: desc("resize_skipped_total", "Resize steps skipped at the allocation cap."),

		routes:   desc("routes", "Routes in the table."),
		prefixes: desc("prefixes", "Prefixes counted by the structure walk."),
		leaves:   desc("leaves", "Leaf nodes in the trie."),
		tnodes:   desc("tnodes", "Internal nodes in the trie."),
		nulls:    desc("null_pointers", "Empty child slots in the trie."),
		maxDepth: desc("max_depth", "Deepest leaf in the trie."),
		avgDepth: desc("avg_depth", "Mean leaf depth in the trie."),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	prometheus.DescribeByCollect(c, ch)
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	use := c.tb.UseStats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}
	counter(c.lookups, use.Gets)
	counter(c.backtracks, use.Backtracks)
	counter(c.matchPassed, use.SemanticMatchPassed)
	counter(c.matchMiss, use.SemanticMatchMiss)
	counter(c.nullNodeHits, use.NullNodeHits)
	counter(c.resizeSkipped, use.ResizeSkipped)

	st := c.tb.Stats()
	gauge := func(d *prometheus.Desc, v float64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, v)
	}
	gauge(c.routes, float64(c.tb.Len()))
	gauge(c.prefixes, float64(st.Prefixes))
	gauge(c.leaves, float64(st.Leaves))
	gauge(c.tnodes, float64(st.Tnodes))
	gauge(c.nulls, float64(st.NullPointers))
	gauge(c.maxDepth, float64(st.MaxDepth))
	gauge(c.avgDepth, st.AvgDepth())
}
