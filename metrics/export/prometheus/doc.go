// Package prometheus exposes engine counters through
// github.com/prometheus/client_golang as a prometheus.Collector.
//
// The collector reads a snapshot on every scrape; nothing is copied in the
// background.
package prometheus
