// Package metrics exposes Prometheus collectors for the HTTP surface and the
// transfer lifecycle: issued transfers, verification outcomes, served bytes,
// notification delivery and sweeper removals.
package metrics
