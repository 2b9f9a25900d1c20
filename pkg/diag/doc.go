// Package diag exposes operational state over HTTP: component health,
// lifecycle statistics, persisted history and Prometheus metrics.
//
// The server is a lifecycle component. It binds its listener during
// initialization so a port collision fails the component rather than
// surfacing later, and drains connections during shutdown.
package diag
