// Package server exposes routekit's admin and observability HTTP surface.
//
// It hosts instance registration and deregistration, per-service health
// summaries, the registry-wide system verdict, best-instance lookup for
// diagnostics, and the manual probe-cycle trigger. The server is backed by
// Gin and implements the component lifecycle contract.
package server
