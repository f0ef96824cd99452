// Package component defines the lifecycle contract shared by routekit's
// long-running parts. A Component can be started, stopped, and asked for its
// health; Describable components additionally self-report a one-line summary
// for startup display.
package component
