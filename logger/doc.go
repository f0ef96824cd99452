// Package logger provides structured logging for routekit built on zerolog.
//
// Loggers are created from a Config and tagged per component:
//
//	log := logger.New(&logger.Config{Level: "info", Format: "json"}, "gateway")
//	log.WithComponent("discovery").Info("started")
//
// Fields are passed as optional maps; the Fields helper builds one from
// alternating key-value pairs.
package logger
