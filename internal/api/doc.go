// Package api implements the HTTP REST API and WebSocket server for Spatial Core.
//
// This package provides:
//   - REST endpoints for entity registration, pose inspection, and catalog CRUD
//   - Live rule management (create/update/delete recompiles the engine pipeline)
//   - Rule event history queries backed by time-series storage
//   - WebSocket hub for real-time rule event and entity lifecycle broadcasts
//   - Middleware stack (request ID, logging, recovery, CORS)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server sits between operator tooling and the engine's registries.
// Catalog writes go through the catalog service to SQLite; rule writes also
// swap the compiled pipeline in the rule registry so changes take effect
// without a restart. Rule events reach WebSocket clients through the Hub,
// which the rule registry drives as one of its sinks.
//
// # Graceful Degradation
//
// The server operates without MQTT and without InfluxDB. Entity and catalog
// endpoints always work; the event history endpoint returns 503 when no
// time-series backend is configured.
package api
