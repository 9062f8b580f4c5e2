// Package server runs the speakerid HTTP surface on Gin, wrapped in h2c so
// one port serves HTTP/1.1 and cleartext HTTP/2.
//
// The server is a component.Component: the registry starts it after the
// database and cache, and stops it first.
//
// # Middleware
//
// Applied by ApplyMiddleware, outermost first (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation into the logger context
//   - CORS: cross-origin headers and preflight
//   - BodySizeLimit: request body cap
//   - RequestLogger: one log line and one metric sample per request
//
// # Endpoints
//
// Registered by RegisterDefaultEndpoints (server/endpoint):
//
//   - /health: component health aggregation
//   - /ready: readiness probe
//   - /info: build information
package server
