// Package api exposes speaker identity operations over HTTP under /api/v1.
//
// Handlers decode requests, delegate to speaker.Service, speaker.Resolver
// and speaker.Suggester, and answer with the server package envelopes:
// {"data": ...} on success and {"error": {...}} on failure, with the status
// taken from the AppError.
package api
