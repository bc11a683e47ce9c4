// Package server exposes the transcription pipeline over HTTP.
//
// The server runs Gin behind an h2c handler so HTTP/2 clients can stream
// large uploads without TLS. Routes:
//
//   - POST /v1/transcriptions: multipart upload, runs the pipeline
//   - GET /v1/backends: backend descriptors and whether each is configured
//   - GET /v1/calls: recent external API calls from the call log
//   - GET /health: dependency checks
//
// Net/http middleware in server/middleware wraps the whole handler.
package server
