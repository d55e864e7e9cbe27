// Package api defines the wire types of the CricketFlow HTTP API.
//
// # API Overview
//
// CricketFlow answers cricket questions over HTTP:
//   - POST /ask answers one question and returns {answer, error}
//   - GET /ws/ask streams state transitions of an episode, then its result
//   - GET /, /health, /healthz, /ready and /version report service health
//
// # Authentication
//
// When API keys are configured, /ask and /ws/ask require the X-API-Key
// header (or a Bearer JWT when a JWT secret is set):
//
//	X-API-Key: your-api-key
//
// # Base URL
//
//	http://localhost:8080
//
// # Generating Documentation
//
//	swag init -g cmd/cricketflow/main.go -o api --parseDependency --parseInternal
package api
