// Package auth provides API key authentication for the shelfsight REST API.
//
// APIKeyMiddleware(mode, header, key) wraps an http.Handler and checks the
// named request header against the expected key. When mode != "apikey" or
// key == "", every request passes through (useful for local development with
// auth disabled). A missing or incorrect key gets a 401 JSON error.
package auth
