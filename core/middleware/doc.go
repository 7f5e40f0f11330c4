// Package middleware groups the HTTP middleware of the serve command.
//
//   - auth: API key validation.
//   - rayid: per-request id, echoed in X-Ray-ID and attached to logs.
package middleware
