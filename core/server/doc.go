// Package server holds the HTTP server configuration used by the serve
// command: listen port, API key and the inventory cache TTL.
package server
