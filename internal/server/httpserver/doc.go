// Package httpserver provides the HTTP/HTTPS server for varmesh.
//
// It carries the websocket endpoint plus health and metrics routes on
// one listener, using the Go standard library net/http.
package httpserver
