// Package tlsroots manages TLS trust material.
//
// Pool builds an x509 root set from system certificates plus custom CA
// bundles; clients use it to verify wss endpoints signed by private CAs.
// Watcher hot-reloads a server certificate pair via fsnotify so
// certificate rotation does not require a restart.
package tlsroots
