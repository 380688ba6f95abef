// Package hub is the websocket broker between varmesh clients.
//
// Each connection authenticates with an API key, then subscribes to
// services within its tenant. Reported variable changes are merged into
// the stored service file content, acknowledged to the sender, and
// fanned out to every other subscriber of the same service. A fresh
// subscription is answered with a full snapshot of the stored content.
package hub
