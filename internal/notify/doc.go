// Package notify provides editor-update sinks for flush.Callbacks: a logging
// sink and a socket.io sink that streams updates to an external tool.
package notify
