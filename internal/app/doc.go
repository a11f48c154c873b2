// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle: load a
// scene, build graph instances, evaluate, apply tags and step frames. It is
// decoupled from any specific entrypoint like a CLI or server.
package app
