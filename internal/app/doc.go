// Package app contains the core application logic. It wires configuration,
// backends, artifact storage and diagnostic sinks into a pipeline
// orchestrator and runs it over a batch of graph files, decoupled from any
// specific entrypoint like a CLI or server.
package app
