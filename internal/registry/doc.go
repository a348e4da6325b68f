// Package registry holds the process-wide state shared by pipeline runs.
//
// Backends maps backend names to the capability tables the marker consults.
// It is populated once at startup, from Go modules and from configuration,
// and validated before the first run.
//
// Clusters is the registration table for encapsulated artifacts. Every
// completed run registers its artifacts here; a run that takes the early
// exit path clears it. Both may happen concurrently from different runs,
// so all access goes through the table's own lock. When a backing
// artifactstore.Store is configured, the table writes through to it.
package registry
