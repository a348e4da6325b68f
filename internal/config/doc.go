// Package config defines the format-agnostic configuration model for the
// pass, along with the interfaces (Loader, GraphFormat) for reading
// configuration and graph documents from various sources.
//
// The `config.Model` is the single source of truth for the `pipeline` and
// `app` packages. Concrete implementations of the interfaces, such as for
// HCL and JSON, are provided in separate packages.
package config
