// Package server assembles the storefront HTTP surface: tenant-scoped
// storefront routes, the operator admin API, health and metrics.
package server
