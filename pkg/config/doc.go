// Package config loads and validates pixelgate configuration.
//
// Configuration is assembled from three layers, highest precedence first:
//
//  1. Environment variables (PIXELGATE_*)
//  2. A YAML configuration file
//  3. Built-in defaults
//
// The static configuration covers telemetry, lifecycle policy, resolver
// budgets, asset sources, persistence and the diagnostic server. The
// component dependency graph is described separately in a YAML manifest
// loaded with LoadManifest.
//
// Source definitions can be hot-reloaded: Watch observes the configuration
// file with fsnotify and swaps a validated snapshot atomically, so a
// malformed edit never replaces a good configuration.
package config
