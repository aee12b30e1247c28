// Package config loads meetslots settings from MEETSLOTS_* environment
// variables. Command-line flags override individual fields after Load.
package config
