// Package config loads, defaults, and validates the service configuration.
//
// Configuration comes from a YAML file, with PARLEY_* environment variables
// taking precedence over file values. Loading applies defaults first, then
// env overrides, then validates the final result. There is no process-wide
// configuration singleton; the loaded Config value is passed explicitly into
// constructors.
package config
