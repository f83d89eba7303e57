// Package config defines the settings shared by the controller and the command-line client
// and provides helpers to load, validate and save them in YAML format.
package config
