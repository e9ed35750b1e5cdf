// Package config provides configuration structures and utilities for
// funneltrace. It defines the tracking, sink, collector, and CRM
// options, their defaults, and the optional YAML configuration file.
package config
