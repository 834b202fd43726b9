// Package config handles engine configuration loading from YAML files:
// listener settings, store backends, alert sinks, mail, and the timing
// contracts of the SLA monitoring engine.
package config
