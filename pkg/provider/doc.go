// Package provider defines the adapter contract between the unified
// conversation protocol and vendor LLM backends, and the registry through
// which adapters are constructed by vendor name.
package provider
