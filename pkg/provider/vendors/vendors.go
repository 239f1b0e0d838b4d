// Package vendors maps vendor identifiers to adapter constructors. It is
// the single place that knows about every concrete adapter, so callers can
// construct backends from configuration without importing each adapter
// package.
package vendors

import (
	"fmt"
	"sort"

	"github.com/rhuss/vermittler/pkg/provider"
	"github.com/rhuss/vermittler/pkg/provider/anthropic"
	"github.com/rhuss/vermittler/pkg/provider/gemini"
	"github.com/rhuss/vermittler/pkg/provider/openaicompat"
)

// Factory constructs an adapter for one vendor from its configuration.
type Factory func(cfg provider.Config) provider.Adapter

var factories = map[string]Factory{
	"anthropic": func(cfg provider.Config) provider.Adapter { return anthropic.New(cfg) },
	"gemini":    func(cfg provider.Config) provider.Adapter { return gemini.New(cfg) },
}

func init() {
	// Every Chat Completions vendor shares the openaicompat adapter with
	// a vendor-specific preset.
	for _, vendor := range []string{"openai", "xai", "azure", "ollama", "google-openai"} {
		preset, ok := openaicompat.PresetFor(vendor)
		if !ok {
			panic(fmt.Sprintf("vendors: no preset for %q", vendor))
		}
		p := preset
		factories[vendor] = func(cfg provider.Config) provider.Adapter {
			return openaicompat.New(p, cfg)
		}
	}
}

// New constructs the adapter for the named vendor. Unknown vendors return
// an error listing what is supported.
func New(vendor string, cfg provider.Config) (provider.Adapter, error) {
	factory, ok := factories[vendor]
	if !ok {
		return nil, fmt.Errorf("unknown vendor %q (supported: %v)", vendor, Names())
	}
	return factory(cfg), nil
}

// Names returns all supported vendor identifiers in sorted order.
func Names() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
