package metrics

import "github.com/kilianp07/psst/core/factory"

// Config defines settings for metrics sinks.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
	// Textfile is a shortcut for a prometheus sink writing to this path.
	Textfile string `json:"textfile"`
}

// SinkConfigs returns the configured sinks, including the textfile shortcut.
func (c Config) SinkConfigs() []factory.ModuleConfig {
	cfgs := append([]factory.ModuleConfig(nil), c.Sinks...)
	if c.Textfile != "" {
		cfgs = append(cfgs, factory.ModuleConfig{Type: "prometheus", Conf: map[string]any{"textfile": c.Textfile}})
	}
	return cfgs
}
