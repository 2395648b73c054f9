package config

import "github.com/najoast/unitrt/logging"

// Logging converts the log section into a logging.Config. Debug mode forces
// the debug level.
func (c *Config) Logging() (logging.Config, error) {
	level, err := logging.ParseLevel(string(c.Log.Level))
	if c.App.Debug {
		level = logging.LevelDebug
	}

	fields := make(map[string]any, len(c.Log.Fields)+1)
	for k, v := range c.Log.Fields {
		fields[k] = v
	}
	if c.App.Name != "" {
		fields["app"] = c.App.Name
	}

	return logging.Config{
		Level:  level,
		Format: c.Log.Format,
		Output: c.Log.Output,
		Fields: fields,
	}, err
}
