package cli

import (
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/najoast/unitrt/bootstrap"
	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
	"github.com/najoast/unitrt/logging"
	"github.com/najoast/unitrt/units"
)

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// loadConfig loads --config, or the first file found in the search paths, or
// the defaults. The returned path is empty for defaults.
func loadConfig(opts *RootOptions, loader *config.Loader) (*config.Config, string, error) {
	path := opts.ConfigFile
	if path == "" {
		found, err := loader.FindConfigFile()
		if err != nil && !errors.Is(err, config.ErrConfigFileNotFound) {
			return nil, "", err
		}
		path = found
	}

	cfg, err := loader.Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

// newApplication creates an application knowing the built-in unit kinds.
func newApplication(logger logging.Logger, configFile string) (*bootstrap.DefaultApplication, error) {
	app := bootstrap.NewApplication(
		bootstrap.WithLogger(logger),
		bootstrap.WithConfigFile(configFile),
	)
	for kind, factory := range units.Factories() {
		f := factory
		err := app.RegisterKind(kind, func(id string, rt *core.Context) (*core.Unit, error) {
			return f(id, rt)
		})
		if err != nil {
			return nil, err
		}
	}
	return app, nil
}

// newLogger builds the logger described by cfg. Verbose forces debug level and
// diagnostics go to stderr when the configured output is stdout, keeping
// command output clean.
func newLogger(cfg *config.Config, opts *RootOptions, stderr io.Writer) (logging.Logger, io.Closer, error) {
	logCfg, err := cfg.Logging()
	if err != nil {
		return nil, nil, err
	}
	if opts.Verbose {
		logCfg.Level = logging.LevelDebug
	}

	switch logCfg.Output {
	case "", "stderr", "stdout":
		return logging.NewWriterLogger(stderr, logCfg), nopCloser{}, nil
	default:
		return logging.NewLogger(logCfg)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
