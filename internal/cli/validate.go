package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/units"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool     `json:"valid"`
	File  string   `json:"file,omitempty"`
	Units []string `json:"units"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate a configuration without starting it",
		Long: `Load the configuration, apply environment overrides and check it.

Every declared unit must name a known kind.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, path, err := loadConfig(opts, config.NewLoader())
	if err != nil {
		return failLoad(formatter, err)
	}
	if path == "" {
		formatter.VerboseLog("no configuration file found, using defaults")
	} else {
		formatter.VerboseLog("loaded %s", path)
	}

	known := units.Factories()
	ids := make([]string, 0, len(cfg.Units))
	for id, decl := range cfg.Units {
		if _, ok := known[decl.Kind]; !ok {
			return formatter.Fail(ExitFailure, ErrCodeInvalid,
				fmt.Sprintf("unit %s has unknown kind %q", id, decl.Kind), nil)
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if formatter.JSON() {
		return formatter.Success(ValidationResult{Valid: true, File: path, Units: ids})
	}
	source := path
	if source == "" {
		source = "defaults"
	}
	fmt.Fprintf(formatter.Writer, "✓ Configuration valid (%s, %d units)\n", source, len(ids))
	return nil
}

// failLoad reports a configuration loading error.
func failLoad(formatter *OutputFormatter, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, "configuration file not found", err)
	}
	return formatter.Fail(ExitFailure, ErrCodeInvalid, "invalid configuration", err)
}
