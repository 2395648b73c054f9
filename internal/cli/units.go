package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/najoast/unitrt/config"
	"github.com/najoast/unitrt/core"
	"github.com/najoast/unitrt/logging"
)

// UnitInfo describes one configured unit.
type UnitInfo struct {
	ID          string               `json:"id"`
	Kind        string               `json:"kind"`
	Delivery    core.DeliveryPolicy  `json:"delivery"`
	Threading   core.ThreadingPolicy `json:"threading"`
	MessageType string               `json:"message_type"`
	Attributes  []string             `json:"attributes"`
}

// NewUnitsCommand creates the units command.
func NewUnitsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List configured units and their resolved policies",
		Long: `Build every configured unit, run its initialization and print how the
runtime would deliver to it. Nothing is started.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnits(rootOpts, cmd)
		},
	}
}

func runUnits(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, path, err := loadConfig(opts, config.NewLoader())
	if err != nil {
		return failLoad(formatter, err)
	}

	logger := logging.NewNopLogger()
	if opts.Verbose {
		var closer io.Closer
		logger, closer, err = newLogger(cfg, opts, formatter.ErrWriter)
		if err != nil {
			return formatter.Fail(ExitFailure, ErrCodeInvalid, "invalid log configuration", err)
		}
		defer closer.Close()
	}

	app, err := newApplication(logger, path)
	if err != nil {
		return formatter.Fail(ExitFailure, ErrCodeRuntime, "cannot register unit kinds", err)
	}
	if err := app.Configure(cfg); err != nil {
		return formatter.Fail(ExitFailure, ErrCodeInvalid, "cannot build units", err)
	}
	rt := app.Runtime()
	defer rt.Shutdown(context.Background())

	infos := make([]UnitInfo, 0, len(cfg.Units))
	for _, ref := range rt.Units() {
		policy := ref.Policy()
		attrs := make([]string, 0, len(ref.KnownAttributes()))
		for _, d := range ref.KnownAttributes() {
			attrs = append(attrs, d.Name)
		}
		infos = append(infos, UnitInfo{
			ID:          ref.ID(),
			Kind:        cfg.Units[ref.ID()].Kind,
			Delivery:    policy.Delivery,
			Threading:   policy.Threading,
			MessageType: ref.MessageType().String(),
			Attributes:  attrs,
		})
	}

	if formatter.JSON() {
		return formatter.Success(infos)
	}
	writeUnitTable(formatter.Writer, infos)
	return nil
}

// writeUnitTable prints infos as left-aligned columns separated by two spaces.
func writeUnitTable(w io.Writer, infos []UnitInfo) {
	rows := [][]string{{"ID", "KIND", "POLICY", "MESSAGE", "ATTRIBUTES"}}
	for _, info := range infos {
		policy := core.Policy{Delivery: info.Delivery, Threading: info.Threading}
		rows = append(rows, []string{
			info.ID,
			info.Kind,
			policy.String(),
			info.MessageType,
			strings.Join(info.Attributes, ","),
		})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	last := len(widths) - 1
	for _, row := range rows {
		var b strings.Builder
		for i, cell := range row {
			if i == last {
				b.WriteString(cell)
				break
			}
			fmt.Fprintf(&b, "%-*s", widths[i]+2, cell)
		}
		fmt.Fprintln(w, b.String())
	}
}
