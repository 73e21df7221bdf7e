package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aalemi-dev/rwe/rwe"
	"github.com/aalemi-dev/rwe/tplengine"
)

func newExecCmd(c *cli) *cobra.Command {
	var (
		settingsFile string
		assignments  []string
	)

	cmd := &cobra.Command{
		Use:   "exec <module>",
		Short: "Execute one module",
		Example: `  rwe exec dummy --set dummysetting0=a --set dummysetting1=b
  rwe --dsn 'SQLite://localhost/app.db' exec dbdata --set tableName=users --set paging.limit=10
  rwe exec kernelinfo --settings kernelinfo.yaml -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := rwe.Settings{}
			if settingsFile != "" {
				var err error
				if settings, err = readSettingsFile(settingsFile); err != nil {
					return err
				}
				if settings == nil {
					settings = rwe.Settings{}
				}
			}
			if err := applyAssignments(settings, assignments); err != nil {
				return err
			}

			return withRuntime(cmd.Context(), c.cfg, c.out, func(ctx context.Context, rt *runtime) error {
				result, err := rt.Host.Run(ctx, args[0], settings)
				if err != nil {
					return err
				}
				return c.printResult(result, rt.Recorder)
			})
		},
	}

	cmd.Flags().StringVar(&settingsFile, "settings", "", "YAML file with the module settings")
	cmd.Flags().StringArrayVar(&assignments, "set", nil, "set a module setting, key=value (repeatable, dotted keys nest)")
	return cmd
}

// printResult writes a module result and the variables published so far.
func (c *cli) printResult(result any, rec *tplengine.Recorder) error {
	if c.format != tplengine.FormatTable {
		return tplengine.Encode(c.out, c.format, map[string]any{
			"result":    result,
			"variables": rec.Snapshot(),
		})
	}

	if _, err := fmt.Fprint(c.out, "Result: "); err != nil {
		return err
	}
	if err := tplengine.Encode(c.out, tplengine.FormatTable, result); err != nil {
		return err
	}
	return rec.Render(c.out, tplengine.FormatTable)
}
