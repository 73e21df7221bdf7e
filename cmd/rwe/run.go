package main

import (
	"context"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aalemi-dev/rwe/rwe"
	"github.com/aalemi-dev/rwe/tplengine"
)

// Plan is a list of module executions run in order on one host.
//
//	steps:
//	  - module: dbdata
//	    settings:
//	      tableName: users
//	      paging: {limit: 10}
//	  - module: kernelinfo
//	    settings: {fingerBanner: /tmp/banner, treeRegexps: {stable: 'stable: (\S+)'}}
type Plan struct {
	Steps []Step `yaml:"steps" validate:"required,min=1,dive"`
}

// Step is one module execution of a plan.
type Step struct {
	Module   string         `yaml:"module" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

func readPlan(path string) (Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Plan{}, fmt.Errorf("read plan: %w", err)
	}
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return Plan{}, fmt.Errorf("decode plan %s: %w", path, err)
	}
	if err := validator.New().Struct(plan); err != nil {
		return Plan{}, fmt.Errorf("invalid plan %s: %w", path, err)
	}
	return plan, nil
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Execute a plan of modules in order",
		Long: `run executes every step of a plan on the same host, so cached module
instances are reused and variables published by earlier steps stay visible.
A step that aborts stops the plan.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := readPlan(args[0])
			if err != nil {
				return err
			}

			return withRuntime(cmd.Context(), c.cfg, c.out, func(ctx context.Context, rt *runtime) error {
				var results []map[string]any
				for i, step := range plan.Steps {
					result, err := rt.Host.Run(ctx, step.Module, rwe.Settings(step.Settings))
					if err != nil {
						return err
					}

					if c.format == tplengine.FormatTable {
						if _, err := fmt.Fprintf(c.out, "== step %d: %s\n", i+1, step.Module); err != nil {
							return err
						}
						if err := c.printResult(result, rt.Recorder); err != nil {
							return err
						}
						continue
					}
					results = append(results, map[string]any{"module": step.Module, "result": result})
				}

				if c.format == tplengine.FormatTable {
					return nil
				}
				return tplengine.Encode(c.out, c.format, map[string]any{
					"steps":     results,
					"variables": rt.Recorder.Snapshot(),
				})
			})
		},
	}
}
