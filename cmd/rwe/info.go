package main

import (
	"github.com/spf13/cobra"

	"github.com/aalemi-dev/rwe/database"
	"github.com/aalemi-dev/rwe/dsn"
	"github.com/aalemi-dev/rwe/rwe"
	"github.com/aalemi-dev/rwe/tplengine"
)

func newDSNCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dsn <dsn>",
		Short: "Print the parsed form of a connection string",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			d := dsn.Parse(args[0])
			fields := map[string]any{
				"engine":   d.Engine,
				"dialect":  d.Dialect,
				"protocol": d.Protocol,
				"host":     d.Host,
				"port":     d.Port,
				"socket":   d.Socket,
				"database": d.Database,
				"username": d.Username,
				"password": maskPassword(d.Password),
				"options":  d.Options,
				"dsn":      d.String(),
			}
			return tplengine.Encode(c.out, c.format, fields)
		},
	}
}

func maskPassword(p string) string {
	if p == "" {
		return ""
	}
	return "xxxxx"
}

func newEnginesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "List the registered database engines",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return printList(c, "engines", database.Engines())
		},
	}
}

func newModulesCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "modules",
		Short: "List the modules linked into this binary",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			return printList(c, "modules", rwe.Modules())
		},
	}
}

func printList(c *cli, name string, items []string) error {
	if c.format != tplengine.FormatTable {
		return tplengine.Encode(c.out, c.format, map[string]any{name: items})
	}
	for _, item := range items {
		if err := tplengine.Encode(c.out, tplengine.FormatTable, item); err != nil {
			return err
		}
	}
	return nil
}
