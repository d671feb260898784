package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/anatolykoptev/go-openimage/internal/app"
)

func (c *cli) statusCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show available sources, filters and cache statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unknown format %q (want json or yaml)", format)
			}
			return c.withApp(func(a *app.App) error {
				st := a.Finder.Status(cmd.Context())
				var (
					data []byte
					err  error
				)
				if format == "yaml" {
					data, err = yaml.Marshal(st)
				} else {
					data, err = json.MarshalIndent(st, "", "  ")
					data = append(data, '\n')
				}
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	return cmd
}
