package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"evai/internal/plan"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the response schema sent with plan requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := plan.SchemaJSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}
