package cmd

import (
	"github.com/spf13/cobra"

	"github.com/soapbox/simon/internal/simon"
)

func init() {
	for _, op := range simon.Operations {
		c := operationCmd(op)
		if op.Name == "help" {
			rootCmd.SetHelpCommand(c)
			continue
		}
		rootCmd.AddCommand(c)
	}
}

// operationCmd creates the command that runs op with every following
// argument passed through.
func operationCmd(op simon.Operation) *cobra.Command {
	name := op.Name
	return &cobra.Command{
		Use:   name + " [args...]",
		Short: op.Summary,
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOperation(cmd, name, args)
		},
	}
}
