package schema

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "schema",
		Short: "Manages staging file schemas",
	}
	cmd.AddCommand(newGenerateCommand())
	return cmd
}
