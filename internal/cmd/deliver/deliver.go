package deliver

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "deliver",
		Short: "Manages partner study deliveries",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("welcome to curator deliver!")
			return nil
		},
	}
	cmd.AddCommand(newRunCommand())
	return cmd
}
