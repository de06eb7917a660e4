package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cohorttools/curator/internal/cmd/deliver"
	"github.com/cohorttools/curator/internal/cmd/fixtures"
	"github.com/cohorttools/curator/internal/cmd/schema"
	"github.com/cohorttools/curator/internal/cmd/validate"
)

func NewRootCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "curator",
		Short: "Extracts, anonymizes and delivers consented study subsets",
		Long:  ``,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Welcome to curator!")
		},
	}

	cmd.AddCommand(deliver.NewCommand())
	cmd.AddCommand(schema.NewCommand())
	cmd.AddCommand(validate.NewCommand())
	cmd.AddCommand(fixtures.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cmd := NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
