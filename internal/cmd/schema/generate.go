package schema

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/xwb1989/sqlparser"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/cohorttools/curator/internal/config"
)

func newGenerateCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "generate",
		Short: "Generates a staging file schema from a database table",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewDevelopment()
			l := logger.Named("schema.generate")
			l.Info(
				"curator schema generate!",
				zap.String("db", viper.GetString("db")),
				zap.String("name", viper.GetString("name")),
			)

			switch viper.GetString("db") {
			case "postgres":
				stmt, err := sqlparser.Parse(viper.GetString("query"))
				if err != nil {
					return err
				}

				create, ok := stmt.(*sqlparser.DDL)
				if ok && create.TableSpec == nil {
					ok = false
				}
				if !ok {
					return fmt.Errorf("query is not a create table statement")
				}

				file := config.File{
					Name: viper.GetString("name"),
				}
				for _, col := range create.TableSpec.Columns {
					// Staging file columns are uppercase by convention.
					file.Fields = append(file.Fields, strings.ToUpper(col.Name.String()))
				}

				bs, err := yaml.Marshal(file)
				if err != nil {
					return err
				}

				fmt.Println(string(bs))
			default:
				return fmt.Errorf("unsupported db: %q", viper.GetString("db"))
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringP("db", "", "postgres", "The database the create table statement is from")
	cmd.PersistentFlags().StringP("query", "q", "", "The create table statement to derive the schema from")
	cmd.PersistentFlags().StringP("name", "n", "", "Name of the staging file")
	viper.BindPFlag("db", cmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("query", cmd.PersistentFlags().Lookup("query"))
	viper.BindPFlag("name", cmd.PersistentFlags().Lookup("name"))
	viper.AutomaticEnv()
	viper.SetEnvPrefix("CURATOR")
	return cmd
}
