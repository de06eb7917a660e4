package validate

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cohorttools/curator/internal/validate"
)

func NewCommand() *cobra.Command {
	var validationType string
	var studyDir string
	var genePanelDir string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validates a staged study before delivery",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()
			l := logger.Named("validate")

			var v validate.Validator
			switch validationType {
			case "cdm":
				v = validate.NewCDMValidator(studyDir, l)
			case "az":
				var opts []validate.AZOption
				if genePanelDir != "" {
					opts = append(opts, validate.WithGenePanelDir(genePanelDir))
				}
				v = validate.NewAZValidator(studyDir, l, opts...)
			default:
				return fmt.Errorf("unknown validation type: %q", validationType)
			}

			report, err := v.ValidateStudy()
			if err != nil {
				return err
			}

			l.Info("validation finished",
				zap.String("type", validationType),
				zap.String("study_dir", studyDir),
				zap.Int("errors", len(report.Errors)),
				zap.Int("warnings", len(report.Warnings)),
			)

			if len(report.Errors) > 0 {
				return fmt.Errorf("validation failed with %d errors", len(report.Errors))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&validationType, "type", "t", "", "Type of validation to run (cdm or az)")
	cmd.Flags().StringVarP(&studyDir, "study-dir", "s", "", "Path to study directory")
	cmd.Flags().StringVar(&genePanelDir, "gene-panel-dir", "", "Path to gene panels directory")
	cmd.MarkFlagRequired("type")
	cmd.MarkFlagRequired("study-dir")

	return cmd
}
