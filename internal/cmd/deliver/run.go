package deliver

import (
	"database/sql"
	"fmt"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cohorttools/curator/internal"
	"github.com/cohorttools/curator/internal/config"
	"github.com/cohorttools/curator/internal/delivery"
	"github.com/cohorttools/curator/internal/local"
	"github.com/cohorttools/curator/internal/mongo"
	"github.com/cohorttools/curator/internal/registry"
	"github.com/cohorttools/curator/internal/s3"
	lsql "github.com/cohorttools/curator/internal/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"go.uber.org/zap"
)

func newRunCommand() *cobra.Command {
	var configPath string
	var serveAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Invokes a delivery. Records are extracted from the source, staged and shipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()
			l := logger.Named("deliver.run")
			l.Info("starting delivery!")

			rid := uuid.Must(uuid.NewUUID())

			c, err := config.NewCuratorFromFile(configPath)
			if err != nil {
				return err
			}

			var source delivery.Source
			switch c.Delivery.Source.Type {
			case "postgres":
				db, err := sql.Open("pgx", c.Delivery.Source.ConnectionString)
				if err != nil {
					return err
				}

				if err := db.PingContext(ctx); err != nil {
					return err
				}

				source = delivery.NewSQLSource(lsql.NewSource(
					db,
					lsql.WithSchema(c.Delivery.Source.Schema),
					lsql.WithTable(c.Delivery.Source.Table),
					lsql.WithQuery(c.Delivery.Source.Query),
				))
			case "mongodb":
				ms := mongo.NewSource(
					c.Delivery.Source.ConnectionString,
					mongo.WithDatabase(c.Delivery.Source.Database),
					mongo.WithCollection(c.Delivery.Source.Collection),
					mongo.WithLogger(l),
				)
				if err := ms.Connect(ctx); err != nil {
					return err
				}
				source = delivery.NewMongoSource(ms)
			default:
				return fmt.Errorf("unknown source type: %s", c.Delivery.Source.Type)
			}

			var repository internal.Repository
			switch c.Delivery.Repository.Type {
			case "local":
				repository = local.New(
					c.Delivery.Repository.LocalConfig.Path,
					local.WithPrefix(rid.String()),
					local.WithLogger(l),
				)
			case "s3":
				repository = s3.New(
					s3.WithLogger(l),
					s3.WithRegion(c.Delivery.Repository.S3Config.Region),
					s3.WithBucket(c.Delivery.Repository.S3Config.Bucket),
					s3.WithEndpoint(c.Delivery.Repository.S3Config.Endpoint),
					s3.WithPrefix(
						path.Join(
							c.Delivery.Repository.S3Config.Prefix,
							rid.String(),
						),
					),
					s3.WithForcePathStyle(c.Delivery.Repository.S3Config.ForcePathStyle),
				)
			default:
				return fmt.Errorf("unknown repository type: %s", c.Delivery.Repository.Type)
			}

			transforms, err := config.Transforms(c.Delivery.Transforms)
			if err != nil {
				return err
			}

			specs, err := config.FileSpecs(c.Delivery.Files)
			if err != nil {
				return err
			}

			opts := []delivery.Option{
				delivery.WithLogger(l),
				delivery.WithName(c.Delivery.Name),
				delivery.WithSource(source),
				delivery.WithRepository(repository),
				delivery.WithTransforms(transforms),
			}
			if c.Delivery.Registry.Path != "" {
				opts = append(opts, delivery.WithRegistry(
					registry.New(c.Delivery.Registry.Path, l.Named("registry")),
				))
			}
			for _, spec := range specs {
				opts = append(opts, delivery.WithFile(spec))
			}

			d, err := delivery.New(opts...)
			if err != nil {
				return err
			}

			defer d.Close(ctx)

			if serveAddr != "" {
				s := delivery.NewServer(l.Named("server"))
				s.RegisterDelivery(d)
				go func() {
					if err := s.Start(ctx, serveAddr); err != nil {
						l.Error("delivery server error", zap.Error(err))
					}
				}()
			}

			if _, err := d.Run(ctx, rid); err != nil {
				return err
			}

			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.Flags().StringVar(&serveAddr, "serve-addr", "", "Address for the optional status server")
	cmd.MarkFlagRequired("config")

	return cmd
}
