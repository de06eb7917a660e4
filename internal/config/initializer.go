package config

import (
	"fmt"

	"github.com/cohorttools/curator/internal/delivery"
	"github.com/cohorttools/curator/internal/flatten"
	"github.com/cohorttools/curator/internal/transform"
)

// Transforms builds the record transform chain declared in config.
func Transforms(specs []Transform) (transform.Chain, error) {
	var chain transform.Chain
	for _, spec := range specs {
		switch spec.Type {
		case "filter":
			chain = append(chain, &transform.Filter{
				Field: spec.Field,
				Op:    spec.Op,
				Value: spec.Value,
			})
		case "rename":
			chain = append(chain, &transform.Rename{Mapping: spec.Mapping})
		case "select":
			chain = append(chain, &transform.Select{Fields: spec.Fields})
		case "redact":
			chain = append(chain, &transform.Redact{
				Fields:      spec.Fields,
				Replacement: spec.Replacement,
			})
		default:
			return nil, fmt.Errorf("unknown transform type: %q", spec.Type)
		}
	}
	return chain, nil
}

// FileSpecs builds the staging file specs declared in config.
func FileSpecs(files []File) ([]delivery.FileSpec, error) {
	specs := make([]delivery.FileSpec, 0, len(files))
	for _, file := range files {
		schema, err := flatten.NewSchema(file.Fields...)
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", file.Name, err)
		}

		opts := make([]flatten.Option, 0, len(file.Overrides))
		for _, override := range file.Overrides {
			opts = append(opts, flatten.WithOverride(
				override.Field,
				flatten.SentinelToEmpty(override.Sentinel),
			))
		}

		specs = append(specs, delivery.FileSpec{
			Name:      file.Name,
			Flattener: flatten.New(schema, opts...),
			IDField:   file.IDField,
		})
	}
	return specs, nil
}
