package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Logger struct {
	Level string `yaml:"level"`
}

type Global struct {
	Logger Logger `yaml:"logger"`
}

type Source struct {
	Type             string `yaml:"type"`
	ConnectionString string `yaml:"connection_string"`

	// relational sources
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
	Query  string `yaml:"query"`

	// mongodb sources
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type Transform struct {
	Type string `yaml:"type"` // filter | rename | select | redact

	Field string `yaml:"field"`
	Op    string `yaml:"op"`
	Value string `yaml:"value"`

	Mapping map[string]string `yaml:"mapping"`

	Fields      []string `yaml:"fields"`
	Replacement string   `yaml:"replacement"`
}

type Override struct {
	Field    string `yaml:"field"`
	Sentinel string `yaml:"sentinel"`
}

type File struct {
	Name      string     `yaml:"name"`
	Fields    []string   `yaml:"fields"`
	IDField   string     `yaml:"id_field"`
	Overrides []Override `yaml:"overrides"`
}

type Local struct {
	Path string `yaml:"path"`
}

type S3 struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	Prefix         string `yaml:"prefix"`
	Endpoint       string `yaml:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style"`
}

type Repository struct {
	Type        string `yaml:"type"` // local | s3
	LocalConfig Local  `yaml:"local"`
	S3Config    S3     `yaml:"s3"`
}

type Registry struct {
	Path string `yaml:"path"`
}

type Delivery struct {
	Name       string      `yaml:"name"`
	Source     Source      `yaml:"source"`
	Transforms []Transform `yaml:"transforms"`
	Files      []File      `yaml:"files"`
	Repository Repository  `yaml:"repository"`
	Registry   Registry    `yaml:"registry"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Curator struct {
	Global   Global   `yaml:"global"`
	Delivery Delivery `yaml:"delivery"`
	Server   Server   `yaml:"server"`
}

func NewCuratorFromFile(fpath string) (*Curator, error) {
	bs, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}

	var curator Curator
	if err := yaml.Unmarshal(bs, &curator); err != nil {
		return nil, err
	}

	return &curator, nil
}
