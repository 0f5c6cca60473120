// Package config provides configuration management for the oclsharp CLI.
//
// Precedence (highest to lowest): flags > environment variables >
// config file > defaults.
package config

// Config holds all CLI configuration options.
type Config struct {
	ConstraintFile string   `koanf:"constraints"`
	MetamodelFiles []string `koanf:"metamodels"`
	InstanceFiles  []string `koanf:"instances"`
	Workers        int      `koanf:"workers"`
	Verbose        bool     `koanf:"verbose"`
	OutputFormat   string   `koanf:"output"`
}

// Default configuration values.
const (
	DefaultConstraintFile = "constraints.ocl"
	DefaultWorkers        = 1
	DefaultOutput         = "auto"
)
