package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gaborage/routekit/app"
	"github.com/gaborage/routekit/config"
)

// AppFactory creates the application whose routes are documented. The
// returned app must not be mounted yet.
type AppFactory func(cfg *config.Config) (*app.App, error)

// GenerateOptions holds options for the generate command
type GenerateOptions struct {
	ConfigFile string
	OutputFile string
	Format     string
}

// NewGenerateCommand creates the generate command
func NewGenerateCommand(factory AppFactory) *cobra.Command {
	opts := &GenerateOptions{}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate the OpenAPI document of the service",
		Long: `Builds the route registry of the service and writes the OpenAPI 3.1
document it would serve. No server is started.`,
		Example: `  # Print the JSON document
  routekit-openapi generate

  # Write YAML using a specific configuration
  routekit-openapi generate --config config.production.yaml --format yaml --output docs/openapi.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd.OutOrStdout(), opts, factory)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML configuration file (default: config.yaml and environment)")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "json", "Output format (json|yaml)")

	return cmd
}

func runGenerate(out io.Writer, opts *GenerateOptions, factory AppFactory) error {
	if err := validateGenerateOptions(opts); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	a, err := factory(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}
	if err := a.Mount(); err != nil {
		return fmt.Errorf("failed to mount routes: %w", err)
	}
	doc, err := a.Document()
	if err != nil {
		return err
	}

	var data []byte
	if opts.Format == "json" {
		data, err = doc.JSON()
	} else {
		data, err = doc.YAML()
	}
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	if opts.OutputFile == "" || opts.OutputFile == "-" {
		_, err = out.Write(append(data, '\n'))
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.OutputFile), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(opts.OutputFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	fmt.Fprintf(out, "OpenAPI document written: %s (%d paths)\n", opts.OutputFile, len(doc.Paths))
	return nil
}

func validateGenerateOptions(opts *GenerateOptions) error {
	switch opts.Format {
	case "json":
	case "yaml", "yml":
		opts.Format = "yaml"
	default:
		return fmt.Errorf("unsupported format: %s (supported: json, yaml)", opts.Format)
	}

	if opts.OutputFile != "" && opts.OutputFile != "-" && filepath.Ext(opts.OutputFile) == "" {
		opts.OutputFile += "." + opts.Format
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := config.LoadFromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
