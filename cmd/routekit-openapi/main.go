// Package main is the routekit-openapi tool. It exports the OpenAPI document
// of the catalog service and checks exported documents.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gaborage/routekit/app"
	"github.com/gaborage/routekit/config"
	"github.com/gaborage/routekit/examples/catalog"
	"github.com/gaborage/routekit/internal/commands"
	"github.com/gaborage/routekit/logger"
)

var version = "dev" // set during build

func newApp(cfg *config.Config) (*app.App, error) {
	a, _, err := catalog.NewApp(cfg, logger.Nop())
	return a, err
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "routekit-openapi",
		Short: "Export and check OpenAPI documents of routekit services",
		Long: `Builds the OpenAPI 3.1 document of a routekit service from its route
declarations, and checks exported documents for dangling references and
undeclared path parameters.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		commands.NewGenerateCommand(newApp),
		commands.NewDoctorCommand(),
		commands.NewVersionCommand(version),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
