package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/conneroisu/exhibit/internal/config"
	"github.com/conneroisu/exhibit/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:     "render <name> [editor files...]",
	Aliases: []string{"r"},
	Short:   "Compose an exhibition and print the document",
	Long: `Compose an exhibition once and print the resulting HTML document.

Without editor files the exhibition is looked up in the configuration. With
editor files an exhibition of that name is composed from them instead.

Examples:
  exhibit render buttons                       # Render a configured exhibition
  exhibit render demo page.html style.css      # Render files directly
  exhibit render demo app.ts -t layout.html -f out.html`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRender,
}

var (
	renderOutput   string
	renderTemplate string
)

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "file", "f", "", "Write the document to a file instead of stdout")
	renderCmd.Flags().StringVarP(&renderTemplate, "template", "t", "", "Markup template for editor files given as arguments")
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := renderConfig(args[0], args[1:])
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	srv := server.New(cfg, server.WithLogger(logger))
	defer func() {
		if shutdownErr := srv.Shutdown(context.Background()); shutdownErr != nil {
			logger.Warn(context.Background(), shutdownErr, "Error during shutdown")
		}
	}()

	doc, err := srv.Render(cmd.Context(), args[0])
	if err != nil {
		return withSuggestions("Failed to render "+args[0], err, cfg)
	}

	if renderOutput == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), doc)
		return err
	}
	if err := os.WriteFile(renderOutput, []byte(doc), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", renderOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", renderOutput)
	return nil
}

// renderConfig loads the configuration. Editor files given on the command
// line replace the configured exhibitions.
func renderConfig(name string, files []string) (*config.Config, error) {
	if len(files) == 0 {
		return loadConfig()
	}

	builder := config.FromViper(viper.GetViper()).
		ClearExhibitions().
		WithExhibition(name, files...)
	if renderTemplate != "" {
		builder = builder.WithTemplate(name, renderTemplate)
	}
	cfg, err := builder.Build()
	if err != nil {
		return nil, withSuggestions("Invalid exhibition", err, nil)
	}
	return cfg, nil
}
