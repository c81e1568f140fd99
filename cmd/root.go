package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/conneroisu/exhibit/internal/config"
	"github.com/conneroisu/exhibit/internal/errors"
	"github.com/conneroisu/exhibit/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "exhibit",
	Short: "Live previews for HTML, CSS, JavaScript and TypeScript snippets",
	Long: `Exhibit composes editor files into a single HTML document and serves it
in a live preview frame that updates whenever an editor changes.

Quick Start:
  exhibit serve                   Serve the exhibitions in .exhibit.yml
  exhibit render <name>           Print the composed document
  exhibit list                    List configured exhibitions

Command Aliases:
  serve (s), render (r), list (l)`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints failures with suggestions.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), describeError(err))
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is .exhibit.yml, can also use EXHIBIT_CONFIG_FILE env var)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
	})
}

// initConfig points viper at the config file. The --config flag wins over
// EXHIBIT_CONFIG_FILE, which wins over .exhibit.yml in the working
// directory. Every key can be overridden with EXHIBIT_<SECTION>_<KEY>.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv(config.EnvPrefix + "_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(strings.TrimSuffix(config.FileName, ".yml"))
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// A missing file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// loadConfig decodes the configuration and wraps failures with suggestions.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		path := viper.ConfigFileUsed()
		if path == "" {
			path = config.FileName
		}
		return nil, errors.NewEnhancedError(
			"Failed to load configuration",
			err,
			errors.ConfigurationSuggestions(err.Error(), errors.SuggestionContext{ConfigPath: path}),
		)
	}
	return cfg, nil
}

// newLogger builds the CLI logger from the log section.
func newLogger(cmd *cobra.Command, cfg *config.Config) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.ParseLevel(cfg.Log.Level),
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
}

// suggestionContext describes the configuration for error suggestions.
func suggestionContext(cfg *config.Config) errors.SuggestionContext {
	ctx := errors.SuggestionContext{ConfigPath: viper.ConfigFileUsed()}
	if cfg == nil {
		return ctx
	}
	ctx.Port = cfg.Server.Port
	ctx.CompilerCommand = cfg.Compiler.Command
	for _, x := range cfg.Exhibitions {
		ctx.Exhibitions = append(ctx.Exhibitions, x.Name)
	}
	return ctx
}

// withSuggestions attaches suggestions to err when any apply.
func withSuggestions(title string, err error, cfg *config.Config) error {
	if err == nil {
		return nil
	}
	var enhanced *errors.EnhancedError
	if stderrors.As(err, &enhanced) {
		return err
	}
	suggestions := errors.Suggest(err, suggestionContext(cfg))
	if len(suggestions) == 0 {
		return fmt.Errorf("%s: %w", title, err)
	}
	return errors.NewEnhancedError(title+": "+err.Error(), err, suggestions)
}

func describeError(err error) string {
	var enhanced *errors.EnhancedError
	if stderrors.As(err, &enhanced) {
		return enhanced.Error()
	}
	return "Error: " + err.Error()
}
