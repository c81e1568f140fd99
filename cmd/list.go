package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/conneroisu/exhibit/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"l"},
	Short:   "List the configured exhibitions",
	Long: `List the exhibitions defined in the configuration with their editors.

Examples:
  exhibit list                    # Table
  exhibit list -o yaml            # YAML, in the configuration's own layout
  exhibit list -o json            # JSON`,
	RunE: runList,
}

var listFormat string

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

func init() {
	rootCmd.AddCommand(listCmd)
	addOutputFlag(listCmd, &listFormat, "table")
}

func runList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(cfg.Exhibitions) == 0 {
		fmt.Fprintln(out, "No exhibitions configured.")
		return nil
	}

	switch strings.ToLower(listFormat) {
	case "yaml":
		return outputListYAML(out, cfg.Exhibitions)
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg.Exhibitions)
	default:
		fmt.Fprintln(out, exhibitionTable(cfg.Exhibitions))
		fmt.Fprintf(out, "\nTotal: %d exhibitions\n", len(cfg.Exhibitions))
		return nil
	}
}

func outputListYAML(w io.Writer, exhibitions []config.ExhibitionConfig) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(map[string]interface{}{"exhibitions": exhibitions})
}

func exhibitionTable(exhibitions []config.ExhibitionConfig) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("NAME", "TITLE", "EDITORS", "TEMPLATE")

	for _, x := range exhibitions {
		t.Row(x.Name, x.Title, strings.Join(x.Editors, "\n"), x.Template)
	}
	return t.String()
}
