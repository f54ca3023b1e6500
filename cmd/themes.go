package cmd

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomcms/loom/api"
	"github.com/loomcms/loom/internal/theme"
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Inspect the theme registry",
}

var themesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered themes in declaration order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, _, err := openThemes()
		if err != nil {
			return err
		}
		out := make([]api.ThemeInfo, 0)
		for _, def := range registry.All() {
			out = append(out, api.ThemeInfo{
				Name:        def.Name,
				Extends:     def.Extends,
				Context:     string(def.Context.Type),
				Active:      def.Active,
				Version:     def.Metadata.Version,
				Description: def.Metadata.Description,
				Features:    def.Metadata.RequiredFeatures,
			})
		}
		return printJSON(out)
	},
}

var chainCmd = &cobra.Command{
	Use:   "chain <theme>",
	Short: "Print a theme's inheritance chain",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, chains, _, err := openThemes()
		if err != nil {
			return err
		}
		chain, err := chains.Build(args[0])
		if err != nil {
			return err
		}
		return printJSON(api.ChainResult{
			Theme:     args[0],
			Chain:     chain,
			Composite: theme.CompositeName(chain),
		})
	},
}

var (
	selLocation  string
	selEvent     string
	selPreferred string
	selFeatures  []string
	selCustom    []string
)

var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Pick the best theme for a request context",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, _, _, err := openThemes()
		if err != nil {
			return err
		}
		selector := theme.NewSelector(registry, log)
		def, err := selector.Select(theme.SelectionContext{
			Now:       time.Now(),
			Location:  selLocation,
			Event:     selEvent,
			Custom:    selCustom,
			Features:  selFeatures,
			Preferred: selPreferred,
		})
		if err != nil {
			return err
		}
		return printJSON(api.ThemeInfo{
			Name:        def.Name,
			Extends:     def.Extends,
			Context:     string(def.Context.Type),
			Active:      def.Active,
			Version:     def.Metadata.Version,
			Description: def.Metadata.Description,
		})
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	selectCmd.Flags().StringVar(&selLocation, "location", "", "Request location code")
	selectCmd.Flags().StringVar(&selEvent, "event", "", "Active event name")
	selectCmd.Flags().StringVar(&selPreferred, "preferred", "", "Explicit theme preference")
	selectCmd.Flags().StringSliceVar(&selFeatures, "feature", nil, "Available site features")
	selectCmd.Flags().StringSliceVar(&selCustom, "custom", nil, "Custom context values")

	themesCmd.AddCommand(themesListCmd, chainCmd, selectCmd)
	rootCmd.AddCommand(themesCmd)
}
