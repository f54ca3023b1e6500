package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/loomcms/loom/api"
	"github.com/loomcms/loom/internal/resolver"
)

var (
	resolveType      string
	resolveTheme     string
	resolveAll       bool
	resolveOverrides bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <name>",
	Short: "Resolve a logical file name through the theme chain",
	Long: `Resolve walks the theme inheritance chain, most specific theme first,
and prints the physical path of the first file found. With --all the name is
treated as a glob and the union of matches across the chain is printed; with
--overrides every chain member carrying the file is listed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ft, err := resolver.ParseFileType(resolveType)
		if err != nil {
			return err
		}
		_, _, res, err := openThemes()
		if err != nil {
			return err
		}

		switch {
		case resolveAll:
			paths, err := res.ResolveAll(args[0], ft, resolveTheme)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Println(p)
			}
			return nil
		case resolveOverrides:
			overrides, err := res.Overrides(args[0], ft, resolveTheme)
			if err != nil {
				return err
			}
			out := make([]api.OverrideEntry, 0, len(overrides))
			for _, o := range overrides {
				out = append(out, api.OverrideEntry{Theme: o.Theme, Path: o.Path, Priority: o.Priority})
			}
			return printJSON(out)
		default:
			p, err := res.ResolveFile(args[0], ft, resolveTheme)
			if err != nil {
				return err
			}
			return printJSON(api.ResolveResult{
				Name:  args[0],
				Type:  resolveType,
				Theme: resolveTheme,
				Path:  p,
			})
		}
	},
}

func init() {
	resolveCmd.Flags().StringVarP(&resolveType, "type", "t", "template", "File type (template|partial|layout|asset|style|script|image|font|config)")
	resolveCmd.Flags().StringVar(&resolveTheme, "theme", "base", "Theme to resolve from")
	resolveCmd.Flags().BoolVar(&resolveAll, "all", false, "Treat name as a glob and list the union across the chain")
	resolveCmd.Flags().BoolVar(&resolveOverrides, "overrides", false, "List every chain member carrying the file")
	rootCmd.AddCommand(resolveCmd)
}
