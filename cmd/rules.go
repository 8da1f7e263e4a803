package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Starlink/ORAC-DR-sub008/pkg/rules"
)

// rulesCmd represents the rules command
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect and validate calibration rule files",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <file> [<file>...]",
	Short: "Parse rule files and report syntax errors with line numbers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			rs, err := rules.ParseFile(path)
			if err != nil {
				return err
			}
			fmt.Printf("%s: %d rules OK\n", path, len(rs.Rules))
		}
		return nil
	},
}

var rulesShowCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Parse a rule file and print its canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rs, err := rules.ParseFile(args[0])
		if err != nil {
			return err
		}
		fmt.Print(rs.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.AddCommand(rulesShowCmd)
}
