package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Starlink/ORAC-DR-sub008/internal/utils"
	"github.com/Starlink/ORAC-DR-sub008/pkg/calib"
	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
	"github.com/Starlink/ORAC-DR-sub008/pkg/index"
)

// selectCmd picks the best calibration frame for a reference header.
// Exit status 0 means a frame was selected, 2 means no suitable
// calibration exists yet (a normal state early in a night), 1 means
// failure.
var selectCmd = &cobra.Command{
	Use:   "select",
	Short: "Select the best calibration frame for a science frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		instrument := flagOrConfig(cmd, "instrument", "instrument")
		if instrument == "" {
			return fmt.Errorf("an instrument is required (--instrument or config)")
		}
		calType, _ := cmd.Flags().GetString("type")
		if calType == "" {
			return fmt.Errorf("a calibration type is required (--type)")
		}
		headerPath, _ := cmd.Flags().GetString("header")
		if headerPath == "" {
			return fmt.Errorf("a reference header file is required (--header)")
		}

		ref, err := readHeaderFile(headerPath)
		if err != nil {
			return err
		}

		rulesDir := flagOrConfig(cmd, "rules", "rulesdir")
		rs, err := calib.LoadRules(rulesDir, instrument, calType)
		if err != nil {
			return err
		}
		utils.Log.Debugf("loaded %d rules from %s", len(rs.Rules), rs.File)

		policy, err := resolvePolicy(cmd, calType)
		if err != nil {
			return err
		}

		db, err := index.OpenDB(indexPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		ix, err := index.Load(context.Background(), db.ForType(calType))
		if err != nil {
			return err
		}
		utils.Log.Debugf("index holds %d %s frames", ix.Len(), calType)

		sel := &calib.Selector{Index: ix, Policy: policy}
		rec, ok := sel.SelectBest(rs, ref)
		if !ok {
			utils.Log.Warnf("no suitable %s calibration for %s", calType, headerPath)
			os.Exit(2)
		}

		fmt.Println(rec.File())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selectCmd)
	selectCmd.Flags().StringP("instrument", "i", "", "Instrument name (e.g. cgs4, ufti)")
	selectCmd.Flags().StringP("type", "t", "", "Calibration type (e.g. arc, dark, flat)")
	selectCmd.Flags().StringP("header", "H", "", "Reference header JSON file")
	selectCmd.Flags().String("rules", "", "Rules directory (default from config)")
	selectCmd.Flags().String("index", "", "Index database path")
	selectCmd.Flags().String("policy", "", "Time policy override: recency or nearest")
}

// flagOrConfig prefers a flag set on the command (or inherited from a
// parent), then falls back to the config file.
func flagOrConfig(cmd *cobra.Command, flag, key string) string {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	if f := cmd.InheritedFlags().Lookup(flag); f != nil && f.Value.String() != "" {
		return f.Value.String()
	}
	return viper.GetString(key)
}

func indexPath(cmd *cobra.Command) string {
	path := flagOrConfig(cmd, "index", "index")
	abs, err := utils.GetAbsIndexPath(path)
	if err != nil {
		return path
	}
	return abs
}

func resolvePolicy(cmd *cobra.Command, calType string) (calib.TimePolicy, error) {
	if v, _ := cmd.Flags().GetString("policy"); v != "" {
		return calib.ParsePolicy(v)
	}
	if v := viper.GetString("policy." + calType); v != "" {
		return calib.ParsePolicy(v)
	}
	return calib.DefaultPolicy(calType), nil
}

func readHeaderFile(path string) (header.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	h, err := header.FromJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}
