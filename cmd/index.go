package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Starlink/ORAC-DR-sub008/internal/utils"
	"github.com/Starlink/ORAC-DR-sub008/pkg/archive"
	"github.com/Starlink/ORAC-DR-sub008/pkg/header"
	"github.com/Starlink/ORAC-DR-sub008/pkg/index"
)

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Interact with the calibration index",
}

var indexAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append one reduced calibration frame to the index",
	RunE: func(cmd *cobra.Command, args []string) error {
		calType, _ := cmd.Flags().GetString("type")
		if calType == "" {
			return fmt.Errorf("a calibration type is required (--type)")
		}
		headerPath, _ := cmd.Flags().GetString("header")
		if headerPath == "" {
			return fmt.Errorf("a frame header file is required (--header)")
		}
		h, err := readHeaderFile(headerPath)
		if err != nil {
			return err
		}
		return withLockedDB(cmd, func(db *index.DB) error {
			if err := db.ForType(calType).Append(context.Background(), h); err != nil {
				return err
			}
			utils.Log.Infof("indexed %s frame from %s", calType, headerPath)
			return nil
		})
	},
}

var indexImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-import frame headers from an archive URL or dump file",
	RunE: func(cmd *cobra.Command, args []string) error {
		calType, _ := cmd.Flags().GetString("type")
		if calType == "" {
			return fmt.Errorf("a calibration type is required (--type)")
		}
		rawURL, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")
		if (rawURL == "") == (file == "") {
			return fmt.Errorf("exactly one of --url or --file is required")
		}

		var frames []header.Set
		var err error
		if rawURL != "" {
			proxy, _ := cmd.Flags().GetString("proxy")
			client, cerr := archive.NewClient(proxy)
			if cerr != nil {
				return cerr
			}
			frames, err = client.FetchFrames(context.Background(), rawURL)
		} else {
			var data []byte
			data, err = os.ReadFile(file)
			if err == nil {
				frames, err = archive.DecodeFrames(data)
			}
		}
		if err != nil {
			return err
		}

		return withLockedDB(cmd, func(db *index.DB) error {
			store := db.ForType(calType)
			imported := 0
			for i, h := range frames {
				if err := store.Append(context.Background(), h); err != nil {
					utils.Log.Warnf("skipping frame %d: %v", i, err)
					continue
				}
				imported++
			}
			utils.Log.Infof("imported %d/%d %s frames", imported, len(frames), calType)
			return nil
		})
	},
}

var indexListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed calibration frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := index.OpenDB(indexPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		calType, _ := cmd.Flags().GetString("type")
		types := []string{calType}
		if calType == "" {
			types, err = db.Types(context.Background())
			if err != nil {
				return err
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "TYPE\tSEQ\tORACTIME\tFRAME\t")
		for _, t := range types {
			ix, err := index.Load(context.Background(), db.ForType(t))
			if err != nil {
				return err
			}
			for _, rec := range ix.Records() {
				ot := "?"
				if f, err := rec.Time(); err == nil {
					ot = fmt.Sprintf("%.5f", f)
				}
				fmt.Fprintf(w, "%s\t%d\t%s\t%s\t\n", t, rec.Seq, ot, rec.File())
			}
		}
		return w.Flush()
	},
}

var indexStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print per-type statistics about the calibration index",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := index.OpenDB(indexPath(cmd))
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats(context.Background())
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("The calibration index is empty.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight)
		fmt.Fprintln(w, "TYPE\tFRAMES\tFIRST\tLAST\t")
		total := 0
		for _, s := range stats {
			fmt.Fprintf(w, "%s\t%d\t%.5f\t%.5f\t\n", s.CalType, s.Count, s.MinTime, s.MaxTime)
			total += s.Count
		}
		fmt.Fprintln(w, " \t \t \t \t")
		fmt.Fprintf(w, "TOTAL\t%d\t\t\t\n", total)
		return w.Flush()
	},
}

// withLockedDB runs fn with the index database open and the write lock
// held, so concurrent pipelines never interleave appends.
func withLockedDB(cmd *cobra.Command, fn func(db *index.DB) error) error {
	path := indexPath(cmd)
	lock, err := utils.NewIndexLock(path)
	if err != nil {
		return err
	}
	if err := lock.Lock(); err != nil {
		return err
	}
	defer lock.Unlock()

	db, err := index.OpenDB(path)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(db)
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexAddCmd)
	indexCmd.AddCommand(indexImportCmd)
	indexCmd.AddCommand(indexListCmd)
	indexCmd.AddCommand(indexStatsCmd)

	indexCmd.PersistentFlags().String("index", "", "Index database path")
	indexAddCmd.Flags().StringP("type", "t", "", "Calibration type")
	indexAddCmd.Flags().StringP("header", "H", "", "Frame header JSON file")
	indexImportCmd.Flags().StringP("type", "t", "", "Calibration type")
	indexImportCmd.Flags().String("url", "", "Archive endpoint returning a JSON header dump")
	indexImportCmd.Flags().String("file", "", "Local JSON header dump")
	indexImportCmd.Flags().String("proxy", "", "HTTP proxy for archive requests")
	indexListCmd.Flags().StringP("type", "t", "", "Only list this calibration type")
}
