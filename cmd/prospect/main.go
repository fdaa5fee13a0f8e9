package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"prospect/internal/config"
	"prospect/internal/research"
	"prospect/internal/scrape"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "prospect",
		Short:         "Aggregate and cross-check public information about a person and their employer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(investigateCmd(&verbose))
	return root
}

func investigateCmd(verbose *bool) *cobra.Command {
	var (
		name     string
		company  string
		role     string
		location string
		timeout  int
	)

	cmd := &cobra.Command{
		Use:   "investigate",
		Short: "Run one acquisition + verification pass for a prospect",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(*verbose)
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			cfg := config.FromEnv()
			if timeout > 0 {
				cfg.GlobalDeadline = time.Duration(timeout) * time.Second
			}
			for _, w := range cfg.Validate() {
				log.Sugar().Warn(w)
			}

			svc := research.NewService(cfg, log)
			report, err := svc.Investigate(cmd.Context(), scrape.Query{
				Name:     name,
				Company:  company,
				Role:     role,
				Location: location,
			})
			if errors.Is(err, research.ErrNoData) {
				fmt.Println("No data found: every source came back empty.")
				return nil
			}
			if err != nil {
				return err
			}

			printReport(report)
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "prospect full name (required)")
	cmd.Flags().StringVarP(&company, "company", "c", "", "employer name (required)")
	cmd.Flags().StringVarP(&role, "role", "r", "", "known role, if any")
	cmd.Flags().StringVarP(&location, "location", "l", "", "known location, if any")
	cmd.Flags().IntVarP(&timeout, "timeout", "t", 0, "global deadline in seconds (default 25)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("company")

	return cmd
}

func printReport(r *research.Report) {
	fmt.Printf("\n%d raw items, %d facts\n", len(r.Items), len(r.Facts))
	if r.Domain != "" {
		fmt.Println("Corporate site:", r.Domain)
	}
	if !r.Hints.Empty() {
		fmt.Println("\nProfile hints:")
		if r.Hints.Headline != "" {
			fmt.Println("  headline :", r.Hints.Headline)
		}
		if r.Hints.Education != "" {
			fmt.Println("  education:", r.Hints.Education)
		}
		if r.Hints.Location != "" {
			fmt.Println("  location :", r.Hints.Location)
		}
	}

	fmt.Println("\nFacts (verified first):")
	for i, f := range r.Facts {
		fmt.Printf("%2d) [%s] %s\n", i+1, f.Confidence, f.Content)
		fmt.Printf("    sources: %s\n", strings.Join(f.SourceTags, ", "))
		for _, u := range f.SourceURLs {
			fmt.Println("    -", u)
		}
	}

	fmt.Println("\nManual profile search:", r.ProfileSearchURL)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
