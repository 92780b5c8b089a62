package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TobiSchelling/TechBrief/internal/config"
	"github.com/TobiSchelling/TechBrief/internal/database"
	"github.com/TobiSchelling/TechBrief/internal/pipeline"
	"github.com/TobiSchelling/TechBrief/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "techbrief",
	Short:   "Daily tech news digests",
	Long:    "TechBrief collects and classifies tech news, then selects a topic-balanced daily digest.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if strings.EqualFold(cfg.Logging.Level, "DEBUG") {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("techbrief", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/techbrief/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure feeds, topics, and the classification provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		latest := stats.LatestDigest
		if latest == "" {
			latest = "none"
		}
		fmt.Printf("Today: %s\n\n", database.GetToday())
		fmt.Println("Stories:")
		fmt.Printf("  Total stored: %d\n", stats.TotalStories)
		fmt.Printf("  Processed: %d\n", stats.ProcessedStories)
		fmt.Println("\nDigests:")
		fmt.Printf("  Total: %d\n", stats.Digests)
		fmt.Printf("  Latest: %s\n", latest)
		return nil
	},
}

// --- pipeline commands ---

var (
	dryRun     bool
	digestDate string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Collect, classify and store new stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) *pipeline.Result {
			return p.Ingest(ctx)
		})
	},
}

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Select stories and write the daily digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withPipeline(func(ctx context.Context, p *pipeline.Pipeline) *pipeline.Result {
			return p.Digest(ctx, digestDate, dryRun)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: ingest -> digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		err := withPipeline(func(ctx context.Context, p *pipeline.Pipeline) *pipeline.Result {
			return p.Run(ctx, digestDate)
		})
		if err == nil {
			fmt.Println("\nPipeline complete! Run 'techbrief serve' to view the digest.")
		}
		return err
	},
}

func init() {
	digestCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the selection without writing it")
	digestCmd.Flags().StringVar(&digestDate, "date", "", "Digest date (YYYY-MM-DD, default today)")
	runCmd.Flags().StringVar(&digestDate, "date", "", "Digest date (YYYY-MM-DD, default today)")
}

// withPipeline opens the database, runs fn and prints its steps. The
// returned error is the first failed step.
func withPipeline(fn func(context.Context, *pipeline.Pipeline) *pipeline.Result) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	pipe := pipeline.New(cfg, db)
	defer pipe.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result := fn(ctx, pipe)
	printResult(result)
	return result.Err()
}

func printResult(result *pipeline.Result) {
	for i, step := range result.Steps {
		fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
		if step.Err != nil {
			fmt.Printf("  Error: %v\n", step.Err)
		} else {
			fmt.Printf("  %s\n", step.Summary)
		}
	}

	sel := result.Selection
	if sel == nil {
		return
	}
	fmt.Printf("\nDigest %s:\n", result.Date)
	for i, st := range sel.Stories {
		fmt.Printf("  %d. %s\n", i+1, st.Title)
		fmt.Printf("     %s | %s | %.2f\n", st.Source, strings.Join(st.Topics, ", "), st.RelevanceScore)
	}
	if len(sel.Unmet) > 0 {
		fmt.Printf("\nUncovered topics: %s\n", strings.Join(sel.Unmet, ", "))
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local digest viewer",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") || port == 0 {
			port = servePort
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "techbrief.db")
	return database.Open(dbPath)
}
