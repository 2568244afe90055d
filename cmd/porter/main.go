package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"porter/internal/config"
	"porter/internal/index"
	"porter/internal/parser"
	"porter/internal/pipeline"
	"porter/internal/resolver"
	"porter/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "porter",
		Short: "Staged Python-to-TypeScript source translator",
	}
	cfgPath string
	dbPath  string
	jobs    int
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "porter.yaml", "Path to the config file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "porter.db", "Path to the local run-history database (SQLite)")
	rootCmd.PersistentFlags().IntVarP(&jobs, "jobs", "j", 0, "Max files translated in parallel (0 = config default)")

	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(translateCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(runsCmd)
}

func initPipeline() (*pipeline.Pipeline, *config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	profile, err := cfg.Profile()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid dialect profile: %w", err)
	}
	p, err := parser.New(cfg.Translate.SourceVersion)
	if err != nil {
		return nil, nil, err
	}
	return pipeline.New(p, profile), cfg, nil
}

var annotateCmd = &cobra.Command{
	Use:   "annotate [path]",
	Short: "Label each construct with its translation classification and write the mirror",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pipe, cfg, err := initPipeline()
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		root := cfg.Project.Root
		if len(args) > 0 {
			root = args[0]
		}

		batch, err := pipe.RunBatch(context.Background(), root, cfg.Project.Ignore, effectiveJobs(cfg))
		if err != nil {
			log.Fatalf("Annotation failed: %v", err)
		}
		for _, res := range batch.Results {
			if err := writeFile(res.SourcePath+".mirror", res.Mirror); err != nil {
				log.Fatalf("Failed to write mirror: %v", err)
			}
			meta, err := res.Sidecar.Marshal()
			if err != nil {
				log.Fatalf("Failed to marshal sidecar: %v", err)
			}
			if err := writeFile(res.SourcePath+".meta.json", string(meta)); err != nil {
				log.Fatalf("Failed to write sidecar: %v", err)
			}
			color.Green("✔ %s (%d labels)", res.SourcePath, len(res.Sidecar.Entries))
		}
		reportFailures(batch)
	},
}

var translateCmd = &cobra.Command{
	Use:   "translate [path]",
	Short: "Run the deterministic pipeline and emit TypeScript with placeholders",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runPipeline(args, nil)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve [path]",
	Short: "Translate and resolve remaining placeholders through the AI collaborator",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if cfg.AI.APIKey == "" {
			log.Fatal("AI API key not configured (set PORTER_API_KEY or ai.api_key)")
		}
		r, err := resolver.NewGeminiResolver(context.Background(), cfg.AI.APIKey, cfg.AI.Model)
		if err != nil {
			log.Fatalf("Failed to create resolver: %v", err)
		}
		defer r.Close()
		runPipeline(args, r)
	},
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent translation runs from the local database",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := storage.NewSQLiteStore(dbPath)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(context.Background(), 20)
		if err != nil {
			log.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Println("No runs recorded yet.")
			return
		}
		for _, r := range runs {
			line := fmt.Sprintf("%s  %s  completeness=%.2f unresolved=%d rejected=%d",
				r.GeneratedAt, r.File, r.Completeness, r.Unresolved, r.Rejected)
			if r.Unresolved > 0 {
				color.Yellow(line)
			} else {
				color.Green(line)
			}
		}
	},
}

func runPipeline(args []string, r resolver.Resolver) {
	pipe, cfg, err := initPipeline()
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	if r != nil {
		pipe.Resolver = r
		pipe.Retry = resolver.RetryPolicy{
			MaxAttempts: cfg.AI.MaxAttempts,
			Backoff:     backoff(cfg),
		}
	}
	root := cfg.Project.Root
	if len(args) > 0 {
		root = args[0]
	}

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	batch, err := pipe.RunBatch(ctx, root, cfg.Project.Ignore, effectiveJobs(cfg))
	if err != nil {
		log.Fatalf("Translation failed: %v", err)
	}

	for _, res := range batch.Results {
		if err := writeFile(res.OutputPath, res.Output); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		reportJSON, err := res.Report.Marshal()
		if err != nil {
			log.Fatalf("Failed to marshal report: %v", err)
		}
		if err := writeFile(res.OutputPath+".report.json", string(reportJSON)); err != nil {
			log.Fatalf("Failed to write report: %v", err)
		}
		if err := store.SaveRun(ctx, res.Report, res.Log.All()); err != nil {
			log.Fatalf("Failed to save run: %v", err)
		}

		if res.Report.UnresolvedCount > 0 {
			color.Yellow("◐ %s → %s (%d placeholders pending)",
				res.SourcePath, res.OutputPath, res.Report.UnresolvedCount)
		} else {
			color.Green("✔ %s → %s", res.SourcePath, res.OutputPath)
		}
	}
	idx := index.NewIndex()
	for _, res := range batch.Results {
		idx.Symbols = append(idx.Symbols, res.Symbols...)
	}
	idx.Sort()
	indexDir := root
	if fi, err := os.Stat(root); err == nil && !fi.IsDir() {
		indexDir = filepath.Dir(root)
	}
	indexPath := filepath.Join(indexDir, "porter.index.json")
	if err := idx.Save(indexPath); err != nil {
		log.Fatalf("Failed to write symbol index: %v", err)
	}

	reportFailures(batch)
	fmt.Printf("Done: %d translated, %d failed to parse. Index: %s. Database: %s\n",
		len(batch.Results), len(batch.Failed), indexPath, dbPath)
}

func reportFailures(batch *pipeline.BatchResult) {
	for path, err := range batch.Failed {
		color.Red("✘ %s: %v", path, err)
	}
}

func backoff(cfg *config.Config) time.Duration {
	return time.Duration(cfg.AI.BackoffMS) * time.Millisecond
}

func effectiveJobs(cfg *config.Config) int {
	if jobs > 0 {
		return jobs
	}
	return cfg.Translate.Jobs
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
