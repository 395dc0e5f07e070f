package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kwritelab/kwrite/internal/config"
	"github.com/kwritelab/kwrite/internal/db"
	"github.com/kwritelab/kwrite/internal/llm"
	"github.com/kwritelab/kwrite/internal/observability"
	"github.com/kwritelab/kwrite/internal/pipeline"
	"github.com/kwritelab/kwrite/internal/types"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file...]",
	Short: "Analyze the quality of one or more Korean business drafts",
	Long: `Runs the quality-analysis pipeline over one or more text files and writes
one JSON result per input. Files are analyzed concurrently.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

var (
	analyzeConfigPath  string
	analyzeOrgID       string
	analyzeUserID      string
	analyzeAudience    string
	analyzeChannel     string
	analyzeOutDir      string
	analyzeAPIKey      string
	analyzeDatabaseURL string
	analyzeConcurrency int
	analyzeVerbose     bool
)

func init() {
	analyzeCmd.Flags().StringVar(&analyzeConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	analyzeCmd.Flags().StringVar(&analyzeOrgID, "org-id", "", "Organization identifier (required via flag or config)")
	analyzeCmd.Flags().StringVar(&analyzeUserID, "user-id", "", "User identifier (required via flag or config)")
	analyzeCmd.Flags().StringVarP(&analyzeAudience, "audience", "a", "", "Target audience, e.g. 임원, 직속상사, 고객사")
	analyzeCmd.Flags().StringVarP(&analyzeChannel, "channel", "c", "", "Situation context, e.g. 이메일, 보고서, 사내 메신저")
	analyzeCmd.Flags().StringVarP(&analyzeOutDir, "out", "o", "", "Directory for result JSON files (default: print to stdout)")
	analyzeCmd.Flags().IntVar(&analyzeConcurrency, "concurrency", 4, "Maximum number of files analyzed in parallel")
	analyzeCmd.Flags().BoolVarP(&analyzeVerbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	analyzeCmd.Flags().StringVar(&analyzeAPIKey, "api-key", "", "Gemini API key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for organization context and policy tables
	analyzeCmd.Flags().StringVar(&analyzeDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := mergeAnalyzeConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.OrganizationID == "" {
		return fmt.Errorf("--org-id is required (via flag or config)")
	}
	if cfg.UserID == "" {
		return fmt.Errorf("--user-id is required (via flag or config)")
	}
	if analyzeConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	analyzer, cleanup, err := buildAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if analyzeOutDir != "" {
		if err := os.MkdirAll(analyzeOutDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(analyzeConcurrency)

	for _, inputPath := range args {
		g.Go(func() error {
			return analyzeFile(gctx, analyzer, cfg, inputPath)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Analyzed %d file(s)\n", len(args))
	return nil
}

// mergeAnalyzeConfig layers config file, CLI flags, and environment, with
// flags taking priority over the file and the environment filling gaps.
func mergeAnalyzeConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}
	if analyzeConfigPath != "" {
		loaded, err := config.LoadConfig(analyzeConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return nil, err
		}
		cfg = loaded
		if analyzeVerbose {
			_, _ = fmt.Fprintf(os.Stdout, "Loaded config from: %s\n", analyzeConfigPath)
		}
	}

	if cmd.Flags().Changed("org-id") {
		cfg.OrganizationID = analyzeOrgID
	}
	if cmd.Flags().Changed("user-id") {
		cfg.UserID = analyzeUserID
	}
	if cmd.Flags().Changed("audience") {
		cfg.Audience = analyzeAudience
	}
	if cmd.Flags().Changed("channel") {
		cfg.Channel = analyzeChannel
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = analyzeAPIKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = analyzeDatabaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = analyzeVerbose
	}

	return cfg.FromEnv(), nil
}

// buildAnalyzer wires the pipeline from whatever collaborators the
// configuration provides. Both the database and the model client are
// optional; the pipeline degrades without them.
func buildAnalyzer(ctx context.Context, cfg *config.Config) (*pipeline.Analyzer, func(), error) {
	var client llm.Client
	if cfg.APIKey != "" {
		c, err := llm.NewClient(ctx, llm.DefaultConfig(), cfg.APIKey)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Warning: model client unavailable: %v; using fallback analysis\n", err)
		} else {
			client = c
		}
	} else {
		_, _ = fmt.Fprintln(os.Stderr, "Warning: no API key configured; using fallback analysis")
	}

	opts := pipeline.Options{
		MaxGrammarSuggestions:  cfg.MaxGrammarSuggestions,
		MaxProtocolSuggestions: cfg.MaxProtocolSuggestions,
		Verbose:                cfg.Verbose,
	}

	if cfg.DatabaseURL == "" {
		_, _ = fmt.Fprintln(os.Stderr, "Warning: no database configured; analyzing without organization context")
		analyzer := pipeline.NewAnalyzer(client, nil, nil, nil, nil, opts)
		cleanup := func() {
			if client != nil {
				_ = client.Close()
			}
		}
		return analyzer, cleanup, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		if client != nil {
			_ = client.Close()
		}
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	analyzer := pipeline.NewAnalyzer(client, database, database, database, database.Policies(), opts)
	cleanup := func() {
		database.Close()
		if client != nil {
			_ = client.Close()
		}
	}
	return analyzer, cleanup, nil
}

// analyzeFile runs one input through the pipeline and emits its result.
func analyzeFile(ctx context.Context, analyzer *pipeline.Analyzer, cfg *config.Config, inputPath string) error {
	content, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file %s: %w", inputPath, err)
	}

	text := strings.TrimSpace(string(content))
	if text == "" {
		return fmt.Errorf("input file %s is empty", inputPath)
	}

	req := types.AnalysisRequest{
		Text:             text,
		TargetAudience:   cfg.Audience,
		SituationContext: cfg.Channel,
		OrganizationID:   cfg.OrganizationID,
		UserID:           cfg.UserID,
	}
	if err := req.Validate(); err != nil {
		return fmt.Errorf("invalid analysis request for %s: %w", inputPath, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, pipeline.DefaultTimeout)
	defer cancel()

	result := analyzer.AnalyzeQuality(runCtx, req)

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result for %s: %w", inputPath, err)
	}

	// Concurrent analyses share stdout; serialize whole blocks.
	outputMu.Lock()
	defer outputMu.Unlock()

	if analyzeOutDir == "" {
		_, _ = fmt.Fprintf(os.Stdout, "=== %s ===\n%s\n", inputPath, jsonBytes)
		if cfg.Verbose {
			observability.NewPrinter(os.Stdout).PrintAnalysisResult(result)
		}
		return nil
	}

	outPath := analysisOutputPath(analyzeOutDir, inputPath)
	if err := os.WriteFile(outPath, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write result for %s: %w", inputPath, err)
	}

	if cfg.Verbose {
		_, _ = fmt.Fprintf(os.Stdout, "%s -> %s\n", inputPath, outPath)
		observability.NewPrinter(os.Stdout).PrintAnalysisResult(result)
	}
	return nil
}

// outputMu serializes per-file output blocks across analysis goroutines.
var outputMu sync.Mutex

// analysisOutputPath maps an input file to its result file inside outDir.
func analysisOutputPath(outDir, inputPath string) string {
	base := filepath.Base(inputPath)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return filepath.Join(outDir, base+".analysis.json")
}
