package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kwritelab/kwrite/internal/db"
	"github.com/kwritelab/kwrite/internal/observability"
	"github.com/kwritelab/kwrite/internal/policy"
	"github.com/kwritelab/kwrite/internal/rewriting"
	"github.com/kwritelab/kwrite/internal/types"
	"github.com/spf13/cobra"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Deterministically rewrite a draft to match register and policy",
	Long: `Applies the deterministic rewrite passes to a draft: accepted feedback,
glossary terms, emoji policy, email structure, and request normalization.
No model calls are made.`,
	RunE: runRewrite,
}

var (
	rewriteInputFile    string
	rewriteOutputFile   string
	rewriteEditsFile    string
	rewriteAudience     string
	rewriteChannel      string
	rewriteSubjectHint  string
	rewriteStrict       bool
	rewriteAnalysisOnly bool
	rewriteOrgID        string
	rewriteDatabaseURL  string
	rewriteVerbose      bool
)

// editSet is the optional per-user edit input for the rewrite command.
type editSet struct {
	Feedback []types.FeedbackItem   `json:"feedback"`
	Terms    []types.TermSuggestion `json:"terms"`
}

func init() {
	rewriteCmd.Flags().StringVarP(&rewriteInputFile, "in", "i", "", "Path to input text file (required)")
	rewriteCmd.Flags().StringVarP(&rewriteOutputFile, "out", "o", "", "Path to output JSON file (default: print to stdout)")
	rewriteCmd.Flags().StringVar(&rewriteEditsFile, "edits", "", "Path to JSON file with accepted feedback and term suggestions")
	rewriteCmd.Flags().StringVarP(&rewriteAudience, "audience", "a", "", "Target audience, e.g. 임원, 직속상사, 고객사")
	rewriteCmd.Flags().StringVarP(&rewriteChannel, "channel", "c", "", "Situation context, e.g. 이메일, 보고서, 사내 메신저")
	rewriteCmd.Flags().StringVar(&rewriteSubjectHint, "subject", "", "Subject hint for emails missing a subject line")
	rewriteCmd.Flags().BoolVar(&rewriteStrict, "strict", false, "Hold the text to the formal register regardless of context")
	rewriteCmd.Flags().BoolVar(&rewriteAnalysisOnly, "analysis-only", false, "Assess the text without mutating it")
	rewriteCmd.Flags().StringVar(&rewriteOrgID, "org-id", "", "Organization whose policy table to apply (requires database)")
	rewriteCmd.Flags().StringVar(&rewriteDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	rewriteCmd.Flags().BoolVarP(&rewriteVerbose, "verbose", "v", false, "Print a formatted change summary")

	if err := rewriteCmd.MarkFlagRequired("in"); err != nil {
		panic(fmt.Sprintf("failed to mark in flag as required: %v", err))
	}

	rootCmd.AddCommand(rewriteCmd)
}

func runRewrite(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	content, err := os.ReadFile(rewriteInputFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}
	text := strings.TrimSpace(string(content))
	if text == "" {
		return fmt.Errorf("input file %s is empty", rewriteInputFile)
	}

	var edits editSet
	if rewriteEditsFile != "" {
		editsContent, err := os.ReadFile(rewriteEditsFile)
		if err != nil {
			return fmt.Errorf("failed to read edits file: %w", err)
		}
		if err := json.Unmarshal(editsContent, &edits); err != nil {
			return fmt.Errorf("failed to unmarshal edits JSON: %w", err)
		}
	}

	table, err := loadPolicyTable(ctx)
	if err != nil {
		return err
	}

	rctx := types.NewRewriteContext(rewriteAudience, rewriteChannel)
	result := rewriting.Rewrite(text, edits.Feedback, edits.Terms, rctx, table, rewriting.Options{
		StrictPolicy: rewriteStrict,
		AnalysisOnly: rewriteAnalysisOnly,
		SubjectHint:  rewriteSubjectHint,
	})

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if rewriteVerbose {
		observability.NewPrinter(os.Stdout).PrintRewriteResult(result)
	}

	if rewriteOutputFile == "" {
		_, _ = fmt.Fprintf(os.Stdout, "%s\n", jsonBytes)
		return nil
	}

	outputDir := filepath.Dir(rewriteOutputFile)
	if outputDir != "" && outputDir != "." {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(rewriteOutputFile, jsonBytes, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Applied %d change(s)\n", len(result.ChangeLog.Steps))
	_, _ = fmt.Fprintf(os.Stdout, "Output: %s\n", rewriteOutputFile)
	return nil
}

// loadPolicyTable fetches the organization's policy table when a database and
// organization are configured, and falls back to the defaults otherwise.
func loadPolicyTable(ctx context.Context) (policy.Table, error) {
	databaseURL := rewriteDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}

	if rewriteOrgID == "" || databaseURL == "" {
		return policy.DefaultTable(), nil
	}

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return policy.Table{}, fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	table, err := database.Policies().Load(ctx, rewriteOrgID)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to load policy table for %s: %v; using defaults\n", rewriteOrgID, err)
		return policy.DefaultTable(), nil
	}
	return table, nil
}
