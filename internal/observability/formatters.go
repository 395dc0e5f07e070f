// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/kwritelab/kwrite/internal/rewriting"
	"github.com/kwritelab/kwrite/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintAnalysisResult outputs a human-readable summary of one analysis.
func (p *Printer) PrintAnalysisResult(result *types.AnalysisResult) {
	if result == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Method:      %s\n", result.Metadata.Method))
	sb.WriteString(fmt.Sprintf("Confidence:  %s\n", result.Metadata.Confidence))
	if result.Metadata.FallbackReason != "" {
		reason := result.Metadata.FallbackReason
		if len(reason) > 45 {
			reason = reason[:42] + "..."
		}
		sb.WriteString(fmt.Sprintf("Reason:      %s\n", reason))
	}
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf("Grammar:     %5.1f\n", result.GrammarScore))
	sb.WriteString(fmt.Sprintf("Formality:   %5.1f\n", result.FormalityScore))
	sb.WriteString(fmt.Sprintf("Readability: %5.1f\n", result.ReadabilityScore))
	sb.WriteString(fmt.Sprintf("Protocol:    %5.1f\n", result.ProtocolScore))
	sb.WriteString(fmt.Sprintf("Compliance:  %5.1f\n", result.ComplianceScore))

	if len(result.GrammarSuggestions) > 0 {
		sb.WriteString("\nGrammar Suggestions:\n")
		count := min(len(result.GrammarSuggestions), maxItemsToShow)
		for i := 0; i < count; i++ {
			s := result.GrammarSuggestions[i]
			sb.WriteString(fmt.Sprintf("  • %s\n", s.Issue))
		}
		if len(result.GrammarSuggestions) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.GrammarSuggestions)-maxItemsToShow))
		}
	}

	if len(result.ProtocolSuggestions) > 0 {
		sb.WriteString("\nProtocol Suggestions:\n")
		count := min(len(result.ProtocolSuggestions), maxItemsToShow)
		for i := 0; i < count; i++ {
			s := result.ProtocolSuggestions[i]
			sb.WriteString(fmt.Sprintf("  • %s\n", s.Issue))
		}
		if len(result.ProtocolSuggestions) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.ProtocolSuggestions)-maxItemsToShow))
		}
	}

	p.printBox("QUALITY ANALYSIS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintRewriteResult outputs the rewrite change log and assessment metrics.
func (p *Printer) PrintRewriteResult(result *rewriting.Result) {
	if result == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Changes:     %d\n", len(result.ChangeLog.Steps)))
	sb.WriteString(fmt.Sprintf("Grammar:     %5.1f\n", result.Grammar.GrammarScore))
	sb.WriteString(fmt.Sprintf("Policy:      %5.2f\n", result.Protocol.PolicyScore))
	sb.WriteString(fmt.Sprintf("Register:    %s\n", result.Grammar.DominantRegister))

	if len(result.ChangeLog.Steps) > 0 {
		sb.WriteString("\nChange Log:\n")
		count := min(len(result.ChangeLog.Steps), maxItemsToShow)
		for i := 0; i < count; i++ {
			step := result.ChangeLog.Steps[i]
			detail := step.Detail
			if detail == "" && step.Before != "" {
				detail = fmt.Sprintf("%s → %s", step.Before, step.After)
			}
			if len(detail) > 40 {
				detail = detail[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("  #%d %s", step.StepNum, step.Kind))
			if detail != "" {
				sb.WriteString(fmt.Sprintf(": %s", detail))
			}
			sb.WriteString("\n")
		}
		if len(result.ChangeLog.Steps) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.ChangeLog.Steps)-maxItemsToShow))
		}
	}

	p.printBox("REWRITE RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintOrganizationProfile outputs the organization context used for analysis.
func (p *Printer) PrintOrganizationProfile(profile *types.OrganizationProfile) {
	if profile == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Organization: %s\n", profile.OrganizationID))
	if profile.Name != "" {
		sb.WriteString(fmt.Sprintf("Name:         %s\n", profile.Name))
	}
	sb.WriteString(fmt.Sprintf("Style:        %s\n", profile.CommunicationStyle))

	if len(profile.DeclaredChannels) > 0 {
		sb.WriteString("\nDeclared Channels:\n")
		count := min(len(profile.DeclaredChannels), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", profile.DeclaredChannels[i]))
		}
		if len(profile.DeclaredChannels) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(profile.DeclaredChannels)-maxItemsToShow))
		}
	}

	p.printBox("ORGANIZATION PROFILE", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintProtocolFindings outputs the policy findings for a text.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintProtocolFindings(metrics *types.ProtocolMetrics) {
	if metrics == nil {
		return
	}

	if len(metrics.BannedTermHits) == 0 && len(metrics.MissingSections) == 0 && !metrics.ToneMismatch {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO PROTOCOL FINDINGS")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Policy score: %.2f\n\n", metrics.PolicyScore))

	for _, term := range metrics.BannedTermHits {
		sb.WriteString(fmt.Sprintf("⚠ banned term\n  %s\n", term))
	}
	for _, section := range metrics.MissingSections {
		sb.WriteString(fmt.Sprintf("⚠ missing section\n  %s\n", section))
	}
	if metrics.ToneMismatch {
		sb.WriteString("⚠ tone mismatch\n  emoji or informal tone for a formal context\n")
	}

	p.printBox("PROTOCOL FINDINGS", strings.TrimSuffix(sb.String(), "\n"))
}
