package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/infrastructure/discovery"
)

// --- classify / summarize ---

var classifyCmd = &cobra.Command{
	Use:   "classify <file>",
	Short: "Extract a PDF and print its ranked categories",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, loadConfig())
		if err != nil {
			return err
		}
		defer app.Close()

		text, err := extractLocal(cmd, app.Extractor, args[0])
		if err != nil {
			return err
		}
		return printJSON(stdout(cmd), app.Classifier.Classify(cmd.Context(), text))
	},
}

var summarizeCmd = &cobra.Command{
	Use:   "summarize <file>",
	Short: "Extract a PDF and print a short summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, loadConfig())
		if err != nil {
			return err
		}
		defer app.Close()

		text, err := extractLocal(cmd, app.Extractor, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(stdout(cmd), app.Summarizer.Summarize(cmd.Context(), text))
		return err
	},
}

type fullTextExtractor interface {
	ExtractFullText(ctx context.Context, ref string) (string, error)
}

func extractLocal(cmd *cobra.Command, extractor fullTextExtractor, file string) (string, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", file, err)
	}
	return extractor.ExtractFullText(cmd.Context(), abs)
}

// --- ingest ---

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Process every discovered PDF and print the outcome",
	Long: `Process every discovered PDF in batches and print one line per document.

Examples:
  docctl ingest
  docctl ingest --dir ./samples`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		if ingestDir != "" {
			cfg.DataDir = ingestDir
		}
		app, err := openApp(cmd, cfg)
		if err != nil {
			return err
		}
		defer app.Close()

		sources, err := app.Pipeline.Discover(cmd.Context())
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			_, err := fmt.Fprintln(stdout(cmd), "(no documents)")
			return err
		}
		return printDocuments(stdout(cmd), app.Pipeline.IngestAll(cmd.Context(), sources))
	},
}

func printDocuments(w io.Writer, docs []domain.ProcessedDocument) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tCLASSIFICATION\tCONFIDENCE\tPAGES")
	for _, doc := range docs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\n", doc.Name, doc.ProcessingStatus, doc.Classification, doc.ConfidenceScore, doc.PageCount)
	}
	return tw.Flush()
}

// --- ask ---

var askDoc string

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Answer a question with sentences from one document",
	Long: `Answer a question with the best matching sentences of one document.

Without --doc the semantic index picks the document.

Examples:
  docctl ask "When is the deadline?" --doc 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, loadConfig())
		if err != nil {
			return err
		}
		defer app.Close()

		resp, err := app.QA.Ask(cmd.Context(), args[0], askDoc)
		if err != nil {
			return err
		}
		return printJSON(stdout(cmd), resp)
	},
}

// --- search ---

var (
	searchCategory string
	searchSemantic bool
	searchTopK     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search processed documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp(cmd, loadConfig())
		if err != nil {
			return err
		}
		defer app.Close()

		var results []domain.SearchResult
		if searchSemantic {
			results = app.Index.SemanticSearch(cmd.Context(), args[0], searchTopK)
		} else {
			results = app.Index.Search(args[0], domain.SearchFilter{Category: searchCategory})
		}
		if results == nil {
			results = []domain.SearchResult{}
		}
		return printJSON(stdout(cmd), results)
	},
}

// --- manifest ---

var manifestDir string

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Write index.json listing the PDFs of a directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		dir := manifestDir
		if dir == "" {
			dir = loadConfig().DataDir
		}
		names, err := discovery.WriteManifest(dir)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(stdout(cmd), "wrote %s with %d documents\n", filepath.Join(dir, discovery.ManifestFile), len(names))
		return err
	},
}

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Push cached document snippets to the semantic index service",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		if cfg.SemanticURL == "" {
			return errors.New("SEMANTIC_URL is not set")
		}
		app, err := openApp(cmd, cfg)
		if err != nil {
			return err
		}
		// Bootstrap warms the index from the cache, which schedules the push;
		// Close waits for it.
		app.Close()

		_, err = fmt.Fprintf(stdout(cmd), "indexed %d documents\n", app.Index.Len())
		return err
	},
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "directory to ingest instead of DATA_DIR")
	askCmd.Flags().StringVar(&askDoc, "doc", "", "1-based document number")
	searchCmd.Flags().StringVar(&searchCategory, "category", "", "only return documents in this category")
	searchCmd.Flags().BoolVar(&searchSemantic, "semantic", false, "use the semantic index")
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 5, "maximum semantic results")
	manifestCmd.Flags().StringVar(&manifestDir, "dir", "", "directory to scan instead of DATA_DIR")

	rootCmd.AddCommand(classifyCmd, summarizeCmd, ingestCmd, askCmd, searchCmd, manifestCmd, indexCmd)
}
