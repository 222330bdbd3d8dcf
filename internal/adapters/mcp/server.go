package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/document-intelligence/internal/core/domain"
	"github.com/kirillkom/document-intelligence/internal/core/ports"
)

const defaultTopK = 5

// Deps holds what the MCP tools call into.
type Deps struct {
	Search     ports.DocumentSearcher
	QA         ports.QuestionAnswerer
	Classifier ports.DocumentClassifier
	Summarizer ports.Summarizer
}

// NewServer creates an MCP server with the document tools registered.
func NewServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"document-intelligence",
		version,
		server.WithToolCapabilities(true),
		server.WithInstructions("Search, classify, summarize and question PDF documents known to the document intelligence service."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Keyword search over processed documents, ranked by term frequency."),
			mcp.WithString("query", mcp.Description("Search terms"), mcp.Required()),
			mcp.WithString("category", mcp.Description("Optional category filter, case-insensitive")),
		),
		searchDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("semantic_search",
			mcp.WithDescription("Embedding-based search. Falls back to keyword search when the semantic service is down."),
			mcp.WithString("query", mcp.Description("Natural language query"), mcp.Required()),
			mcp.WithNumber("top_k", mcp.Description("Maximum number of results (default 5)")),
		),
		semanticSearch(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_question",
			mcp.WithDescription("Answer a question with sentences from one document."),
			mcp.WithString("question", mcp.Description("The question"), mcp.Required()),
			mcp.WithString("doc_id", mcp.Description("1-based document number; omit to pick the best match")),
		),
		askQuestion(deps),
	)

	s.AddTool(
		mcp.NewTool("classify_text",
			mcp.WithDescription("Score text against Finance, HR, Legal, Contracts, Tech and Other."),
			mcp.WithString("text", mcp.Description("Text to classify"), mcp.Required()),
		),
		classifyText(deps),
	)

	s.AddTool(
		mcp.NewTool("summarize_text",
			mcp.WithDescription("Summarize text in a few sentences."),
			mcp.WithString("text", mcp.Description("Text to summarize"), mcp.Required()),
		),
		summarizeText(deps),
	)

	return s
}

func searchDocuments(deps Deps) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return toolError("query is required"), nil
		}
		results := deps.Search.Search(query, domain.SearchFilter{Category: req.GetString("category", "")})
		return toolJSON(orEmpty(results))
	}
}

func semanticSearch(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return toolError("query is required"), nil
		}
		topK := req.GetInt("top_k", defaultTopK)
		if topK <= 0 {
			topK = defaultTopK
		}
		return toolJSON(orEmpty(deps.Search.SemanticSearch(ctx, query, topK)))
	}
}

func askQuestion(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return toolError("question is required"), nil
		}
		resp, err := deps.QA.Ask(ctx, question, req.GetString("doc_id", ""))
		if err != nil {
			return toolError(fmt.Sprintf("ask failed: %v", err)), nil
		}
		return toolJSON(resp)
	}
}

func classifyText(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return toolError("text is required"), nil
		}
		return toolJSON(deps.Classifier.Classify(ctx, text))
	}
}

func summarizeText(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return toolError("text is required"), nil
		}
		return toolText(deps.Summarizer.Summarize(ctx, text)), nil
	}
}

func orEmpty(results []domain.SearchResult) []domain.SearchResult {
	if results == nil {
		return []domain.SearchResult{}
	}
	return results
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return toolText(string(data)), nil
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
