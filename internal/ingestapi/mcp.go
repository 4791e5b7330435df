package ingestapi

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"brag/internal/ingestkernel/search"
)

// mcpInstructions mirrors server/constants.py's MCP_INSTRUCTIONS: a short
// primer telling the calling model when to reach for search vs. deep_search.
const mcpInstructions = `This MCP server is called "Brag".
The main tools are search, most_relevant_files and deep_search.

search: searches for information in data sources to better answer questions
using factual information and avoid hallucinations.

most_relevant_files: finds the most relevant files for a query. Use this to
find relevant sources, then pass them to deep_search for richer results.

deep_search: searches across the given sources for a query and returns
significantly more relevant results. Call most_relevant_files first to pick
sources.

Results are ranked by distance; the lower the distance, the more relevant
the result. Cite the search results used to answer the prompt.`

type searchArgs struct {
	Query  string `json:"query" jsonschema:"the search query"`
	Offset int    `json:"offset,omitempty" jsonschema:"number of results to skip, for pagination"`
}

type mostRelevantFilesArgs struct {
	Query string `json:"query" jsonschema:"the search query"`
}

type deepSearchArgs struct {
	Query   string   `json:"query" jsonschema:"the search query"`
	Sources []string `json:"sources" jsonschema:"the list of sources to search in"`
}

type searchResultItem struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

type relevantSourceItem struct {
	Source      string  `json:"source"`
	MinDistance float64 `json:"min_distance"`
	AvgDistance float64 `json:"avg_distance"`
	Count       int     `json:"count"`
}

// NewMCPServer builds an MCP server exposing the search, most_relevant_files,
// and deep_search tools over engine, mirroring server/api/tools.py's TOOLS
// list.
func NewMCPServer(engine *search.Engine) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "brag", Version: "1.0.0"}, &mcp.ServerOptions{
		Instructions: mcpInstructions,
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: "search",
		Description: "Search for relevant content across all processed files based on a query. " +
			"The tool can be used iteratively to get more results by paginating with offset.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args searchArgs) (*mcp.CallToolResult, any, error) {
		results, err := engine.Search(ctx, args.Query, nil, search.ResultLimit, args.Offset)
		if err != nil {
			return nil, nil, err
		}
		return nil, toolSearchResponse(args.Query, results), nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: "most_relevant_files",
		Description: "Get the most relevant files for a query. Use this to find relevant sources, " +
			"then pass them to deep_search for more enhanced results.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args mostRelevantFilesArgs) (*mcp.CallToolResult, any, error) {
		collections, err := engine.MostRelevantSources(ctx, args.Query, nil, search.ResultLimit)
		if err != nil {
			return nil, nil, err
		}
		out := make([]relevantSourceItem, 0, len(collections))
		for _, c := range collections {
			out = append(out, relevantSourceItem{
				Source:      c.Source,
				MinDistance: c.MinDistance,
				AvgDistance: c.AvgDistance,
				Count:       c.Count,
			})
		}
		return nil, map[string]any{"status": "success", "most_relevant_sources": out}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: "deep_search",
		Description: "Search for relevant content across the given sources based on a query and get " +
			"significantly more relevant results. Call most_relevant_files first to pick sources.",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args deepSearchArgs) (*mcp.CallToolResult, any, error) {
		results, err := engine.DeepSearch(ctx, args.Query, args.Sources)
		if err != nil {
			return nil, nil, err
		}
		return nil, toolSearchResponse(args.Query, results), nil
	})

	return server
}

func toolSearchResponse(query string, results []search.Result) map[string]any {
	items := make([]searchResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, searchResultItem{Text: r.Text, Source: r.Source})
	}
	return map[string]any{
		"status":        "success",
		"query":         query,
		"results_count": len(items),
		"results":       items,
	}
}
