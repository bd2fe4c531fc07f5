package mcpapi

import (
	"context"
	"fmt"

	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// registerColumnTools registers the read-only column configuration tool.
func registerColumnTools(srv *mcpserver.MCPServer, columns BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"mailkan.columns",
			mcp.WithDescription("List configured board columns and, optionally, the Gmail labels they can map to."),
			mcp.WithBoolean("include_labels", mcp.Description("Also return available Gmail labels")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			cols, err := columns.ListColumns(ctx)
			if err != nil {
				return toolResultFromError(err), nil
			}
			out := columnsView{Columns: make([]columnView, 0, len(cols))}
			for _, c := range cols {
				out.Columns = append(out.Columns, columnView{
					ID:         c.ID,
					Key:        c.Key,
					Label:      c.Label,
					Order:      c.Order,
					GmailLabel: c.GmailLabel,
					Color:      string(c.Color),
					IsDefault:  c.IsDefault,
				})
			}
			if req.GetBool("include_labels", false) {
				labels, err := columns.ListGmailLabels(ctx)
				if err != nil {
					return toolResultFromError(err), nil
				}
				out.Labels = make([]labelView, 0, len(labels))
				for _, l := range labels {
					out.Labels = append(out.Labels, labelView{ID: l.ID, Name: l.Name, Type: l.Type})
				}
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode columns result: %w", err)
			}
			return result, nil
		},
	)
}

// registerInsightTools registers semantic search and statistics tools.
func registerInsightTools(srv *mcpserver.MCPServer, insights InsightService) {
	srv.AddTool(
		mcp.NewTool(
			"mailkan.semantic_search",
			mcp.WithDescription("Search mail by meaning and return scored matches."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Natural language query")),
			mcp.WithNumber("limit", mcp.Description("Maximum results")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			query, err := req.RequireString("query")
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			page, err := insights.SemanticSearch(ctx, query, req.GetInt("limit", 0))
			if err != nil {
				return toolResultFromError(err), nil
			}
			out := searchView{Query: page.Query, Total: page.Total, Results: make([]searchHitView, 0, len(page.Results))}
			if out.Query == "" {
				out.Query = query
			}
			for _, r := range page.Results {
				out.Results = append(out.Results, searchHitView{
					EmailID:    r.Email.ID,
					From:       r.Email.From.String(),
					Subject:    r.Email.Subject,
					Preview:    r.Email.Preview,
					ReceivedAt: r.Email.ReceivedAt.UTC(),
					Score:      r.Score,
					Percent:    r.ScorePercent(),
				})
			}
			result, err := mcp.NewToolResultJSON(out)
			if err != nil {
				return nil, fmt.Errorf("encode semantic_search result: %w", err)
			}
			return result, nil
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"mailkan.statistics",
			mcp.WithDescription("Return the mail dashboard for a window."),
			mcp.WithString("period", mcp.Description("Statistics window"), mcp.Enum(periodNames()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			period, err := domain.ParsePeriod(req.GetString("period", ""))
			if err != nil {
				return toolResultFromError(err), nil
			}
			stats, err := insights.Statistics(ctx, period)
			if err != nil {
				return toolResultFromError(err), nil
			}
			result, err := mcp.NewToolResultJSON(statisticsViewFrom(stats))
			if err != nil {
				return nil, fmt.Errorf("encode statistics result: %w", err)
			}
			return result, nil
		},
	)
}

func periodNames() []string {
	periods := domain.Periods()
	out := make([]string, 0, len(periods))
	for _, p := range periods {
		out = append(out, string(p))
	}
	return out
}
