package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the collection-status MCP prompt.
// It instructs the AI to read and present the state of the collection.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("collection-status",
		mcp.WithPromptDescription(
			"Check the state of the spider collection: feeding status counts, "+
				"who needs food, recent molts and totals.",
		),
	)
}

// Handle processes the collection-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{
		Description: "Spider collection status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(
					"Please run `spider_overview` and `spider_stats` to check my collection.\n\n" +
						"Then:\n" +
						"1. Show the hungry / feed today / not hungry counts in a clear, visual format\n" +
						"2. List the spiders that need food, hungry ones first\n" +
						"3. Point out spiders with no feeding data so I can fill them in\n" +
						"4. Tell me which of my favourites are due",
				),
			},
		},
	}, nil
}
