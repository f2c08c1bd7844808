// Package prompts implements MCP prompt handlers for the spider collection.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which
// the AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// FeedingRoundPrompt handles the feeding-round MCP prompt.
// It walks the AI through feeding every spider that is due.
type FeedingRoundPrompt struct{}

// NewFeedingRoundPrompt creates a FeedingRoundPrompt.
func NewFeedingRoundPrompt() *FeedingRoundPrompt {
	return &FeedingRoundPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *FeedingRoundPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("feeding-round",
		mcp.WithPromptDescription(
			"Go through every spider that is hungry or due today, "+
				"confirm which ones were fed and record the feedings.",
		),
		mcp.WithArgument("date",
			mcp.ArgumentDescription("Date of the feeding round, yyyy-MM-dd or dd-MM-yyyy. Default: today"),
		),
		mcp.WithArgument("species",
			mcp.ArgumentDescription("Only feed spiders of this species"),
		),
	)
}

// Handle processes the feeding-round prompt request.
func (p *FeedingRoundPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	date := "today"
	var species string
	if args := req.Params.Arguments; args != nil {
		if d := strings.TrimSpace(args["date"]); d != "" {
			date = d
		}
		species = strings.TrimSpace(args["species"])
	}

	scope := "all spiders"
	listCall := "`spider_list` with status=HUNGRY, then again with status=FEED_TODAY"
	if species != "" {
		scope = fmt.Sprintf("my %s spiders", species)
		listCall = fmt.Sprintf("`spider_list` with species='%s' and status=HUNGRY, then with status=FEED_TODAY", species)
	}

	dateArg := ""
	if date != "today" {
		dateArg = fmt.Sprintf(" with date='%s'", date)
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Feeding round for %s (%s)", scope, date),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I'm doing a feeding round for %s (%s).\n\n"+
						"Please:\n"+
						"1. Run `spider_overview` to see how many spiders need food\n"+
						"2. Run %s\n"+
						"3. Show me the list, hungry spiders first, with when each was last fed\n"+
						"4. For every spider I confirm, run `spider_feed`%s\n"+
						"5. Skip spiders that are in premolt if I tell you they refused food\n"+
						"6. Finish with `spider_overview` again so I can see what is left",
					scope, date, listCall, dateArg,
				)),
			},
		},
	}, nil
}
