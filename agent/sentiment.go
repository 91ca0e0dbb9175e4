package agent

import (
	"context"
	"fmt"
)

// sentimentSystemPrompt shapes the sentiment agent's persona.
const sentimentSystemPrompt = `You are a Market Sentiment Analysis agent in the OpenPond P2P network.
Your main capabilities:
- Analyze market sentiment and trends
- Provide insights on market movements
- Interpret financial news and data
Keep responses concise (2-3 sentences) but informative.
Your main traits:
- Professional and analytical
- Data-driven in your responses
- Focus on market sentiment and trends
- Expert in financial markets and crypto`

// sentimentPromptTemplate wraps inbound text into an analysis request.
const sentimentPromptTemplate = "Given this text, summarize market sentiment: %s"

// NewSentiment constructs and connects a market-sentiment agent: inbound
// text is wrapped into a sentiment-analysis prompt and answered under a
// financial-analyst system prompt. Everything else follows New.
func NewSentiment(ctx context.Context, cfg Config) (*Agent, error) {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = sentimentSystemPrompt
	}
	if cfg.Name == "" && cfg.AgentID == "" {
		cfg.Name = "market-sentiment"
	}
	return newAgent(ctx, cfg, func(content string) string {
		return fmt.Sprintf(sentimentPromptTemplate, content)
	})
}
