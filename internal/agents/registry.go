package agents

// DefaultAgents returns the four analyst agents.
func DefaultAgents() []Agent {
	return []Agent{
		NewTechnicalAgent(),
		NewFundamentalAgent(),
		NewSentimentAgent(),
		NewValuationAgent(),
	}
}
