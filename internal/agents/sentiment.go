package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/Syair/Free-US-Investment-Agent-System/internal/models"
)

const sentimentBand = 0.2

var positiveWords = []string{
	"beat", "beats", "surge", "surges", "rally", "record", "upgrade",
	"growth", "profit", "gain", "gains", "strong", "buyback", "outperform",
	"expands", "dividend", "breakthrough",
}

var negativeWords = []string{
	"miss", "misses", "fall", "falls", "plunge", "plunges", "downgrade",
	"loss", "losses", "weak", "lawsuit", "recall", "fraud", "layoff",
	"layoffs", "decline", "investigation", "bankruptcy", "warns",
}

// SentimentAgent scores the ticker from recent news polarity, weighting
// newer items more heavily. No news is a neutral observation, not a failure.
type SentimentAgent struct {
	BaseAgent
}

// NewSentimentAgent creates a new sentiment analysis agent.
func NewSentimentAgent() *SentimentAgent {
	return &SentimentAgent{BaseAgent: NewBaseAgent(models.AgentSentiment)}
}

// Evaluate implements Agent.
func (a *SentimentAgent) Evaluate(ctx context.Context, req Request) (*models.AnalystSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if len(req.News) == 0 {
		signal := a.NewSignal(req, models.DecisionHold, 0.5, "no recent news to score")
		signal.Metrics["news_count"] = 0
		signal.Metrics["sentiment_score"] = 0
		return signal, nil
	}

	// News is newest first; decay the weight of older items.
	var weightedSum, totalWeight float64
	for i, item := range req.News {
		weight := 1.0 / float64(i+1)
		weightedSum += polarity(item) * weight
		totalWeight += weight
	}
	score := weightedSum / totalWeight

	decision := scoreToDecision(score, sentimentBand)
	signal := a.NewSignal(req, decision, directionalConfidence(score, sentimentBand),
		fmt.Sprintf("weighted sentiment %.2f over %d articles", score, len(req.News)))

	signal.Metrics["news_count"] = float64(len(req.News))
	signal.Metrics["sentiment_score"] = score

	return signal, nil
}

// polarity scores one news item in [-1, 1] from keyword counts in its
// headline and body.
func polarity(item models.NewsItem) float64 {
	text := strings.ToLower(item.Headline + " " + item.Body)

	var pos, neg int
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}

	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}
