package llm

// Price is USD per million tokens.
type Price struct {
	Input  float64
	Output float64
}

// Cost returns the USD cost of a token count.
func (p Price) Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*p.Input + float64(outputTokens)*p.Output) / 1e6
}

// prices covers the models the aliases above resolve to plus the
// OpenAI defaults. Unknown models have no estimate.
var prices = map[string]Price{
	"claude-haiku-4-5-20251001":   {1, 5},
	"claude-sonnet-4-20250514":    {3, 15},
	"gpt-4o":                      {2.5, 10},
	"gpt-4o-mini":                 {0.15, 0.6},
	"gemini-2.0-flash":            {0.1, 0.4},
	"gemini-2.0-pro":              {1.25, 10},
	"google/gemini-2.0-flash-001": {0.1, 0.4},
}

// LookupPrice returns the price of a model id or alias.
func LookupPrice(model string) (Price, bool) {
	for _, aliases := range []map[string]string{anthropicAliases, geminiAliases} {
		model = resolveModel(model, aliases)
	}
	p, ok := prices[model]
	return p, ok
}
