package grading

import (
	"context"
	"fmt"

	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/session"
)

// Router sends constructed-response items to the LLM evaluator and
// everything else to the answer key. Without an LLM evaluator,
// constructed items with a key are compared as text.
type Router struct {
	key KeyEvaluator
	llm *LLMEvaluator
}

var _ session.Evaluator = (*Router)(nil)

// NewRouter returns a router; llmEval may be nil.
func NewRouter(llmEval *LLMEvaluator) *Router {
	return &Router{llm: llmEval}
}

func (r *Router) Evaluate(ctx context.Context, it itembank.Item, raw string) (bool, error) {
	if it.Format == itembank.FormatConstructed {
		switch {
		case r.llm != nil:
			return r.llm.Evaluate(ctx, it, raw)
		case it.Answer == "":
			return false, fmt.Errorf("item %q needs an LLM grader: no answer key", it.ID)
		}
	}
	return r.key.Evaluate(ctx, it, raw)
}
