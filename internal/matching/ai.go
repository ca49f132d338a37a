package matching

import (
	"context"

	"matchbook/internal/models"
)

// maxAICandidates bounds how many scored candidates are shared with the AI
// collaborator per transaction.
const maxAICandidates = 5

// AIAlternative is a secondary match proposed by the AI collaborator.
type AIAlternative struct {
	InvoiceID  string  `json:"invoice_id"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// AIMatch is the AI collaborator's answer for a single transaction.
type AIMatch struct {
	InvoiceID    string          `json:"best_match_invoice_id"`
	Confidence   float64         `json:"confidence"`
	Reasoning    string          `json:"reasoning"`
	Alternatives []AIAlternative `json:"alternative_matches,omitempty"`
}

// Classifier is the external AI collaborator consumed by the engine. An
// implementation receives the transaction and the top scored candidates with
// their heuristic reasons, and returns its best match or an error. Errors are
// treated as "no answer": the engine degrades to the no-match outcome and
// never aborts a batch on a classifier failure.
type Classifier interface {
	SuggestMatch(ctx context.Context, txn *models.Transaction, candidates []ScoredCandidate) (*AIMatch, error)
}
