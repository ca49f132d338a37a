package matching

import (
	"context"

	"matchbook/internal/logger"
	"matchbook/internal/models"
)

// Config holds the decision thresholds for the matching engine. It is
// immutable once passed to NewEngine so multiple engines with different
// configurations can run side by side.
type Config struct {
	// AutoAcceptThreshold is the confidence at or above which a match is
	// linked directly without human review.
	AutoAcceptThreshold float64
	// SuggestionThreshold is the confidence at or above which a match is
	// stored as a suggestion for review.
	SuggestionThreshold float64
}

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		AutoAcceptThreshold: 0.9,
		SuggestionThreshold: 0.5,
	}
}

// Decision is the outcome of matching one transaction. Exactly one of
// InvoiceID (a confirmed link) or SuggestedInvoiceID (a candidate awaiting
// review) may be set; both nil means no match was found.
type Decision struct {
	TransactionID      string              `json:"transaction_id"`
	InvoiceID          *string             `json:"invoice_id,omitempty"`
	SuggestedInvoiceID *string             `json:"suggested_invoice_id,omitempty"`
	Confidence         float64             `json:"confidence"`
	Method             *models.MatchMethod `json:"method,omitempty"`
	AutoAccepted       bool                `json:"auto_accepted"`
	Reasons            []string            `json:"reasons"`
}

// BatchResult aggregates the outcome of matching a batch of transactions.
type BatchResult struct {
	Matched   int        `json:"matched"`
	Suggested int        `json:"suggested"`
	Unmatched int        `json:"unmatched"`
	Decisions []Decision `json:"decisions"`
}

// Engine scores transactions against invoice candidates and produces match
// decisions through three layers: a rule layer, a heuristic layer, and an
// optional AI layer. Scoring is pure, so an Engine is safe for concurrent use.
type Engine struct {
	cfg        Config
	classifier Classifier
}

// NewEngine creates a matching engine. classifier may be nil, in which case
// the AI layer is skipped even when requested.
func NewEngine(cfg Config, classifier Classifier) *Engine {
	return &Engine{cfg: cfg, classifier: classifier}
}

const noMatchReason = "No confident match found"

// Match scores the transaction against the supplied candidates and returns a
// decision. The layers are evaluated in order and short-circuit on the first
// applicable outcome.
func (e *Engine) Match(ctx context.Context, txn *models.Transaction, candidates []models.Invoice, useAI bool) Decision {
	scored := ScoreCandidates(txn, candidates)

	// Layer 1: rule. An exact-amount candidate that also settles after the
	// invoice date with a known supplier is linked directly.
	for _, sc := range scored {
		if sc.AmountScore >= amountScoreExact && sc.DateScore > 0 && sc.SupplierScore >= supplierScoreExact {
			if sc.Confidence >= e.cfg.AutoAcceptThreshold {
				return e.accepted(txn, sc, models.MethodRule)
			}
			break
		}
	}

	// Layer 2: heuristic. The best-scored candidate overall.
	if len(scored) > 0 {
		best := scored[0]
		if best.Confidence >= e.cfg.AutoAcceptThreshold {
			return e.accepted(txn, best, models.MethodHeuristic)
		}
		if best.Confidence >= e.cfg.SuggestionThreshold {
			method := models.MethodHeuristic
			return Decision{
				TransactionID:      txn.ID,
				SuggestedInvoiceID: &best.Invoice.ID,
				Confidence:         best.Confidence,
				Method:             &method,
				Reasons:            best.Reasons,
			}
		}
	}

	// Layer 3: AI, consulted only when the heuristics came up empty and
	// there is at least one scored candidate to reason about.
	if useAI && e.classifier != nil && len(scored) > 0 {
		if d, ok := e.matchWithAI(ctx, txn, scored); ok {
			return d
		}
	}

	// Layer 4: no confident match. The best candidate, if any, is still
	// recorded as a weak suggestion for the reviewer.
	d := Decision{
		TransactionID: txn.ID,
		Reasons:       []string{noMatchReason},
	}
	if len(scored) > 0 {
		d.SuggestedInvoiceID = &scored[0].Invoice.ID
		d.Confidence = scored[0].Confidence
	}
	return d
}

func (e *Engine) accepted(txn *models.Transaction, sc ScoredCandidate, method models.MatchMethod) Decision {
	return Decision{
		TransactionID: txn.ID,
		InvoiceID:     &sc.Invoice.ID,
		Confidence:    sc.Confidence,
		Method:        &method,
		AutoAccepted:  true,
		Reasons:       sc.Reasons,
	}
}

// matchWithAI delegates to the classifier with the top scored candidates. Any
// failure, or an answer naming an invoice outside the candidate set, counts
// as no answer.
func (e *Engine) matchWithAI(ctx context.Context, txn *models.Transaction, scored []ScoredCandidate) (Decision, bool) {
	top := scored
	if len(top) > maxAICandidates {
		top = top[:maxAICandidates]
	}

	answer, err := e.classifier.SuggestMatch(ctx, txn, top)
	if err != nil {
		logger.Get().Warnw("ai classifier failed, degrading to no match",
			"transaction_id", txn.ID,
			"error", err,
		)
		return Decision{}, false
	}
	if answer == nil || answer.InvoiceID == "" {
		return Decision{}, false
	}

	known := false
	for _, sc := range top {
		if sc.Invoice.ID == answer.InvoiceID {
			known = true
			break
		}
	}
	if !known {
		logger.Get().Warnw("ai classifier proposed unknown invoice",
			"transaction_id", txn.ID,
			"invoice_id", answer.InvoiceID,
		)
		return Decision{}, false
	}

	method := models.MethodAI
	reasons := []string{answer.Reasoning}
	if answer.Confidence >= e.cfg.AutoAcceptThreshold {
		return Decision{
			TransactionID: txn.ID,
			InvoiceID:     &answer.InvoiceID,
			Confidence:    answer.Confidence,
			Method:        &method,
			AutoAccepted:  true,
			Reasons:       reasons,
		}, true
	}
	if answer.Confidence >= e.cfg.SuggestionThreshold {
		return Decision{
			TransactionID:      txn.ID,
			SuggestedInvoiceID: &answer.InvoiceID,
			Confidence:         answer.Confidence,
			Method:             &method,
			Reasons:            reasons,
		}, true
	}
	return Decision{}, false
}

// MatchAll runs Match over a batch, skipping transactions that are already
// resolved or ignored. Suggestions below minConfidence are demoted to the
// no-match outcome. Auto-accepted links are never demoted.
func (e *Engine) MatchAll(ctx context.Context, txns []models.Transaction, candidates []models.Invoice, useAI bool, minConfidence float64) BatchResult {
	result := BatchResult{Decisions: make([]Decision, 0, len(txns))}

	for i := range txns {
		txn := &txns[i]
		if txn.Status == models.StatusResolved || txn.Status == models.StatusIgnored {
			continue
		}

		d := e.Match(ctx, txn, candidates, useAI)
		if !d.AutoAccepted && d.Method != nil && d.Confidence < minConfidence {
			d = Decision{TransactionID: txn.ID, Reasons: []string{noMatchReason}}
		}

		switch {
		case d.AutoAccepted:
			result.Matched++
		case d.Method != nil && d.SuggestedInvoiceID != nil:
			result.Suggested++
		default:
			result.Unmatched++
		}
		result.Decisions = append(result.Decisions, d)
	}

	return result
}
