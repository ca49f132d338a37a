package matching

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"matchbook/internal/models"
)

// Score weights. Amount dominates: an exact amount match alone is enough to
// clear the auto-accept threshold, date and supplier act as tie-breakers.
const (
	amountScoreExact = 90
	amountScoreClose = 40
	amountScoreNear  = 20

	dateScoreWeek    = 5
	dateScoreMonth   = 3
	dateScoreQuarter = 2

	supplierScoreExact   = 5
	supplierScoreSimilar = 2

	maxTotalScore = amountScoreExact + dateScoreWeek + supplierScoreExact
)

const supplierSimilarityFloor = 0.8

var (
	amountDiffPctExact = decimal.NewFromFloat(0.1)
	amountDiffPctClose = decimal.NewFromInt(1)
	amountDiffPctNear  = decimal.NewFromInt(5)
	hundred            = decimal.NewFromInt(100)
)

// ScoredCandidate is an invoice candidate annotated with its per-dimension
// scores against a transaction.
type ScoredCandidate struct {
	Invoice       models.Invoice
	AmountScore   int
	DateScore     int
	SupplierScore int
	Total         int
	Confidence    float64
	Reasons       []string
}

// AmountScore compares a transaction amount against an invoice value. Both
// sides are compared by absolute value since statement amounts are signed.
func AmountScore(txnAmount, invoiceValue decimal.Decimal) int {
	txnAbs := txnAmount.Abs()
	invAbs := invoiceValue.Abs()

	if invAbs.IsZero() {
		if txnAbs.IsZero() {
			return amountScoreExact
		}
		return 0
	}

	diffPct := txnAbs.Sub(invAbs).Abs().Div(invAbs).Mul(hundred)
	switch {
	case diffPct.Cmp(amountDiffPctExact) <= 0:
		return amountScoreExact
	case diffPct.Cmp(amountDiffPctClose) <= 0:
		return amountScoreClose
	case diffPct.Cmp(amountDiffPctNear) <= 0:
		return amountScoreNear
	default:
		return 0
	}
}

// DateScore rewards transactions that settle shortly after the invoice date.
// A transaction dated before its invoice scores zero regardless of proximity.
func DateScore(txnDate, invoiceDate *time.Time) int {
	if txnDate == nil || invoiceDate == nil {
		return 0
	}
	if txnDate.Before(*invoiceDate) {
		return 0
	}

	diffDays := int(txnDate.Sub(*invoiceDate).Hours() / 24)
	switch {
	case diffDays <= 7:
		return dateScoreWeek
	case diffDays <= 30:
		return dateScoreMonth
	case diffDays <= 60:
		return dateScoreQuarter
	default:
		return 0
	}
}

// SupplierScore compares supplier names: exact (case- and whitespace-
// insensitive) equality scores highest, otherwise a Levenshtein similarity
// ratio above the floor still earns partial credit.
func SupplierScore(txnSupplier, invoiceSupplier string) int {
	a := strings.ToLower(strings.TrimSpace(txnSupplier))
	b := strings.ToLower(strings.TrimSpace(invoiceSupplier))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return supplierScoreExact
	}
	ratio := levenshtein.RatioForStrings([]rune(a), []rune(b), levenshtein.DefaultOptions)
	if ratio >= supplierSimilarityFloor {
		return supplierScoreSimilar
	}
	return 0
}

// ScoreCandidate computes all dimension scores for a single candidate.
func ScoreCandidate(txn *models.Transaction, invoice models.Invoice) ScoredCandidate {
	sc := ScoredCandidate{Invoice: invoice}

	sc.AmountScore = AmountScore(txn.Amount, invoice.ValueIn(txn.Currency))
	if sc.AmountScore > 0 {
		sc.Reasons = append(sc.Reasons, fmt.Sprintf("amount %s vs invoice %s (+%d)",
			txn.Amount.Abs().String(), invoice.ValueIn(txn.Currency).Abs().String(), sc.AmountScore))
	}

	sc.DateScore = DateScore(txn.TransactionDate, invoice.InvoiceDate)
	if sc.DateScore > 0 {
		sc.Reasons = append(sc.Reasons, fmt.Sprintf("transaction settles after invoice date (+%d)", sc.DateScore))
	}

	sc.SupplierScore = SupplierScore(txn.EffectiveSupplier(), invoice.Supplier)
	if sc.SupplierScore > 0 {
		sc.Reasons = append(sc.Reasons, fmt.Sprintf("supplier %q matches %q (+%d)",
			txn.EffectiveSupplier(), invoice.Supplier, sc.SupplierScore))
	}

	sc.Total = sc.AmountScore + sc.DateScore + sc.SupplierScore
	sc.Confidence = float64(sc.Total) / float64(maxTotalScore)
	return sc
}

// ScoreCandidates scores every candidate against the transaction, drops
// zero-score candidates, and returns the rest sorted by descending total.
// The sort is stable so ties keep their input order.
func ScoreCandidates(txn *models.Transaction, candidates []models.Invoice) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(candidates))
	for _, inv := range candidates {
		sc := ScoreCandidate(txn, inv)
		if sc.Total > 0 {
			scored = append(scored, sc)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Total > scored[j].Total
	})
	return scored
}
