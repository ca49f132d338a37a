package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"matchbook/internal/models"
)

func date(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func TestAmountScore(t *testing.T) {
	cases := []struct {
		name     string
		txn      string
		invoice  string
		expected int
	}{
		{"exact", "100", "100", 90},
		{"within_0.1_pct", "100", "100.05", 90},
		{"within_1_pct", "100", "101", 40},
		{"within_5_pct", "100", "104", 20},
		{"over_5_pct", "100", "110", 0},
		{"negative_txn_abs_compared", "-1000", "1000", 90},
		{"both_zero", "0", "0", 90},
		{"zero_invoice_nonzero_txn", "50", "0", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			txn := decimal.RequireFromString(tc.txn)
			inv := decimal.RequireFromString(tc.invoice)
			if got := AmountScore(txn, inv); got != tc.expected {
				t.Errorf("AmountScore(%s, %s) = %d, expected %d", tc.txn, tc.invoice, got, tc.expected)
			}
		})
	}
}

func TestDateScore(t *testing.T) {
	t.Run("txn_before_invoice_scores_zero", func(t *testing.T) {
		if got := DateScore(date(2024, time.January, 1), date(2024, time.January, 5)); got != 0 {
			t.Errorf("expected 0 for transaction preceding invoice, got %d", got)
		}
	})

	t.Run("missing_dates_score_zero", func(t *testing.T) {
		if got := DateScore(nil, date(2024, time.January, 5)); got != 0 {
			t.Errorf("expected 0 for missing transaction date, got %d", got)
		}
		if got := DateScore(date(2024, time.January, 5), nil); got != 0 {
			t.Errorf("expected 0 for missing invoice date, got %d", got)
		}
	})

	t.Run("day_bands", func(t *testing.T) {
		inv := date(2024, time.March, 1)
		cases := []struct {
			txn      *time.Time
			expected int
		}{
			{date(2024, time.March, 1), 5},
			{date(2024, time.March, 8), 5},
			{date(2024, time.March, 20), 3},
			{date(2024, time.April, 20), 2},
			{date(2024, time.June, 1), 0},
		}
		for _, tc := range cases {
			if got := DateScore(tc.txn, inv); got != tc.expected {
				t.Errorf("DateScore(%v) = %d, expected %d", tc.txn, got, tc.expected)
			}
		}
	})
}

func TestSupplierScore(t *testing.T) {
	cases := []struct {
		name     string
		txn      string
		invoice  string
		expected int
	}{
		{"exact", "Meta", "Meta", 5},
		{"case_and_space_insensitive", "  meta ", "META", 5},
		{"similar", "Meta Platforms", "Meta Platform", 2},
		{"different", "Meta", "Google", 0},
		{"empty_txn_supplier", "", "Meta", 0},
		{"empty_invoice_supplier", "Meta", "", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SupplierScore(tc.txn, tc.invoice); got != tc.expected {
				t.Errorf("SupplierScore(%q, %q) = %d, expected %d", tc.txn, tc.invoice, got, tc.expected)
			}
		})
	}
}

func TestScoreCandidates(t *testing.T) {
	txn := &models.Transaction{
		TransactionDate: date(2024, time.March, 10),
		MatchedSupplier: strPtr("Meta"),
		Amount:          decimal.NewFromInt(-1000),
		Currency:        "RON",
	}

	perfect := models.Invoice{
		Supplier:     "Meta",
		InvoiceDate:  date(2024, time.March, 5),
		InvoiceValue: decimal.NewFromInt(1000),
		Currency:     "RON",
	}
	perfect.ID = "inv-perfect"

	amountOnly := models.Invoice{
		Supplier:     "Google",
		InvoiceDate:  date(2024, time.March, 20),
		InvoiceValue: decimal.NewFromInt(1000),
		Currency:     "RON",
	}
	amountOnly.ID = "inv-amount-only"

	unrelated := models.Invoice{
		Supplier:     "Amazon",
		InvoiceDate:  date(2024, time.March, 20),
		InvoiceValue: decimal.NewFromInt(77777),
		Currency:     "RON",
	}
	unrelated.ID = "inv-unrelated"

	scored := ScoreCandidates(txn, []models.Invoice{unrelated, amountOnly, perfect})

	if len(scored) != 2 {
		t.Fatalf("expected 2 scored candidates (zero scores dropped), got %d", len(scored))
	}
	if scored[0].Invoice.ID != "inv-perfect" {
		t.Errorf("expected perfect candidate first, got %s", scored[0].Invoice.ID)
	}
	if scored[0].Total != 100 {
		t.Errorf("expected total 100 for perfect candidate, got %d", scored[0].Total)
	}
	if scored[0].Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %v", scored[0].Confidence)
	}
	if scored[1].Invoice.ID != "inv-amount-only" {
		t.Errorf("expected amount-only candidate second, got %s", scored[1].Invoice.ID)
	}
	if len(scored[0].Reasons) == 0 {
		t.Error("expected reasons on scored candidate")
	}
}

func TestScoreCandidatesStableTies(t *testing.T) {
	txn := &models.Transaction{
		Amount:   decimal.NewFromInt(500),
		Currency: "RON",
	}

	first := models.Invoice{Supplier: "A", InvoiceValue: decimal.NewFromInt(500), Currency: "RON"}
	first.ID = "inv-first"
	second := models.Invoice{Supplier: "B", InvoiceValue: decimal.NewFromInt(500), Currency: "RON"}
	second.ID = "inv-second"

	scored := ScoreCandidates(txn, []models.Invoice{first, second})
	if len(scored) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(scored))
	}
	if scored[0].Invoice.ID != "inv-first" || scored[1].Invoice.ID != "inv-second" {
		t.Errorf("tie broken out of input order: %s, %s", scored[0].Invoice.ID, scored[1].Invoice.ID)
	}
}

func strPtr(s string) *string { return &s }
