package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"matchbook/internal/models"
)

// GeminiClassifier implements Classifier against the Gemini API. It sends the
// transaction and the top scored candidates as JSON and expects a strict JSON
// answer back. It never holds a storage transaction open: callers read the
// transaction and candidates first and write the decision afterwards.
type GeminiClassifier struct {
	apiKey  string
	model   string
	timeout time.Duration
}

// NewGeminiClassifier creates a Gemini-backed classifier. An empty API key is
// an error so a misconfigured deployment fails fast instead of on first use.
func NewGeminiClassifier(apiKey, model string, timeout time.Duration) (*GeminiClassifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini classifier: missing API key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &GeminiClassifier{apiKey: apiKey, model: model, timeout: timeout}, nil
}

type aiTransactionPayload struct {
	Date        *time.Time `json:"date,omitempty"`
	Amount      string     `json:"amount"`
	Currency    string     `json:"currency"`
	Description string     `json:"description,omitempty"`
	VendorName  string     `json:"vendor_name,omitempty"`
	Supplier    string     `json:"supplier,omitempty"`
}

type aiCandidatePayload struct {
	InvoiceID      string     `json:"invoice_id"`
	InvoiceNumber  string     `json:"invoice_number"`
	Supplier       string     `json:"supplier"`
	Amount         string     `json:"amount"`
	Currency       string     `json:"currency"`
	InvoiceDate    *time.Time `json:"invoice_date,omitempty"`
	HeuristicScore int        `json:"heuristic_score"`
	Reasons        []string   `json:"reasons,omitempty"`
}

// SuggestMatch asks Gemini to pick the best invoice for the transaction.
func (c *GeminiClassifier) SuggestMatch(ctx context.Context, txn *models.Transaction, candidates []ScoredCandidate) (*AIMatch, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt, err := c.buildPrompt(txn, candidates)
	if err != nil {
		return nil, fmt.Errorf("gemini classifier: building prompt: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      c.apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini classifier: create client: %w", err)
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini classifier: generate content: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("gemini classifier: empty response from model")
	}

	var answer AIMatch
	if err := json.Unmarshal([]byte(cleanModelJSON(rawText)), &answer); err != nil {
		return nil, fmt.Errorf("gemini classifier: unmarshal response: %w", err)
	}
	if answer.Confidence < 0 || answer.Confidence > 1 {
		return nil, fmt.Errorf("gemini classifier: confidence %v out of range", answer.Confidence)
	}
	return &answer, nil
}

func (c *GeminiClassifier) buildPrompt(txn *models.Transaction, candidates []ScoredCandidate) (string, error) {
	txnPayload := aiTransactionPayload{
		Date:       txn.TransactionDate,
		Amount:     txn.Amount.String(),
		Currency:   txn.Currency,
		VendorName: txn.VendorName,
		Supplier:   txn.EffectiveSupplier(),
	}
	if txn.Description != nil {
		txnPayload.Description = *txn.Description
	}

	candPayloads := make([]aiCandidatePayload, 0, len(candidates))
	for _, sc := range candidates {
		candPayloads = append(candPayloads, aiCandidatePayload{
			InvoiceID:      sc.Invoice.ID,
			InvoiceNumber:  sc.Invoice.InvoiceNumber,
			Supplier:       sc.Invoice.Supplier,
			Amount:         sc.Invoice.InvoiceValue.String(),
			Currency:       sc.Invoice.Currency,
			InvoiceDate:    sc.Invoice.InvoiceDate,
			HeuristicScore: sc.Total,
			Reasons:        sc.Reasons,
		})
	}

	txnJSON, err := json.Marshal(txnPayload)
	if err != nil {
		return "", err
	}
	candJSON, err := json.Marshal(candPayloads)
	if err != nil {
		return "", err
	}

	prompt :=
		"You are an accounting assistant matching a bank transaction to supplier invoices.\n\n" +
			"Task:\n" +
			"- Pick the invoice that this transaction most likely pays, or none.\n" +
			"- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n\n" +
			"The output object must have these fields:\n" +
			"- \"best_match_invoice_id\": string, one of the candidate invoice_id values, or \"\" if none\n" +
			"- \"confidence\": number between 0 and 1\n" +
			"- \"reasoning\": string, one short sentence\n" +
			"- \"alternative_matches\": array of {\"invoice_id\", \"confidence\", \"reason\"} objects, possibly empty\n\n" +
			"Transaction:\n" + string(txnJSON) + "\n\n" +
			"Candidate invoices (with heuristic pre-scores):\n" + string(candJSON) + "\n\n" +
			"Return ONLY valid raw JSON.\n" +
			"Do NOT wrap the response in code fences.\n" +
			"Do NOT use ```json or any Markdown.\n" +
			"Output must begin with \"{\" and end with \"}\".\n"

	return prompt, nil
}

// cleanModelJSON strips Markdown fences the model sometimes adds despite the
// instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	return strings.TrimSpace(s)
}
