package expense

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// wireRecord mirrors the provider's JSON shape. Amounts arrive as plain JSON
// numbers or strings and dates in a handful of layouts, so parsing is done
// per record and bad records are dropped rather than failing the batch.
type wireRecord struct {
	ID          string          `json:"id"`
	Date        string          `json:"date"`
	Amount      json.RawMessage `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Merchant    string          `json:"merchant"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// Fetcher retrieves raw expense records for a user from the external data
// provider over HTTP.
type Fetcher struct {
	client *resty.Client
}

func NewFetcher(baseURL string, timeout time.Duration) *Fetcher {
	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetTimeout(timeout)
	client.SetHeader("Content-Type", "application/json")

	return &Fetcher{client: client}
}

// Fetch retrieves all expense records for the given user. Records missing a
// required field are dropped and logged; a completely unparseable body is a
// malformed-response error.
func (f *Fetcher) Fetch(ctx context.Context, userID string) ([]Record, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/%s/expenses", userID))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	if resp.IsError() {
		return nil, &FetchError{
			Kind:       FetchUpstreamStatus,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected status %s", resp.Status()),
		}
	}

	var wire []wireRecord
	if err := json.Unmarshal(resp.Body(), &wire); err != nil {
		return nil, &FetchError{Kind: FetchMalformedResponse, Err: err}
	}

	records := make([]Record, 0, len(wire))
	for _, w := range wire {
		rec, err := w.toRecord()
		if err != nil {
			log.Printf("Dropping invalid expense record (id=%q): %v", w.ID, err)
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (w wireRecord) toRecord() (Record, error) {
	if w.ID == "" {
		return Record{}, errors.New("missing id")
	}
	if strings.TrimSpace(w.Category) == "" {
		return Record{}, errors.New("missing category")
	}

	date, err := parseDate(w.Date)
	if err != nil {
		return Record{}, err
	}

	// Amounts come as JSON numbers or quoted strings depending on the
	// provider version.
	rawAmount := strings.Trim(strings.TrimSpace(string(w.Amount)), `"`)
	if rawAmount == "" || rawAmount == "null" {
		return Record{}, errors.New("missing amount")
	}
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return Record{}, fmt.Errorf("invalid amount %q: %w", rawAmount, err)
	}

	return Record{
		ID:          w.ID,
		Date:        date,
		Amount:      amount,
		Category:    strings.TrimSpace(w.Category),
		Description: strings.TrimSpace(w.Description),
		Merchant:    strings.TrimSpace(w.Merchant),
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func classifyTransportError(err error) *FetchError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: FetchTimeout, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &FetchError{Kind: FetchTimeout, Err: err}
	}
	return &FetchError{Kind: FetchNetwork, Err: err}
}
