package expense

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFetchParsesRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user-1/expenses" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id":"e1","date":"2024-03-02","amount":20.50,"category":"Groceries","description":"weekly shop","merchant":"Lidl"},
			{"id":"e2","date":"2024-03-05T10:30:00Z","amount":"12.00","category":"Transport","description":"metro card"}
		]`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second)
	records, err := f.Fetch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "e1" || records[0].Amount.StringFixed(2) != "20.50" || records[0].Merchant != "Lidl" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Date.Format("2006-01-02") != "2024-03-05" {
		t.Errorf("RFC3339 date not parsed: %v", records[1].Date)
	}
}

func TestFetchDropsInvalidRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"","date":"2024-03-02","amount":1,"category":"Groceries"},
			{"id":"e2","date":"not-a-date","amount":1,"category":"Groceries"},
			{"id":"e3","date":"2024-03-02","amount":1,"category":"  "},
			{"id":"e4","date":"2024-03-02","amount":1,"category":"Groceries","description":"ok"}
		]`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second)
	records, err := f.Fetch(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 || records[0].ID != "e4" {
		t.Fatalf("expected only the valid record to survive, got %+v", records)
	}
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"an array"`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second)
	_, err := f.Fetch(context.Background(), "user-1")
	assertFetchKind(t, err, FetchMalformedResponse)
}

func TestFetchUpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 5*time.Second)
	_, err := f.Fetch(context.Background(), "user-1")
	fe := assertFetchKind(t, err, FetchUpstreamStatus)
	if fe.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500 on error, got %d", fe.StatusCode)
	}
}

func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.URL, 30*time.Millisecond)
	_, err := f.Fetch(context.Background(), "user-1")
	assertFetchKind(t, err, FetchTimeout)
}

func TestFetchNetworkError(t *testing.T) {
	// Nothing listens here.
	f := NewFetcher("http://127.0.0.1:1", 2*time.Second)
	_, err := f.Fetch(context.Background(), "user-1")
	assertFetchKind(t, err, FetchNetwork)
}

func assertFetchKind(t *testing.T, err error, kind FetchErrorKind) *FetchError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Kind != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, fe.Kind, fe)
	}
	return fe
}
