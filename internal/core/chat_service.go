package core

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/teddyhq/expense-assistant/internal/expense"
)

type State string

const (
	StateUninitialized State = "Uninitialized"
	StateReady         State = "Ready"
	StateRefreshing    State = "Refreshing"
	StateDegraded      State = "Degraded"
)

// ExpenseFetcher is the outbound data-provider dependency.
type ExpenseFetcher interface {
	Fetch(ctx context.Context, userID string) ([]expense.Record, error)
}

type ChatResult struct {
	SessionID   string `json:"sessionId"`
	Answer      string `json:"answer"`
	ContextUsed string `json:"context,omitempty"`
}

type StatusReport struct {
	State            State      `json:"state"`
	LastRefreshTime  *time.Time `json:"lastRefreshTime,omitempty"`
	LastRefreshError string     `json:"lastRefreshError,omitempty"`
	RecordCount      int        `json:"recordCount"`
}

type Options struct {
	UserID            string
	HistoryLimit      int
	RecentRecords     int // records included in fallback/lookup bundles
	PromptMaxChars    int
	RefreshInterval   time.Duration
	CompletionTimeout time.Duration
}

// ChatService coordinates the pipeline: it owns the swappable index
// snapshot, triggers fetch+build when the index is missing or stale, selects
// context, assembles the prompt, calls the completion capability, and keeps
// per-session history.
type ChatService struct {
	fetcher   ExpenseFetcher
	completer Completer
	sessions  *SessionStore
	selector  *Selector
	opts      Options

	refreshGroup singleflight.Group

	mu             sync.RWMutex
	index          *expense.Index // nil until the first successful build
	lastRefresh    time.Time
	lastRefreshErr error
	refreshing     bool
}

func NewChatService(fetcher ExpenseFetcher, completer Completer, opts Options) *ChatService {
	if opts.RecentRecords <= 0 {
		opts.RecentRecords = 10
	}
	return &ChatService{
		fetcher:   fetcher,
		completer: completer,
		sessions:  NewSessionStore(opts.HistoryLimit),
		selector:  NewSelector(opts.RecentRecords),
		opts:      opts,
	}
}

// State reports the orchestrator's current state. Degraded means no
// successful build exists and the last attempt failed.
func (s *ChatService) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

func (s *ChatService) stateLocked() State {
	switch {
	case s.refreshing:
		return StateRefreshing
	case s.index != nil:
		return StateReady
	case s.lastRefreshErr != nil:
		return StateDegraded
	default:
		return StateUninitialized
	}
}

// Refresh fetches and rebuilds the index. Concurrent calls coalesce into a
// single fetch. A failed refresh never discards a previously built index.
func (s *ChatService) Refresh(ctx context.Context) error {
	_, err, _ := s.refreshGroup.Do("refresh", func() (interface{}, error) {
		return nil, s.doRefresh(ctx)
	})
	return err
}

func (s *ChatService) doRefresh(ctx context.Context) error {
	s.mu.Lock()
	s.refreshing = true
	s.mu.Unlock()

	records, err := s.fetcher.Fetch(ctx, s.opts.UserID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshing = false

	if err != nil {
		s.lastRefreshErr = err
		if s.index != nil {
			// Keep serving the stale index; availability over freshness.
			log.Printf("Index refresh failed, keeping previous index: %v", err)
		} else {
			log.Printf("Initial index build failed: %v", err)
		}
		return err
	}

	if len(records) == 0 {
		log.Printf("Fetch for user %s returned no usable records; index will be empty", s.opts.UserID)
	}

	// Built fully before the swap: readers see the old or the new index,
	// never a mix.
	s.index = expense.Build(records)
	s.lastRefresh = time.Now()
	s.lastRefreshErr = nil
	log.Printf("Expense index rebuilt with %d records", s.index.Len())
	return nil
}

// snapshot ensures the index is initialized and fresh, returning the current
// snapshot. A refresh failure only propagates when no prior index exists.
func (s *ChatService) snapshot(ctx context.Context) (*expense.Index, error) {
	s.mu.RLock()
	idx := s.index
	stale := idx == nil || time.Since(s.lastRefresh) >= s.opts.RefreshInterval
	s.mu.RUnlock()

	if stale {
		if err := s.Refresh(ctx); err != nil && idx == nil {
			return nil, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index, nil
}

// Chat answers one user message for a session. On completion failure the
// user's turn is still recorded but no assistant turn is appended; retrying
// is the caller's responsibility.
func (s *ChatService) Chat(ctx context.Context, sessionID, message string) (*ChatResult, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	idx, err := s.snapshot(ctx)
	if err != nil || idx == nil {
		return nil, &ChatError{Kind: ChatServiceDegraded, Err: err}
	}

	bundle := s.selector.Select(message, idx, s.opts.PromptMaxChars/2)
	history := s.sessions.History(sessionID)
	prompt := AssemblePrompt(SystemInstructions, bundle, history, message, s.opts.PromptMaxChars)

	s.sessions.Append(sessionID, ConversationTurn{
		Role:      RoleUser,
		Content:   message,
		Timestamp: time.Now(),
	})

	complCtx, cancel := context.WithTimeout(ctx, s.opts.CompletionTimeout)
	defer cancel()

	answer, err := s.completer.Complete(complCtx, prompt)
	if err != nil {
		return nil, classifyCompletionError(err)
	}

	s.sessions.Append(sessionID, ConversationTurn{
		Role:      RoleAssistant,
		Content:   answer,
		Timestamp: time.Now(),
	})

	return &ChatResult{
		SessionID:   sessionID,
		Answer:      answer,
		ContextUsed: bundle.Describe(),
	}, nil
}

func classifyCompletionError(err error) *ChatError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &ChatError{Kind: ChatCompletionTimeout, Err: err}
	case errors.Is(err, ErrEmptyCompletion):
		return &ChatError{Kind: ChatCompletionEmptyResponse, Err: err}
	default:
		return &ChatError{Kind: ChatCompletionUpstreamError, Err: err}
	}
}

// Status reports the orchestrator state. It triggers the initial build when
// called before any chat, and reports a degraded state instead of failing.
func (s *ChatService) Status(ctx context.Context) StatusReport {
	if s.State() == StateUninitialized {
		if _, err := s.snapshot(ctx); err != nil {
			log.Printf("Status-triggered index build failed: %v", err)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	report := StatusReport{State: s.stateLocked()}
	if !s.lastRefresh.IsZero() {
		t := s.lastRefresh
		report.LastRefreshTime = &t
	}
	if s.lastRefreshErr != nil {
		report.LastRefreshError = s.lastRefreshErr.Error()
	}
	if s.index != nil {
		report.RecordCount = s.index.Len()
	}
	return report
}

// DataSummary returns the index aggregates, initializing the index first if
// needed. An empty index yields a valid empty summary.
func (s *ChatService) DataSummary(ctx context.Context) (expense.Summary, error) {
	idx, err := s.snapshot(ctx)
	if err != nil || idx == nil {
		return expense.Summary{}, &ChatError{Kind: ChatServiceDegraded, Err: err}
	}
	return idx.Summary(), nil
}

// History exposes the retained window for a session, oldest first.
func (s *ChatService) History(sessionID string) []ConversationTurn {
	return s.sessions.History(sessionID)
}
