package support

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/support-chat/internal/domain"
	"github.com/ashureev/support-chat/internal/knowledge"
	"github.com/ashureev/support-chat/internal/matcher"
	"github.com/ashureev/support-chat/internal/metrics"
	"github.com/ashureev/support-chat/internal/store"
)

// maxIDAttempts bounds regeneration when a generated session ID is taken.
const maxIDAttempts = 5

// Service runs the chat pipeline: session lookup, knowledge base fetch,
// matching, reply assembly and session update.
type Service struct {
	sessions store.SessionStore
	kb       knowledge.Source
	matcher  *matcher.Matcher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	now   func() time.Time
	newID func() string

	// locks serializes requests for the same session ID.
	locks sync.Map
}

// NewService creates a chat service.
func NewService(sessions store.SessionStore, kb knowledge.Source, m *matcher.Matcher, mtx *metrics.Metrics, logger *slog.Logger) *Service {
	if m == nil {
		m = matcher.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		kb:       kb,
		matcher:  m,
		metrics:  mtx,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    NewSessionID,
	}
}

// NewSessionID returns a random identifier of the form SESSION-XXXXXXXX
// with eight uppercase hex characters.
func NewSessionID() string {
	return "SESSION-" + strings.ToUpper(uuid.NewString()[:8])
}

// Chat handles one customer message.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	msg := ""
	if req.Message != nil {
		msg = strings.TrimSpace(*req.Message)
	}
	sessionID := ""
	if req.SessionID != nil {
		sessionID = *req.SessionID
	}

	if msg == "" {
		if sessionID == "" {
			sessionID = s.newID()
		}
		s.metrics.RecordChat(string(domain.StatusNeedMoreInfo), 0)
		return &ChatResponse{
			SessionID: sessionID,
			Status:    domain.StatusNeedMoreInfo,
			Reply:     needMoreInfoReply,
		}, nil
	}

	if sessionID == "" {
		id, err := s.generateSessionID(ctx)
		if err != nil {
			return nil, err
		}
		sessionID = id
	}

	unlock := s.lockSession(sessionID)
	defer unlock()

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if sess == nil {
		sess = domain.NewSession(sessionID, req.CustomerID, s.now())
		s.logger.Info("Support session created", "session_id", sessionID)
	}
	sess.Append(domain.FromCustomer, msg, s.now())
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}

	issues, err := s.kb.Issues(ctx)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}

	result := s.matcher.Match(msg, issues)
	resp := &ChatResponse{
		SessionID:  sessionID,
		MatchScore: result.Score,
	}
	if result.Confident {
		resp.Status = domain.StatusSelfServeInProgress
		resp.Reply = selfServeReply(result.Issue, result.Score)
		resp.MatchedIssueID = result.Issue.ID
	} else {
		resp.Status = domain.StatusEscalatedToHuman
		resp.Reply = escalationReply(TicketID(sessionID), result.Score)
	}

	sess.SetStatus(resp.Status)
	sess.Append(domain.FromSystem, resp.Reply, s.now())
	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.RecordChat(string(resp.Status), resp.MatchScore)
	s.logger.Info("Support chat handled",
		"session_id", sessionID,
		"status", resp.Status,
		"matched_issue_id", resp.MatchedIssueID,
		"match_score", resp.MatchScore,
		"turns", len(sess.History),
		"has_context", len(req.Context) > 0,
	)
	return resp, nil
}

// Session returns the stored session, or nil if it does not exist.
func (s *Service) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	start := time.Now()
	sess, err := s.sessions.Get(ctx, sessionID)
	s.metrics.RecordStoreOperation("get", time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return sess, nil
}

// Forget releases per-session bookkeeping once a session has been removed
// from the store.
func (s *Service) Forget(sessionID string) {
	s.locks.Delete(sessionID)
	s.logger.Debug("Support session forgotten", "session_id", sessionID)
}

func (s *Service) put(ctx context.Context, sess *domain.Session) error {
	start := time.Now()
	err := s.sessions.Put(ctx, sess)
	s.metrics.RecordStoreOperation("put", time.Since(start))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *Service) generateSessionID(ctx context.Context) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id := s.newID()
		existing, err := s.sessions.Get(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check session id: %w", err)
		}
		if existing == nil {
			return id, nil
		}
		s.logger.Warn("Generated session ID already in use, retrying", "session_id", id, "attempt", i+1)
	}
	return "", fmt.Errorf("generate session id: %d attempts collided", maxIDAttempts)
}

func (s *Service) lockSession(sessionID string) func() {
	v, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
