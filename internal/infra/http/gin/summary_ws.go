package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	gin "github.com/gin-gonic/gin"

	"github.com/slogsolutions/WebBuyer/internal/app/dto"
	authsvc "github.com/slogsolutions/WebBuyer/internal/app/services/auth"
	"github.com/slogsolutions/WebBuyer/internal/app/summary"
	"github.com/slogsolutions/WebBuyer/internal/domain/shared/timewindow"
	"github.com/slogsolutions/WebBuyer/internal/domain/space"
	"github.com/slogsolutions/WebBuyer/internal/domain/user"
	"github.com/slogsolutions/WebBuyer/internal/infra/verify"
)

type wsClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type wsAuthPayload struct {
	Token string `json:"token"`
}

type wsSelectPayload struct {
	SpaceID string `json:"space_id"`
}

type wsWindowPayload struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type wsCarouselPayload struct {
	Index *int `json:"index"`
	Step  *int `json:"step"`
}

type wsServerMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type wsErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// SummaryWSHandler runs the live summary card over a websocket. Every
// connection gets its own card. Sessions start anonymous; an auth
// message attaches a user and subscribes the session to that user's
// verification outcomes, so a waiting booking attempt resumes the
// moment the provider callback lands.
type SummaryWSHandler struct {
	NewCard  func() *summary.Card
	Auth     *authsvc.Service
	Notifier *verify.Notifier
	Logger   *slog.Logger
}

func (h *SummaryWSHandler) Stream(c *gin.Context) {
	if h.NewCard == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary unavailable"})
		return
	}
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("websocket upgrade failed", "error", err)
		return
	}

	sess := &summarySession{
		ctx:      c.Request.Context(),
		conn:     newWSConnection(conn, logger),
		card:     h.NewCard(),
		auth:     h.Auth,
		notifier: h.Notifier,
		logger:   logger,
	}
	go sess.conn.writePump()
	go sess.pumpRatings()
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		sess.bindToken(token)
	}
	sess.run()
}

// summarySession binds one connection to one card. The read pump runs
// on the request goroutine, so the request context lives exactly as
// long as the session.
type summarySession struct {
	ctx      context.Context
	conn     *wsConnection
	card     *summary.Card
	auth     *authsvc.Service
	notifier *verify.Notifier
	logger   *slog.Logger

	mu             sync.Mutex
	userID         user.ID
	cancelOutcomes func()
}

func (s *summarySession) run() {
	defer s.teardown()
	s.conn.readPump(s.handleMessage)
}

func (s *summarySession) teardown() {
	s.mu.Lock()
	cancel := s.cancelOutcomes
	s.cancelOutcomes = nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	s.card.Close()
	s.conn.close()
}

// pumpRatings pushes a fresh snapshot whenever the aggregator settles
// a rating fetch. The channel closes with the card.
func (s *summarySession) pumpRatings() {
	for range s.card.RatingUpdates() {
		s.push("summary", dto.MapSummary(s.card.Snapshot()))
	}
}

func (s *summarySession) pumpOutcomes(outcomes <-chan verify.Outcome, userID user.ID) {
	for outcome := range outcomes {
		if !outcome.Verified {
			s.card.OnChallengeClosed()
			continue
		}
		res, resumed, err := s.card.OnPhoneVerified(s.ctx, userID)
		if err != nil {
			s.logger.Warn("resumed booking attempt failed", "user_id", userID, "error", err)
			s.sendError("booking attempt failed")
			continue
		}
		if resumed {
			s.push("attempt", dto.MapAttempt(res))
		}
	}
}

func (s *summarySession) handleMessage(raw []byte) {
	var msg wsClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError("invalid message")
		return
	}
	switch msg.Type {
	case "auth":
		s.handleAuth(msg.Data)
	case "select":
		s.handleSelect(msg.Data)
	case "window":
		s.handleWindow(msg.Data)
	case "carousel":
		s.handleCarousel(msg.Data)
	case "book":
		s.handleBook()
	case "challenge_closed":
		s.card.OnChallengeClosed()
	default:
		s.sendError("unknown message type")
	}
}

func (s *summarySession) handleAuth(data json.RawMessage) {
	var payload wsAuthPayload
	if err := json.Unmarshal(data, &payload); err != nil || strings.TrimSpace(payload.Token) == "" {
		s.sendError("token is required")
		return
	}
	s.bindToken(payload.Token)
}

func (s *summarySession) bindToken(raw string) {
	if s.auth == nil {
		s.sendError("authentication unavailable")
		return
	}
	token := extractBearerToken(raw)
	if token == "" {
		token = strings.TrimSpace(raw)
	}
	res, err := s.auth.ResolveToken(s.ctx, token)
	if err != nil {
		s.sendError("invalid or expired token")
		return
	}
	s.bindUser(res.User.ID)
	s.push("auth_ok", gin.H{"user_id": string(res.User.ID)})
}

// bindUser attaches the session to a user. Re-authentication replaces
// the previous outcome subscription.
func (s *summarySession) bindUser(id user.ID) {
	var outcomes <-chan verify.Outcome
	var cancel func()
	if s.notifier != nil {
		outcomes, cancel = s.notifier.Subscribe(id)
	}

	s.mu.Lock()
	prev := s.cancelOutcomes
	s.userID = id
	s.cancelOutcomes = cancel
	s.mu.Unlock()

	if prev != nil {
		prev()
	}
	if outcomes != nil {
		go s.pumpOutcomes(outcomes, id)
	}
}

func (s *summarySession) currentUser() user.ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *summarySession) handleSelect(data json.RawMessage) {
	var payload wsSelectPayload
	if err := json.Unmarshal(data, &payload); err != nil || strings.TrimSpace(payload.SpaceID) == "" {
		s.sendError("space_id is required")
		return
	}
	snap, err := s.card.Select(s.ctx, space.SpaceID(strings.TrimSpace(payload.SpaceID)))
	if err != nil {
		if errors.Is(err, space.ErrNotFound) {
			s.sendError("space not found")
			return
		}
		s.logger.Error("summary select failed", "space_id", payload.SpaceID, "error", err)
		s.sendError("select failed")
		return
	}
	s.push("summary", dto.MapSummary(snap))
}

func (s *summarySession) handleWindow(data json.RawMessage) {
	var payload wsWindowPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError("invalid window")
		return
	}
	snap := s.card.SetWindow(timewindow.Parse(payload.Start, payload.End))
	s.push("summary", dto.MapSummary(snap))
}

func (s *summarySession) handleCarousel(data json.RawMessage) {
	var payload wsCarouselPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		s.sendError("invalid carousel move")
		return
	}
	var snap summary.Snapshot
	switch {
	case payload.Index != nil:
		snap = s.card.SetCarousel(*payload.Index)
	case payload.Step != nil:
		snap = s.card.StepCarousel(*payload.Step)
	default:
		s.sendError("carousel move needs index or step")
		return
	}
	s.push("summary", dto.MapSummary(snap))
}

func (s *summarySession) handleBook() {
	res, err := s.card.Attempt(s.ctx, s.currentUser())
	if err != nil {
		if errors.Is(err, summary.ErrNoSelection) {
			s.sendError("select a space first")
			return
		}
		s.logger.Error("booking attempt failed", "error", err)
		s.sendError("booking attempt failed")
		return
	}
	s.push("attempt", dto.MapAttempt(res))
}

func (s *summarySession) push(msgType string, data any) {
	_ = s.conn.writeJSON(wsServerMessage{Type: msgType, Data: data})
}

func (s *summarySession) sendError(msg string) {
	_ = s.conn.writeJSON(wsErrorMessage{Type: "error", Message: msg})
}

var _ SummaryWSHTTP = (*SummaryWSHandler)(nil)
