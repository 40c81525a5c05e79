package app

import (
	"context"
	"net/http"
	"strconv"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/garyellow/ptc-frontdesk/internal/config"
	"github.com/garyellow/ptc-frontdesk/internal/ctxutil"
	"github.com/garyellow/ptc-frontdesk/internal/intent"
	"github.com/garyellow/ptc-frontdesk/internal/reply"
	"github.com/garyellow/ptc-frontdesk/internal/sentry"
	"github.com/garyellow/ptc-frontdesk/internal/session"
)

// Transport is the ctxutil transport name for the JSON API.
const Transport = "http"

// maxSessionIDLength bounds client-chosen session IDs.
const maxSessionIDLength = 128

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type welcomeResponse struct {
	Reply  string        `json:"reply"`
	Topics []reply.Topic `json:"topics"`
}

type historyResponse struct {
	SessionID  string         `json:"session_id"`
	Goal       intent.Goal    `json:"goal"`
	GoalLabel  string         `json:"goal_label,omitempty"`
	Asked      []intent.Kind  `json:"asked"`
	Transcript []session.Turn `json:"transcript"`
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if _, err := a.recorder.Counters(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: stats store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "stats store unavailable",
		})
		return
	}

	if p, ok := a.sessions.(interface{ Ping(context.Context) error }); ok {
		if err := p.Ping(ctx); err != nil {
			a.logger.WithError(err).Warn("Readiness check failed: session store unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "session store unavailable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"stats":    a.cfg.StatsBackend,
		"sessions": a.cfg.Session.Backend,
		"features": a.features(),
	})
}

func (a *Application) features() map[string]bool {
	return map[string]bool{
		"line":    a.webhookHandler != nil,
		"archive": a.archiver != nil,
		"admin":   a.cfg.AdminEnabled(),
	}
}

// handleWelcome returns the opening message and the suggested topics.
func (a *Application) handleWelcome(c *gin.Context) {
	c.JSON(http.StatusOK, welcomeResponse{Reply: reply.Welcome(), Topics: reply.Topics()})
}

// handleChat answers one message. Engine failures still produce a 200 with
// the fallback reply; the client never sees a technical error for a turn.
func (a *Application) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.rejectChat(c, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}
	if utf8.RuneCountInString(req.Message) > a.cfg.MaxInputLength {
		a.rejectChat(c, http.StatusBadRequest, "message_too_long",
			"message exceeds "+strconv.Itoa(a.cfg.MaxInputLength)+" characters")
		return
	}
	if len(req.SessionID) > maxSessionIDLength {
		a.rejectChat(c, http.StatusBadRequest, "invalid_session", "session_id too long")
		return
	}

	sid := req.SessionID
	if sid == "" {
		sid = session.NewID()
	}

	if !a.chatLimiter.Allow(sid) {
		c.Header("Retry-After", "2")
		a.rejectChat(c, http.StatusTooManyRequests, "rate_limited", "too many messages, please slow down")
		return
	}

	ctx := ctxutil.WithTransport(c.Request.Context(), Transport)

	if reply.IsResetCommand(req.Message) {
		if err := a.engine.Reset(ctx, sid); err != nil {
			a.internalError(c, err, "chat", "Failed to reset session")
			return
		}
		a.chatLimiter.Forget(sid)
		c.JSON(http.StatusOK, gin.H{
			"session_id": sid,
			"intent":     "reset",
			"goal":       intent.GoalUnset,
			"reply":      reply.ResetConfirmation,
		})
		return
	}

	res, err := a.engine.Respond(ctx, sid, req.Message)
	if err != nil {
		a.metrics.RecordHTTPError("engine", "chat")
		sentry.CaptureException(ctx, err, map[string]string{"module": "chat"})
		// res carries the fallback reply
	}
	c.JSON(http.StatusOK, res)
}

func (a *Application) rejectChat(c *gin.Context, status int, errorType, message string) {
	a.metrics.RecordHTTPError(errorType, "chat")
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// internalError logs err, reports it and answers 500 without details.
func (a *Application) internalError(c *gin.Context, err error, module, msg string) {
	ctx := c.Request.Context()
	a.logger.WithError(err).WithModule(module).ErrorContext(ctx, msg)
	a.metrics.RecordHTTPError("internal", module)
	sentry.CaptureException(ctx, err, map[string]string{"module": module})
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// handleReset forgets the goal and transcript of a session.
func (a *Application) handleReset(c *gin.Context) {
	sid := c.Param("id")
	if len(sid) > maxSessionIDLength {
		a.rejectChat(c, http.StatusBadRequest, "invalid_session", "session id too long")
		return
	}
	ctx := ctxutil.WithTransport(c.Request.Context(), Transport)
	if err := a.engine.Reset(ctx, sid); err != nil {
		a.internalError(c, err, "session", "Failed to reset session")
		return
	}
	a.chatLimiter.Forget(sid)
	c.Status(http.StatusNoContent)
}

// handleHistory returns the remembered goal, the topics asked so far and
// the transcript. Unknown sessions are empty, not 404.
func (a *Application) handleHistory(c *gin.Context) {
	sid := c.Param("id")
	if len(sid) > maxSessionIDLength {
		a.rejectChat(c, http.StatusBadRequest, "invalid_session", "session id too long")
		return
	}
	snap, err := a.engine.Snapshot(c.Request.Context(), sid)
	if err != nil {
		a.internalError(c, err, "session", "Failed to load session")
		return
	}

	resp := historyResponse{
		SessionID:  sid,
		Goal:       snap.Goal,
		GoalLabel:  snap.Goal.Display(),
		Asked:      snap.Asked,
		Transcript: snap.Transcript,
	}
	if resp.Asked == nil {
		resp.Asked = []intent.Kind{}
	}
	if resp.Transcript == nil {
		resp.Transcript = []session.Turn{}
	}
	c.JSON(http.StatusOK, resp)
}
