// Package bot runs one conversational turn: normalize, classify, update the
// goal memory, compose the reply and record the interaction.
package bot

import (
	"context"
	"time"

	"github.com/garyellow/ptc-frontdesk/internal/ctxutil"
	"github.com/garyellow/ptc-frontdesk/internal/errors"
	"github.com/garyellow/ptc-frontdesk/internal/intent"
	"github.com/garyellow/ptc-frontdesk/internal/logger"
	"github.com/garyellow/ptc-frontdesk/internal/metrics"
	"github.com/garyellow/ptc-frontdesk/internal/reply"
	"github.com/garyellow/ptc-frontdesk/internal/session"
	"github.com/garyellow/ptc-frontdesk/internal/storage"
	"github.com/garyellow/ptc-frontdesk/internal/stringutil"
)

// Result is the outcome of one turn.
type Result struct {
	SessionID string      `json:"session_id"`
	Intent    intent.Kind `json:"intent"`
	Goal      intent.Goal `json:"goal"`
	Reply     string      `json:"reply"`
}

// EngineConfig holds the collaborators of an Engine.
type EngineConfig struct {
	Classifier *intent.Classifier
	Composer   *reply.Composer
	Sessions   session.Store
	Recorder   storage.Recorder
	Logger     *logger.Logger
	Metrics    *metrics.Metrics // optional

	// Rune cap for the redacted input copy in the interaction log
	LogMaxInputChars int
}

// Engine answers messages. It is safe for concurrent use; turns of the
// same session are not serialized, the last save wins.
type Engine struct {
	classifier  *intent.Classifier
	composer    *reply.Composer
	sessions    session.Store
	recorder    storage.Recorder
	logger      *logger.Logger
	metrics     *metrics.Metrics
	maxLogInput int
	now         func() time.Time
}

// NewEngine creates an Engine and reports skipped classifier patterns once.
func NewEngine(cfg EngineConfig) *Engine {
	e := &Engine{
		classifier:  cfg.Classifier,
		composer:    cfg.Composer,
		sessions:    cfg.Sessions,
		recorder:    cfg.Recorder,
		logger:      cfg.Logger.WithModule("bot"),
		metrics:     cfg.Metrics,
		maxLogInput: cfg.LogMaxInputChars,
		now:         time.Now,
	}

	for _, w := range e.classifier.Warnings() {
		rule := "unknown"
		var pe *errors.PatternError
		if errors.As(w, &pe) {
			rule = pe.Rule
		}
		e.logger.WithError(w).Warn("Skipping malformed pattern", "rule", rule)
		if e.metrics != nil {
			e.metrics.RecordPatternError(rule)
		}
	}

	return e
}

// Fallback returns the clarifying reply used whenever a turn cannot be
// answered normally.
func (e *Engine) Fallback() string {
	return e.composer.Compose(intent.KindFallback, intent.GoalUnset, false)
}

// Respond answers text within the session identified by sessionID. An empty
// sessionID starts a new session.
//
// The only error is a failed session lookup; the returned Result then
// still carries the fallback reply. Failed stats or session writes are
// logged and counted but do not change the reply.
func (e *Engine) Respond(ctx context.Context, sessionID, text string) (Result, error) {
	start := e.now()
	if sessionID == "" {
		sessionID = session.NewID()
	}
	ctx = ctxutil.WithSessionID(ctx, sessionID)
	log := e.logger.WithSessionID(sessionID)

	sess, err := e.load(ctx, sessionID, start)
	if err != nil {
		log.WithError(err).ErrorContext(ctx, "Failed to load session")
		return Result{SessionID: sessionID, Intent: intent.KindFallback, Reply: e.Fallback()}, err
	}

	normalized := stringutil.Normalize(text)
	match := e.classifier.Classify(normalized)
	sess.MarkAsked(match.Kind)
	if goal, ok := e.classifier.InferGoal(normalized); ok {
		sess.RememberGoal(goal)
		if e.metrics != nil {
			e.metrics.RecordGoal(goal.String())
		}
	}
	medical := e.classifier.HasMedicalMarker(normalized)

	answer := e.composer.Compose(match.Kind, sess.Goal, medical)

	now := e.now()
	sess.Append(session.RoleUser, text, now)
	sess.Append(session.RoleAssistant, answer, now)
	if err := e.sessions.Save(ctx, sess); err != nil {
		e.persistFailed(ctx, log, errors.NewWrapper("session", "save").Wrap(err, ""))
	}

	in := storage.NewInteraction(now, sessionID, match.Kind.String(), sess.Goal.String(), text, e.maxLogInput)
	if err := e.recorder.RecordTurn(ctx, in); err != nil {
		e.persistFailed(ctx, log, err)
	}

	if e.metrics != nil {
		e.metrics.RecordChat(match.Kind.String(), ctxutil.GetTransport(ctx), e.now().Sub(start).Seconds())
	}
	log.DebugContext(ctx, "Answered message",
		"intent", match.Kind.String(),
		"score", match.Score,
		"goal", sess.Goal.String(),
		"medical", medical,
	)

	return Result{
		SessionID: sessionID,
		Intent:    match.Kind,
		Goal:      sess.Goal,
		Reply:     answer,
	}, nil
}

func (e *Engine) load(ctx context.Context, id string, now time.Time) (*session.Session, error) {
	sess, err := e.sessions.Get(ctx, id)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, errors.ErrSessionNotFound):
		return session.New(id, now), nil
	default:
		return nil, errors.NewWrapper("session", "get").Wrap(err, "")
	}
}

func (e *Engine) persistFailed(ctx context.Context, log *logger.Logger, err error) {
	op := errors.Operation(err)
	log.WithError(err).WarnContext(ctx, "Persistence failed, reply unaffected", "operation", op)
	if e.metrics != nil {
		e.metrics.RecordPersistenceError(op)
	}
}

// Reset clears the goal and transcript of a session.
func (e *Engine) Reset(ctx context.Context, sessionID string) error {
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		return errors.NewWrapper("session", "delete").Wrap(err, "")
	}
	e.logger.WithSessionID(sessionID).InfoContext(ctx, "Session reset")
	return nil
}

// History returns the transcript of a session; an unknown session has an
// empty transcript.
func (e *Engine) History(ctx context.Context, sessionID string) ([]session.Turn, error) {
	sess, err := e.Snapshot(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Transcript == nil {
		return []session.Turn{}, nil
	}
	return sess.Transcript, nil
}

// Snapshot returns a copy of the session. An unknown session yields an
// empty one with an unset goal; it is not stored.
func (e *Engine) Snapshot(ctx context.Context, sessionID string) (*session.Session, error) {
	sess, err := e.sessions.Get(ctx, sessionID)
	if errors.Is(err, errors.ErrSessionNotFound) {
		return session.New(sessionID, e.now()), nil
	}
	if err != nil {
		return nil, errors.NewWrapper("session", "get").Wrap(err, "")
	}
	return sess, nil
}
