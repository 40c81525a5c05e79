// Package webhook serves the LINE Messaging API callback and answers text
// messages with the same engine as the HTTP chat endpoint.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/ptc-frontdesk/internal/bot"
	"github.com/garyellow/ptc-frontdesk/internal/ctxutil"
	"github.com/garyellow/ptc-frontdesk/internal/lineutil"
	"github.com/garyellow/ptc-frontdesk/internal/logger"
	"github.com/garyellow/ptc-frontdesk/internal/metrics"
	"github.com/garyellow/ptc-frontdesk/internal/ratelimit"
	"github.com/garyellow/ptc-frontdesk/internal/reply"
	"github.com/garyellow/ptc-frontdesk/internal/stringutil"
)

// Transport is the ctxutil transport name for LINE turns.
const Transport = "line"

const (
	defaultMaxEvents = 100
	defaultAPIRate   = 100.0 // reply calls per second across all chats
)

// Responder answers and resets conversations.
type Responder interface {
	Respond(ctx context.Context, sessionID, text string) (bot.Result, error)
	Reset(ctx context.Context, sessionID string) error
}

// Replier sends reply messages. *messaging_api.MessagingApiAPI satisfies it.
type Replier interface {
	ReplyMessage(req *messaging_api.ReplyMessageRequest) (*messaging_api.ReplyMessageResponse, error)
}

// HandlerConfig holds configuration for creating a new Handler.
type HandlerConfig struct {
	ChannelSecret string
	ChannelToken  string
	Responder     Responder
	Logger        *logger.Logger
	Metrics       *metrics.Metrics         // optional
	Limiter       *ratelimit.KeyedLimiter  // optional per-session limiter
	Replier       Replier                  // optional; defaults to the LINE API client
	Timeout       time.Duration            // per event, including the reply call
	MaxInputRunes int                      // longer messages are cut; 0 keeps them whole
	MaxEvents     int                      // events handled per callback; default 100
	APIRate       float64                  // reply calls per second; default 100
}

// Handler handles LINE webhook events.
type Handler struct {
	channelSecret string
	replier       Replier
	responder     Responder
	logger        *logger.Logger
	metrics       *metrics.Metrics
	limiter       *ratelimit.KeyedLimiter
	apiLimiter    *ratelimit.Limiter
	timeout       time.Duration
	maxInputRunes int
	maxEvents     int
	wg            sync.WaitGroup
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.ChannelSecret == "" {
		return nil, errors.New("webhook: channel secret is required")
	}

	replier := cfg.Replier
	if replier == nil {
		client, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken)
		if err != nil {
			return nil, fmt.Errorf("create messaging API client: %w", err)
		}
		replier = client
	}

	h := &Handler{
		channelSecret: cfg.ChannelSecret,
		replier:       replier,
		responder:     cfg.Responder,
		logger:        cfg.Logger.WithModule("webhook"),
		metrics:       cfg.Metrics,
		limiter:       cfg.Limiter,
		timeout:       cfg.Timeout,
		maxInputRunes: cfg.MaxInputRunes,
		maxEvents:     cfg.MaxEvents,
	}
	if h.timeout <= 0 {
		h.timeout = 20 * time.Second
	}
	if h.maxEvents <= 0 {
		h.maxEvents = defaultMaxEvents
	}
	rate := cfg.APIRate
	if rate <= 0 {
		rate = defaultAPIRate
	}
	h.apiLimiter = ratelimit.New(rate, rate)

	return h, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			h.recordHTTPError("invalid_signature")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			h.recordHTTPError("invalid_request")
			c.Status(http.StatusInternalServerError)
		}
		return
	}

	// LINE expects 200 right away; events are answered via the reply API
	c.Status(http.StatusOK)

	events := cb.Events
	if len(events) > h.maxEvents {
		h.logger.WithField("event_count", len(events)).
			WithField("limit", h.maxEvents).
			Warn("Too many events in webhook batch; truncating")
		events = events[:h.maxEvents]
	}
	events = append([]webhook.EventInterface(nil), events...)

	h.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
			}
		}()

		for _, event := range events {
			h.processEvent(event)
		}
	})
}

func (h *Handler) recordHTTPError(kind string) {
	if h.metrics != nil {
		h.metrics.RecordHTTPError(kind, "webhook")
	}
}

// processEvent answers one event and sends the reply.
func (h *Handler) processEvent(event webhook.EventInterface) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctxutil.WithTransport(context.Background(), Transport), h.timeout)
	defer cancel()

	eventID, replyToken, source := eventMeta(event)
	log := h.logger
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
		log = log.WithRequestID(eventID)
	}
	sid := sessionID(source)
	if sid != "" {
		ctx = ctxutil.WithSessionID(ctx, sid)
		log = log.WithSessionID(sid)
	}

	var (
		eventType string
		messages  []messaging_api.MessageInterface
		err       error
	)
	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		messages, err = h.handleMessage(ctx, sid, e)
	case webhook.FollowEvent:
		eventType = "follow"
		messages = []messaging_api.MessageInterface{lineutil.NewReply(reply.Welcome())}
	case webhook.JoinEvent:
		eventType = "join"
		messages = []messaging_api.MessageInterface{lineutil.NewReply(reply.Welcome())}
	case webhook.UnfollowEvent, webhook.LeaveEvent:
		eventType = "leave"
		if sid != "" {
			err = h.responder.Reset(ctx, sid)
		}
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).WithField("event_type", eventType).Error("Failed to handle event")
	}

	if len(messages) > 0 {
		if sendErr := h.send(ctx, replyToken, messages); sendErr != nil {
			status = "reply_error"
			log.WithError(sendErr).Warn("Failed to send reply")
		}
	}

	if h.metrics != nil {
		h.metrics.RecordWebhook(eventType, status, time.Since(start).Seconds())
	}
	log.WithField("event_type", eventType).
		WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("Event processed")
}

// handleMessage answers text messages. Group and room messages are only
// answered when the bot is mentioned.
func (h *Handler) handleMessage(ctx context.Context, sid string, e webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	textMsg, ok := e.Message.(webhook.TextMessageContent)
	if !ok || sid == "" {
		return nil, nil
	}

	text := textMsg.Text
	if !isPersonalChat(e.Source) {
		if !isBotMentioned(textMsg) {
			return nil, nil
		}
		text = removeBotMentions(text, textMsg.Mention)
	}
	if h.maxInputRunes > 0 {
		text = stringutil.Truncate(text, h.maxInputRunes)
	}

	if h.limiter != nil && !h.limiter.Allow(sid) {
		h.logger.WithSessionID(sid).Warn("Session rate limit exceeded; dropping message")
		return nil, nil
	}

	if reply.IsResetCommand(text) {
		if err := h.responder.Reset(ctx, sid); err != nil {
			return nil, err
		}
		if h.limiter != nil {
			h.limiter.Forget(sid)
		}
		return []messaging_api.MessageInterface{lineutil.NewReply(reply.ResetConfirmation)}, nil
	}

	// Respond always carries a usable reply, even alongside an error
	res, err := h.responder.Respond(ctx, sid, text)
	return []messaging_api.MessageInterface{lineutil.NewReply(res.Reply)}, err
}

func (h *Handler) send(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error {
	if len(replyToken) < lineutil.MinReplyTokenLength {
		return nil
	}
	if len(messages) > lineutil.MaxMessagesPerReply {
		messages = messages[:lineutil.MaxMessagesPerReply]
	}

	if !h.apiLimiter.Allow() {
		if h.metrics != nil {
			h.metrics.RecordRateLimiterDrop("line_api")
		}
		if err := h.apiLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for reply slot: %w", err)
		}
	}

	_, err := h.replier.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	if err != nil && strings.Contains(err.Error(), "Invalid reply token") {
		// expired or already used; nothing to retry
		return nil
	}
	return err
}

func eventMeta(event webhook.EventInterface) (eventID, replyToken string, source webhook.SourceInterface) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.WebhookEventId, e.ReplyToken, e.Source
	case webhook.FollowEvent:
		return e.WebhookEventId, e.ReplyToken, e.Source
	case webhook.JoinEvent:
		return e.WebhookEventId, e.ReplyToken, e.Source
	case webhook.UnfollowEvent:
		return e.WebhookEventId, "", e.Source
	case webhook.LeaveEvent:
		return e.WebhookEventId, "", e.Source
	}
	return "", "", nil
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.wg.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
