package chatbot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"EduProChat/internal/archive"
	"EduProChat/internal/backend"
	"EduProChat/internal/config"
	"EduProChat/internal/session"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"
)

// Completer is the remote chat-completion endpoint.
type Completer interface {
	Complete(ctx context.Context, messages []backend.ChatMessage) (*backend.Completion, error)
	Probe(ctx context.Context) error
}

// Recorder receives every terminal outcome of an accepted submission.
type Recorder interface {
	Record(ctx context.Context, e archive.Entry) error
}

// GuardState is a snapshot of the single-flight guard.
type GuardState struct {
	Processing  bool
	LastRequest time.Time
}

// Option customizes a ChatBot.
type Option func(*ChatBot)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option { return func(cb *ChatBot) { cb.logger = l } }

// WithMeter sets the meter used for the submissions counter.
func WithMeter(m metric.Meter) Option { return func(cb *ChatBot) { cb.meter = m } }

// WithRecorder archives every accepted exchange.
func WithRecorder(r Recorder) Option { return func(cb *ChatBot) { cb.recorder = r } }

// WithClock replaces time.Now for guard decisions.
func WithClock(now func() time.Time) Option { return func(cb *ChatBot) { cb.now = now } }

// WithSystemPrompt replaces DefaultSystemPrompt.
func WithSystemPrompt(p string) Option { return func(cb *ChatBot) { cb.systemPrompt = p } }

// ChatBot is the chat session controller behind one widget. It is safe for
// concurrent use; at most one request to the completer is in flight.
type ChatBot struct {
	completer      Completer
	recorder       Recorder
	logger         *slog.Logger
	meter          metric.Meter
	submissions    metric.Int64Counter
	now            func() time.Time
	systemPrompt   string
	suggestions    []string
	requestTimeout time.Duration

	mu          sync.Mutex
	session     *session.Session
	limiter     *rate.Limiter
	processing  bool
	lastRequest time.Time
	health      Health
}

// NewChatBot creates a controller with a fresh session.
func NewChatBot(completer Completer, cfg config.Config, opts ...Option) *ChatBot {
	cb := &ChatBot{
		completer:      completer,
		logger:         slog.Default(),
		now:            time.Now,
		systemPrompt:   DefaultSystemPrompt,
		suggestions:    append([]string(nil), cfg.Suggestions...),
		requestTimeout: cfg.RequestTimeout,
		session:        session.New(cfg.HistoryLimit),
		limiter:        rate.NewLimiter(rate.Every(cfg.Cooldown), 1),
		health:         HealthConnected,
	}
	for _, opt := range opts {
		opt(cb)
	}
	if cb.meter == nil {
		cb.meter = otel.Meter("edupro-chat/chatbot")
	}

	cb.logger = cb.logger.With("session_id", cb.session.ID)

	counter, err := cb.meter.Int64Counter(
		"chat.submissions",
		metric.WithDescription("Chat submissions by outcome"),
	)
	if err != nil {
		cb.logger.Warn("failed to create submissions counter", "error", err)
	}
	cb.submissions = counter

	cb.logger.Info("created new session", "history_limit", cb.session.History.Limit(), "cooldown", cfg.Cooldown)
	return cb
}

// Submit runs one user message through the request lifecycle. Errors are
// never returned; every failure becomes an assistant turn in the transcript
// and is described by the returned Outcome.
func (cb *ChatBot) Submit(ctx context.Context, text string) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Kind: KindIgnored, Health: cb.Health()}
	}

	user, payload, rejected, ok := cb.accept(text)
	if !ok {
		cb.count(ctx, rejected.Kind)
		return rejected
	}

	out := cb.complete(ctx, user, payload)
	cb.count(ctx, out.Kind)
	cb.record(ctx, user.Content, out)
	return out
}

// Suggest submits the suggestion chip at index. Out-of-range is ignored.
func (cb *ChatBot) Suggest(ctx context.Context, index int) Outcome {
	if index < 0 || index >= len(cb.suggestions) {
		return Outcome{Kind: KindIgnored, Health: cb.Health()}
	}
	return cb.Submit(ctx, cb.suggestions[index])
}

// accept applies the guard. On acceptance the user turn is already in the
// transcript and the returned payload is ready to send.
func (cb *ChatBot) accept(text string) (session.Message, []backend.ChatMessage, Outcome, bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	if cb.limiter.TokensAt(now) < 1 {
		return session.Message{}, nil, cb.rejectLocked(now, KindRejectedCooldown, MsgCooldown, ErrRejectedCooldown), false
	}
	if cb.processing {
		return session.Message{}, nil, cb.rejectLocked(now, KindRejectedBusy, MsgBusy, ErrRejectedBusy), false
	}
	if !cb.limiter.AllowN(now, 1) {
		return session.Message{}, nil, cb.rejectLocked(now, KindRejectedCooldown, MsgCooldown, ErrRejectedCooldown), false
	}

	cb.processing = true
	cb.lastRequest = now

	user := session.Message{Role: session.RoleUser, Content: text, Timestamp: now}
	cb.session.Append(user)

	history := cb.session.History.Turns()
	payload := make([]backend.ChatMessage, 0, len(history)+2)
	payload = append(payload, backend.ChatMessage{Role: session.RoleSystem, Content: cb.systemPrompt})
	for _, m := range history {
		payload = append(payload, backend.ChatMessage{Role: m.Role, Content: m.Content})
	}
	payload = append(payload, backend.ChatMessage{Role: user.Role, Content: user.Content})

	cb.logger.Debug("submission accepted", "history_turns", len(history))
	return user, payload, Outcome{}, true
}

func (cb *ChatBot) rejectLocked(now time.Time, kind Kind, reply string, err error) Outcome {
	cb.session.Append(session.Message{Role: session.RoleAssistant, Content: reply, Timestamp: now})
	cb.logger.Info("submission rejected", "reason", kind)
	return Outcome{Kind: kind, Reply: reply, Health: cb.health, Err: err}
}

// complete performs the outbound call and applies its result. The guard is
// released on every path.
func (cb *ChatBot) complete(ctx context.Context, user session.Message, payload []backend.ChatMessage) Outcome {
	defer cb.release()

	if cb.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cb.requestTimeout)
		defer cancel()
	}

	completion, err := cb.completer.Complete(ctx, payload)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	now := cb.now()

	if err != nil {
		reply, health := classify(err)
		cb.health = health
		cb.session.Append(session.Message{Role: session.RoleAssistant, Content: reply, Timestamp: now})
		cb.logger.Warn("chat completion failed", "error", err, "status", statusOf(err), "health", health)
		return Outcome{Kind: KindFailed, Reply: reply, Health: health, Err: err}
	}

	assistant := session.Message{Role: session.RoleAssistant, Content: completion.Content, Timestamp: now}
	cb.session.Append(assistant)
	cb.session.History.AddExchange(user, assistant)
	cb.health = HealthConnected
	cb.logger.Info("chat completion succeeded", "window_turns", cb.session.History.Len())
	return Outcome{Kind: KindSucceeded, Reply: completion.Content, Health: HealthConnected}
}

func (cb *ChatBot) release() {
	cb.mu.Lock()
	cb.processing = false
	cb.mu.Unlock()
}

// Probe checks endpoint reachability and updates health. It does not touch
// the transcript, the window, or the guard.
func (cb *ChatBot) Probe(ctx context.Context) Health {
	if cb.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cb.requestTimeout)
		defer cancel()
	}

	health := HealthConnected
	if err := cb.completer.Probe(ctx); err != nil {
		_, health = classify(err)
		cb.logger.Warn("AI connection test failed", "error", err, "health", health)
	} else {
		cb.logger.Info("AI connection test successful")
	}

	cb.mu.Lock()
	cb.health = health
	cb.mu.Unlock()
	return health
}

func (cb *ChatBot) count(ctx context.Context, kind Kind) {
	if cb.submissions == nil {
		return
	}
	cb.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(kind))))
}

// record archives an accepted exchange. Archive failures only get logged.
func (cb *ChatBot) record(ctx context.Context, userText string, out Outcome) {
	if cb.recorder == nil {
		return
	}
	entry := archive.Entry{
		SessionID:  cb.session.ID,
		UserText:   userText,
		ReplyText:  out.Reply,
		Outcome:    string(out.Kind),
		StatusCode: statusOf(out.Err),
		CreatedAt:  cb.now(),
	}
	if err := cb.recorder.Record(context.WithoutCancel(ctx), entry); err != nil {
		cb.logger.Warn("failed to archive exchange", "error", err)
	}
}

// Health returns the current connection indicator.
func (cb *ChatBot) Health() Health {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.health
}

// Guard returns a snapshot of the single-flight guard.
func (cb *ChatBot) Guard() GuardState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return GuardState{Processing: cb.processing, LastRequest: cb.lastRequest}
}

// Processing reports whether a request is in flight.
func (cb *ChatBot) Processing() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.processing
}

// Transcript returns every turn shown to the user, oldest first.
func (cb *ChatBot) Transcript() []session.Message {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.session.Messages()
}

// Window returns the conversation context sent with the next request.
func (cb *ChatBot) Window() []session.Message {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.session.History.Turns()
}

// SessionID identifies this controller's session in logs and the archive.
func (cb *ChatBot) SessionID() string { return cb.session.ID }

// Suggestions returns the suggestion chip texts in display order.
func (cb *ChatBot) Suggestions() []string {
	return append([]string(nil), cb.suggestions...)
}
