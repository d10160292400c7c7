package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"ai-learning-assistant-be/internal/pkg/logger"
	"ai-learning-assistant-be/pkg/assistant/conversation"
	"ai-learning-assistant-be/pkg/assistant/document"
	"ai-learning-assistant-be/pkg/assistant/query"
	"ai-learning-assistant-be/pkg/events"
)

const module = "SessionController"

const (
	GreetingMessage = "Your document has been processed. You can now ask me questions about it."
	ErrorPrefix     = "Failed to get response from AI: "
	ApologyPrefix   = "Sorry, I encountered an error. "
)

type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseReady    Phase = "ready"
	PhaseQuerying Phase = "querying"
)

// State is a read-only snapshot of a session.
type State struct {
	SessionID string
	Phase     Phase
	Document  *document.DocumentContext
	Turns     []conversation.Turn
	Pending   bool
	LastError string
	// Seq is the sequence number of the last event reflected in this state.
	Seq uint64
}

func (s State) DocumentProcessed() bool {
	return s.Document != nil && s.Document.IsProcessed
}

// Inflight is a question whose user turn is committed but whose answer is not.
type Inflight struct {
	UserTurn conversation.Turn

	question string
	docText  string
	once     sync.Once
	exchange *Exchange
}

// Exchange pairs a user turn with the model turn that answered it.
type Exchange struct {
	User  conversation.Turn
	Reply conversation.Turn
	Err   *query.QueryError
}

// Controller owns one session: its document, its log and the single
// in-flight query. The mutex is never held across the provider call or
// while publishing.
type Controller struct {
	id        string
	answerer  query.Answerer
	publisher events.Publisher
	logger    logger.ILogger
	now       func() time.Time

	mu        sync.Mutex
	store     *document.Store
	log       *conversation.Log
	pending   bool
	lastError string
	seq       uint64

	// Events leave in seq order: a batch waits until published reaches the
	// seq just before its own.
	pubMu     sync.Mutex
	pubTurn   *sync.Cond
	published uint64
}

type Option func(*Controller)

func WithPublisher(p events.Publisher) Option {
	return func(c *Controller) {
		c.publisher = p
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

func NewController(id string, answerer query.Answerer, log logger.ILogger, opts ...Option) *Controller {
	c := &Controller{
		id:       id,
		answerer: answerer,
		logger:   log,
		now:      time.Now,
		store:    document.NewStore(),
		log:      conversation.NewLog(),
	}
	c.pubTurn = sync.NewCond(&c.pubMu)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phaseLocked()
}

func (c *Controller) phaseLocked() Phase {
	if _, ok := c.store.Current(); !ok {
		return PhaseIdle
	}
	if c.pending {
		return PhaseQuerying
	}
	return PhaseReady
}

// SubmitDocument processes a new document, resets the conversation to a
// single greeting and clears the error banner. Rejected while a query is in
// flight so its answer can never land in the wrong conversation.
func (c *Controller) SubmitDocument(ctx context.Context, text string) (document.DocumentContext, error) {
	if strings.TrimSpace(text) == "" {
		return document.DocumentContext{}, ErrEmptyDocument
	}

	c.mu.Lock()
	if c.pending {
		c.mu.Unlock()
		return document.DocumentContext{}, ErrQueryInFlight
	}

	doc := c.store.Submit(text)
	c.log = conversation.NewLog()
	greeting := conversation.NewTurn(conversation.RoleModel, GreetingMessage, c.now())
	c.log.Append(greeting)
	c.lastError = ""

	evts := []events.BaseEvent{
		c.eventLocked(EventDocumentProcessed, map[string]interface{}{"length": len(text)}),
		c.eventLocked(EventTurnAppended, turnData(greeting)),
	}
	c.mu.Unlock()

	c.publish(ctx, evts...)
	c.logger.Info(module, "Document processed", map[string]interface{}{
		"session_id": c.id,
		"length":     len(text),
	})

	return doc, nil
}

// Begin commits the user's turn and marks the session as querying.
// Returns an *InputError and changes nothing when the question is blank,
// no document is processed, or another query is outstanding.
func (c *Controller) Begin(ctx context.Context, question string) (*Inflight, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}

	c.mu.Lock()
	doc, ok := c.store.Current()
	if !ok {
		c.mu.Unlock()
		return nil, ErrNoDocument
	}
	if c.pending {
		c.mu.Unlock()
		return nil, ErrQueryInFlight
	}

	userTurn := conversation.NewTurn(conversation.RoleUser, question, c.now())
	c.log.Append(userTurn)
	c.pending = true
	c.lastError = ""

	evts := []events.BaseEvent{
		c.eventLocked(EventTurnAppended, turnData(userTurn)),
		c.eventLocked(EventQueryStarted, nil),
	}
	c.mu.Unlock()

	c.publish(ctx, evts...)

	return &Inflight{
		UserTurn: userTurn,
		question: question,
		docText:  doc.Text,
	}, nil
}

// Resolve asks the provider and commits the paired model turn. A second call
// with the same Inflight returns the first result without another provider call.
func (c *Controller) Resolve(ctx context.Context, inf *Inflight) *Exchange {
	inf.once.Do(func() {
		inf.exchange = c.resolve(ctx, inf)
	})
	return inf.exchange
}

func (c *Controller) resolve(ctx context.Context, inf *Inflight) *Exchange {
	start := c.now()
	answer, qErr := c.callAnswerer(ctx, inf)

	c.mu.Lock()
	var reply conversation.Turn
	if qErr != nil {
		c.lastError = ErrorPrefix + qErr.Message
		reply = conversation.NewTurn(conversation.RoleModel, ApologyPrefix+qErr.Message, c.now())
	} else {
		reply = conversation.NewTurn(conversation.RoleModel, answer, c.now())
	}
	c.log.Append(reply)
	c.pending = false

	finished := map[string]interface{}{"success": qErr == nil}
	if qErr != nil {
		finished["last_error"] = c.lastError
	}
	evts := []events.BaseEvent{
		c.eventLocked(EventTurnAppended, turnData(reply)),
		c.eventLocked(EventQueryFinished, finished),
	}
	c.mu.Unlock()

	// The outcome is already committed; publishing must not depend on the
	// caller still waiting.
	c.publish(context.WithoutCancel(ctx), evts...)

	details := map[string]interface{}{
		"session_id":  c.id,
		"duration_ms": c.now().Sub(start).Milliseconds(),
	}
	if qErr != nil {
		details["error"] = qErr.Message
		c.logger.Warn(module, "Question failed", details)
	} else {
		c.logger.Info(module, "Question answered", details)
	}

	return &Exchange{User: inf.UserTurn, Reply: reply, Err: qErr}
}

// callAnswerer converts every failure, including a panic, into a QueryError.
func (c *Controller) callAnswerer(ctx context.Context, inf *Inflight) (answer string, qErr *query.QueryError) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
				qErr = &query.QueryError{Message: query.UnknownErrorMessage, Cause: cause}
				return
			}
			qErr = query.AsQueryError(cause)
		}
	}()

	answer, err := c.answerer.Answer(ctx, inf.docText, inf.question)
	if err != nil {
		return "", query.AsQueryError(err)
	}
	return answer, nil
}

// Ask runs Begin and Resolve back to back.
func (c *Controller) Ask(ctx context.Context, question string) (*Exchange, error) {
	inf, err := c.Begin(ctx, question)
	if err != nil {
		return nil, err
	}
	return c.Resolve(ctx, inf), nil
}

// DismissError clears the error banner.
func (c *Controller) DismissError(ctx context.Context) {
	c.mu.Lock()
	if c.lastError == "" {
		c.mu.Unlock()
		return
	}
	c.lastError = ""
	evt := c.eventLocked(EventErrorDismissed, nil)
	c.mu.Unlock()

	c.publish(ctx, evt)
}

func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := State{
		SessionID: c.id,
		Phase:     c.phaseLocked(),
		Turns:     c.log.Turns(),
		Pending:   c.pending,
		LastError: c.lastError,
		Seq:       c.seq,
	}
	if doc, ok := c.store.Current(); ok {
		state.Document = &doc
	}
	return state
}

func (c *Controller) eventLocked(eventType string, data map[string]interface{}) events.BaseEvent {
	c.seq++
	return newEvent(c.id, c.seq, eventType, data)
}

// publish sends a batch built by eventLocked. Batches from concurrent callers
// leave in the order their seqs were assigned.
func (c *Controller) publish(ctx context.Context, evts ...events.BaseEvent) {
	if c.publisher == nil || len(evts) == 0 {
		return
	}
	first, last := seqOf(evts[0]), seqOf(evts[len(evts)-1])

	c.pubMu.Lock()
	for c.published+1 != first {
		c.pubTurn.Wait()
	}
	c.pubMu.Unlock()

	defer func() {
		c.pubMu.Lock()
		c.published = last
		c.pubTurn.Broadcast()
		c.pubMu.Unlock()
	}()

	for _, evt := range evts {
		if err := c.publisher.Publish(ctx, evt); err != nil {
			c.logger.Warn(module, "Failed to publish session event", map[string]interface{}{
				"session_id": c.id,
				"event":      evt.Type,
				"error":      err.Error(),
			})
		}
	}
}
