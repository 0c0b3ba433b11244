// Package tutor runs the tutoring conversation loop: it assembles the
// persona prompt, lets the model consult the document search tool, and
// keeps the conversation memory and the session file in step.
//
// Ask never returns an error to the caller. Failures become visible
// assistant turns so the conversation record stays complete and the
// student always gets a reply.
package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/aulago/tutoria/internal/config"
	"github.com/aulago/tutoria/internal/evidence"
	"github.com/aulago/tutoria/internal/memory"
	"github.com/aulago/tutoria/internal/session"
)

// SearchToolName is the tool the model calls to look up source material.
const SearchToolName = "search_documents"

// Fallback replies for the two no-answer paths. The first covers a model
// that burned through its reasoning turns without producing text, the
// second a response that came back empty.
const (
	exhaustedReply = "I could not work that one out in time. Could you rephrase the question or split it into smaller parts?"
	emptyReply     = "I don't have a good answer for that. Could you try asking it another way?"
)

// searchInput is the schema the model fills when calling the search tool.
type searchInput struct {
	Query string `json:"query" jsonschema_description:"What to look up in the course documents"`
}

// Config holds the dependencies for the tutoring engine.
type Config struct {
	Genkit    *genkit.Genkit
	Profile   config.Profile
	Evidence  *evidence.Aggregator
	Sessions  *session.Store
	Logger    *slog.Logger
	ModelName string

	// MaxIterations bounds reasoning cycles per question (model turns
	// including tool round-trips).
	MaxIterations int

	// RateLimiter throttles model calls. Optional.
	RateLimiter *rate.Limiter

	// Retry overrides the backoff settings. Zero value means defaults.
	Retry RetryConfig
}

func (c *Config) validate() error {
	if c.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if c.Evidence == nil {
		return errors.New("evidence aggregator is required")
	}
	if c.Sessions == nil {
		return errors.New("session store is required")
	}
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.ModelName == "" {
		return errors.New("model name is required")
	}
	if c.MaxIterations < 1 {
		return errors.New("max iterations must be at least 1")
	}
	if err := c.Profile.Validate(); err != nil {
		return fmt.Errorf("profile: %w", err)
	}
	return nil
}

// Engine drives one tutoring conversation.
//
// Note: The zero value is NOT useful - use New() to create instances.
type Engine struct {
	g          *genkit.Genkit
	profile    config.Profile
	evidence   *evidence.Aggregator
	sessions   *session.Store
	logger     *slog.Logger
	modelName  string
	maxTurns   int
	limiter    *rate.Limiter
	retryCfg   RetryConfig
	searchTool ai.Tool
	system     string

	memory     *memory.Log
	sessionKey string
}

// New builds the engine, registers the search tool, and resumes today's
// session for the profile if one exists on disk.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid tutor config: %w", err)
	}

	retryCfg := cfg.Retry
	if retryCfg.MaxRetries == 0 && retryCfg.InitialInterval == 0 {
		retryCfg = DefaultRetryConfig()
	}

	e := &Engine{
		g:         cfg.Genkit,
		profile:   cfg.Profile,
		evidence:  cfg.Evidence,
		sessions:  cfg.Sessions,
		logger:    cfg.Logger,
		modelName: cfg.ModelName,
		maxTurns:  cfg.MaxIterations,
		limiter:   cfg.RateLimiter,
		retryCfg:  retryCfg,
		system:    buildSystemPrompt(cfg.Profile),
		memory:    memory.NewLog(),
	}

	e.searchTool = genkit.DefineTool(cfg.Genkit, SearchToolName,
		"Search the course documents for passages relevant to a question. "+
			"Call this before answering any factual question about the material.",
		func(tctx *ai.ToolContext, input searchInput) (string, error) {
			return e.evidence.Gather(tctx, input.Query), nil
		})

	if err := e.LoadSession(e.profile.SessionKey(time.Now())); err != nil {
		return nil, err
	}
	return e, nil
}

// SessionKey returns the key of the conversation currently in memory.
func (e *Engine) SessionKey() string { return e.sessionKey }

// History returns a copy of the in-memory conversation turns.
func (e *Engine) History() []memory.Turn { return e.memory.Turns() }

// Clear drops the in-memory conversation. The session file is untouched
// until the next Ask or Save overwrites it.
func (e *Engine) Clear() { e.memory.Clear() }

// Greeting returns the tutor's opening line. It is shown to the student
// but never stored as a conversation turn.
func (e *Engine) Greeting() string {
	titles := make([]string, len(e.profile.Documents))
	for i, doc := range e.profile.Documents {
		titles[i] = doc.Title
	}
	return fmt.Sprintf("Hello! I'm %s, your %s. Ask me anything about %s.",
		e.profile.Name, e.profile.Role, strings.Join(titles, ", "))
}

// LoadSession replaces the in-memory conversation with the stored session
// under key. A missing session yields an empty conversation.
func (e *Engine) LoadSession(key string) error {
	turns, err := e.sessions.Load(key)
	if err != nil {
		return fmt.Errorf("loading session %q: %w", key, err)
	}
	e.memory.SetTurns(toMemoryTurns(turns))
	e.memory.CapTo(memory.ActiveLimit)
	e.sessionKey = key
	e.logger.Debug("session loaded", "key", key, "turns", e.memory.Len())
	return nil
}

// Save writes the in-memory conversation to the current session file.
func (e *Engine) Save() error {
	return e.sessions.Save(e.sessionKey, toSessionTurns(e.memory.Turns()))
}

// Ask answers one student question. It records the question, runs the
// model with the search tool under the iteration cap, records the reply,
// and persists the session before trimming memory to its active window.
//
// Ask always returns a displayable answer. Model failures come back as
// an apologetic assistant turn naming the error, and both outcomes are
// persisted the same way.
func (e *Engine) Ask(ctx context.Context, question string) string {
	recent := e.memory.Recent(memory.DefaultRecentTurns)
	e.memory.Append(memory.RoleUser, question)

	answer := e.generate(ctx, recent, question)
	e.memory.Append(memory.RoleAssistant, answer)

	if err := e.Save(); err != nil {
		// The conversation survives in memory; losing one save is
		// recoverable on the next turn.
		e.logger.Warn("session save failed", "key", e.sessionKey, "error", err)
	}
	e.memory.CapTo(memory.ActiveLimit)
	return answer
}

// generate runs one model exchange and maps every failure mode to a
// displayable answer.
func (e *Engine) generate(ctx context.Context, recent, question string) string {
	prompt := buildUserPrompt(recent, question)

	resp, err := e.generateWithRetry(ctx,
		ai.WithModelName(e.modelName),
		ai.WithSystem(e.system),
		ai.WithPrompt(prompt),
		ai.WithTools(e.searchTool),
		ai.WithMaxTurns(e.maxTurns),
		ai.WithConfig(&ai.GenerationCommonConfig{
			Temperature:     e.profile.Temperature,
			MaxOutputTokens: e.profile.MaxTokens,
		}),
	)
	switch {
	case err != nil && iterationCapReached(err):
		e.logger.Warn("reasoning iteration cap reached",
			"max_iterations", e.maxTurns, "question_len", len(question))
		return exhaustedReply
	case err != nil:
		e.logger.Error("generation failed", "error", err)
		return fmt.Sprintf("I ran into a problem while answering: %v. Please try again.", err)
	}

	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		e.logger.Warn("model returned empty response")
		return emptyReply
	}
	return answer
}

// iterationCapReached reports whether err is the generation loop refusing
// to run another tool cycle. Matched on the message text because the
// underlying library does not expose a sentinel for it.
func iterationCapReached(err error) bool {
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "exceeded") && !strings.Contains(msg, "max") {
		return false
	}
	return strings.Contains(msg, "turn") || strings.Contains(msg, "iteration")
}

// buildSystemPrompt renders the profile as the tutor persona instructions.
func buildSystemPrompt(p config.Profile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s.\n", p.Name, p.Role)
	fmt.Fprintf(&b, "Teaching style: %s. Detail level: %s.\n\n", p.Style, p.DetailLevel)
	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Before answering any factual question about the material, call the %s tool and base your answer on what it returns.\n", SearchToolName)
	b.WriteString("- Quote or paraphrase the retrieved passages; do not invent facts that are not in them.\n")
	b.WriteString("- Cite the source titles shown in brackets when you use retrieved material.\n")
	b.WriteString("- If the search finds nothing relevant, say so and suggest the student rephrase the question.\n")
	b.WriteString("- Answer in the same language the student writes in.\n")
	b.WriteString("- Stay on the subject you teach; politely decline unrelated requests.\n")
	b.WriteString("- Keep the tone encouraging and address the student directly.\n")
	return b.String()
}

// buildUserPrompt prepends the recent conversation so the model can
// resolve follow-up references.
func buildUserPrompt(recent, question string) string {
	if recent == "" {
		return question
	}
	return "Previous conversation:\n" + recent + "\n\nStudent question: " + question
}

func toMemoryTurns(turns []session.Turn) []memory.Turn {
	out := make([]memory.Turn, len(turns))
	for i, t := range turns {
		out[i] = memory.Turn{Role: t.Role, Content: t.Content, Timestamp: t.Timestamp}
	}
	return out
}

func toSessionTurns(turns []memory.Turn) []session.Turn {
	out := make([]session.Turn, len(turns))
	for i, t := range turns {
		out[i] = session.Turn{Role: t.Role, Content: t.Content, Timestamp: t.Timestamp}
	}
	return out
}
