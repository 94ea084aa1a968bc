// Package judge orchestrates a code submission end to end: hand the
// source and the problem's canonical input to the external execution
// engine, poll for a terminal verdict within a fixed budget, compare
// normalized output, and claim the win through the lifecycle manager.
package judge

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/codeduels/duel-server/internal/apperr"
	"github.com/codeduels/duel-server/internal/problem"
	"github.com/codeduels/duel-server/internal/store"
)

// Verdict statuses surfaced to the submitting client. Timeout and
// engine failures travel as errors instead, so an errored submission
// never touches duel state.
const (
	StatusAccepted       = "accepted"
	StatusWrongAnswer    = "wrong_answer"
	StatusAlreadyDecided = "already_decided"
)

type Verdict struct {
	Status   string `json:"status"`
	Winner   string `json:"winner,omitempty"`
	Message  string `json:"message"`
	Produced string `json:"produced,omitempty"`
	Expected string `json:"expected,omitempty"`
}

// languageIDs is the fixed supported set, keyed by the declared
// language name, valued by the engine's language id.
var languageIDs = map[string]int{
	"javascript": 63,
	"python":     71,
	"cpp":        54,
	"go":         60,
}

// Completer is the slice of the lifecycle manager the judge needs.
type Completer interface {
	Complete(ctx context.Context, duelID, winnerID string) (bool, error)
}

type Judge struct {
	engine    EngineClient
	store     store.Store
	completer Completer
	log       *zap.SugaredLogger

	pollInterval time.Duration
	pollAttempts int
}

func New(engine EngineClient, st store.Store, completer Completer, pollInterval time.Duration, pollAttempts int, log *zap.SugaredLogger) *Judge {
	return &Judge{
		engine:       engine,
		store:        st,
		completer:    completer,
		log:          log,
		pollInterval: pollInterval,
		pollAttempts: pollAttempts,
	}
}

// Submit runs the full pipeline for one submission. Validation
// failures reject before any external call; an already-decided duel
// short-circuits to the same verdict a lost completion race produces.
func (j *Judge) Submit(ctx context.Context, duelID, submitterID, source, language string) (Verdict, error) {
	langID, ok := languageIDs[strings.ToLower(strings.TrimSpace(language))]
	if !ok {
		return Verdict{}, apperr.Validation("unsupported language %q", language)
	}
	if strings.TrimSpace(source) == "" {
		return Verdict{}, apperr.Validation("source code is empty")
	}

	d, err := j.store.Get(ctx, duelID)
	if err != nil {
		return Verdict{}, err
	}
	if d.Status == store.StatusCompleted {
		return Verdict{Status: StatusAlreadyDecided, Winner: d.Winner, Message: "duel already decided"}, nil
	}

	p := problem.FirstFor(d.Questions, problem.Difficulty(d.Difficulty))

	token, err := j.engine.Submit(ctx, EngineSubmission{
		SourceCode: source,
		LanguageID: langID,
		Stdin:      p.Stdin,
	})
	if err != nil {
		return Verdict{}, apperr.Execution("engine submission failed", err)
	}
	j.log.Debugw("submission queued", "duel", duelID, "token", token)

	res, err := j.poll(ctx, token)
	if err != nil {
		return Verdict{}, err
	}

	if normalize(res.Stdout) != normalize(p.ExpectedOutput) {
		msg := "incorrect output"
		if res.StatusID != engineStatusAccepted && res.Message != "" {
			msg = res.Message
		}
		return Verdict{
			Status:   StatusWrongAnswer,
			Message:  msg,
			Produced: res.Stdout,
			Expected: p.ExpectedOutput,
		}, nil
	}

	won, err := j.completer.Complete(ctx, duelID, submitterID)
	if err != nil {
		return Verdict{}, err
	}
	if !won {
		return Verdict{Status: StatusAlreadyDecided, Message: "duel already decided"}, nil
	}
	return Verdict{Status: StatusAccepted, Winner: submitterID, Message: "correct answer"}, nil
}

// poll checks the token at the fixed interval until a terminal status
// or the attempt budget runs out.
func (j *Judge) poll(ctx context.Context, token string) (EngineResult, error) {
	for attempt := 0; attempt < j.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return EngineResult{}, apperr.Execution("submission cancelled", ctx.Err())
		case <-time.After(j.pollInterval):
		}

		res, err := j.engine.Status(ctx, token)
		if err != nil {
			return EngineResult{}, apperr.Execution("engine polling failed", err)
		}
		if res.Terminal() {
			return res, nil
		}
	}
	return EngineResult{}, apperr.ExecutionTimeout("judging timed out waiting for the engine")
}

// normalize strips every whitespace rune, so "[0, 1]\n" and "[0,1]"
// compare equal.
func normalize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
