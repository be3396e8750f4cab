// Package agents holds the three narrow prompt-build-and-parse operations
// of the recruiting workflow: propose matches for a job, draft an outreach
// email, classify a candidate reply.
//
// Every agent swallows its own failures and answers with a safe default —
// an empty match list, an addressed draft with an empty body, the neutral
// "unclear" token. The scheduled tick interval is the retry mechanism; no
// agent retries within a call.
package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"hireloop/internal/parse"
	"hireloop/internal/store"
	"hireloop/internal/utils"
)

const (
	defaultSubject = "Job Opportunity"
	previewLimit   = 200
)

// ToolChat answers a free-text query, possibly via remote tools.
type ToolChat interface {
	Process(ctx context.Context, query string) (string, error)
}

// Agents bundles the three operations around one protocol client.
type Agents struct {
	chat        ToolChat
	senderEmail string
	logger      *zap.Logger
}

// New creates the agent set. senderEmail is the From address stamped on
// every draft.
func New(chat ToolChat, senderEmail string, logger *zap.Logger) *Agents {
	return &Agents{
		chat:        chat,
		senderEmail: senderEmail,
		logger:      logger,
	}
}

// ProposeMatches asks the model for candidates fitting the job. Failures
// yield an empty list.
func (a *Agents) ProposeMatches(ctx context.Context, job store.Job) []store.Match {
	jobJSON, err := json.Marshal(job)
	if err != nil {
		a.logger.Error("encoding job for prompt", zap.Error(err))
		return nil
	}

	prompt := fmt.Sprintf(
		"Give me 2 or 3 candidates who are available for the job %s "+
			"that have a good match with skills. "+
			"Be really generous with the matching. "+
			"Return as formatted json list only and include "+
			"a skills list and a reasons list, job_id, status, candidate_id, name (of the candidate), "+
			"and a score as a percentage from 0 to 100. "+
			"Return an empty list if no candidates are available. "+
			"Return as json only and nothing else.",
		jobJSON,
	)

	a.logger.Debug("propose matches prompt",
		zap.String("job_id", job.JobID),
		zap.String("preview", utils.TruncateForLog(prompt, previewLimit)),
	)

	response, err := a.chat.Process(ctx, prompt)
	if err != nil {
		a.logger.Error("propose matches failed", zap.String("job_id", job.JobID), zap.Error(err))
		return nil
	}

	matches, err := decodeMatches(response)
	if err != nil {
		a.logger.Error("parsing proposed matches",
			zap.String("job_id", job.JobID),
			zap.Error(err),
			zap.String("raw", utils.TruncateForLog(response, previewLimit)),
		)
		return nil
	}

	return matches
}

// DraftMessage writes the outreach email for a candidate/job pair. The
// returned draft is always addressed; on failure its body is empty and the
// match proceeds regardless.
func (a *Agents) DraftMessage(ctx context.Context, candidate store.Candidate, job store.Job) store.EmailDraft {
	draft := store.EmailDraft{
		To:      candidate.Email,
		From:    a.senderEmail,
		Subject: defaultSubject,
	}

	prompt := fmt.Sprintf(
		"Write a short (80 words) email to ask %s "+
			"if they would like a job %q. %s "+
			"Please return as plain text.",
		candidate.Name, job.Title, job.Description,
	)

	response, err := a.chat.Process(ctx, prompt)
	if err != nil {
		a.logger.Error("drafting message failed",
			zap.String("candidate_id", candidate.CandidateID),
			zap.String("job_id", job.JobID),
			zap.Error(err),
		)
		return draft
	}

	draft.Message = parse.Clean(response)

	a.logger.Debug("drafted message",
		zap.String("candidate_id", candidate.CandidateID),
		zap.String("preview", utils.TruncateForLog(draft.Message, previewLimit)),
	)

	return draft
}

// ClassifyReply labels a candidate's reply text. Failures and empty model
// answers yield the neutral "unclear" token. The token is returned as-is:
// availability is decided downstream by the case-insensitive "interested"
// substring rule, so multi-word answers are acceptable.
func (a *Agents) ClassifyReply(ctx context.Context, replyText string) string {
	prompt := fmt.Sprintf(
		"Classify the following email in terms of: 'interested' or 'rejected'. "+
			"%s "+
			"Return with a single classification.",
		replyText,
	)

	response, err := a.chat.Process(ctx, prompt)
	if err != nil {
		a.logger.Error("classifying reply failed", zap.Error(err))
		return store.ClassificationUnclear
	}

	classification := parse.Clean(response)
	if classification == "" {
		return store.ClassificationUnclear
	}

	return classification
}

// decodeMatches parses the model's JSON list and coerces it into match
// records. Decoding is weak on purpose: models mix numbers and strings for
// ids and scores.
func decodeMatches(response string) ([]store.Match, error) {
	var raw []map[string]any
	if err := parse.JSON(response, &raw); err != nil {
		return nil, err
	}

	matches := make([]store.Match, 0, len(raw))
	for i, item := range raw {
		var match store.Match
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &match,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(item); err != nil {
			return nil, fmt.Errorf("match %d: %w", i, err)
		}
		if strings.TrimSpace(match.Name) == "" {
			return nil, fmt.Errorf("match %d: missing candidate name", i)
		}
		matches = append(matches, match)
	}

	return matches, nil
}
