// Package engine runs the two recruiting workflows: the matching loop
// pairs open jobs with candidates and sends outreach, the reply loop
// classifies inbound answers and settles job availability. Both loops
// share an in-memory mirror of the current state, read by the status
// surface.
package engine

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hireloop/internal/store"
	"hireloop/internal/utils"
)

// Agent produces the model-backed decisions of the workflow.
type Agent interface {
	ProposeMatches(ctx context.Context, job store.Job) []store.Match
	DraftMessage(ctx context.Context, candidate store.Candidate, job store.Job) store.EmailDraft
	ClassifyReply(ctx context.Context, replyText string) string
}

// Outbound dispatches outreach messages to candidates.
type Outbound interface {
	SendEmail(ctx context.Context, candidateID string, draft store.EmailDraft) error
}

// Inbound exposes the candidate-side mailbox.
type Inbound interface {
	Emails(ctx context.Context) ([]store.Email, error)
}

// Reply is one classified inbound email, recorded once per email id.
type Reply struct {
	Candidate      store.Candidate `json:"candidate"`
	Email          store.Email     `json:"email"`
	Classification string          `json:"classification"`
	JobID          string          `json:"job_id"`
}

// Offer is the most recent matching outcome for a job.
type Offer struct {
	Job     store.Job     `json:"job"`
	Matches []store.Match `json:"matches"`
}

// Snapshot is a point-in-time copy of the mirror, safe to hand out.
type Snapshot struct {
	Jobs       []store.Job       `json:"jobs"`
	Candidates []store.Candidate `json:"candidates"`
	Offers     []Offer           `json:"offers"`
	Replies    []Reply           `json:"replies"`
}

// Engine owns the mirror and drives both loops. Loops are single
// goroutines, so each collection has exactly one writer; the mutex exists
// for the read-only status surface.
type Engine struct {
	jobs       *store.JobStore
	candidates *store.CandidateStore
	agent      Agent
	outbound   Outbound
	inbound    Inbound
	logger     *zap.Logger

	mu      sync.RWMutex
	mirror  Snapshot
	seen    map[int]struct{}
	pickJob func(n int) int
}

// New creates an engine over the given stores, agent, and transports.
func New(jobs *store.JobStore, candidates *store.CandidateStore, agent Agent, outbound Outbound, inbound Inbound, logger *zap.Logger) *Engine {
	return &Engine{
		jobs:       jobs,
		candidates: candidates,
		agent:      agent,
		outbound:   outbound,
		inbound:    inbound,
		logger:     logger,
		seen:       make(map[int]struct{}),
		pickJob:    rand.IntN,
	}
}

// Run drives both loops until the context is cancelled. Cancellation is
// observed between ticks; in-flight ticks finish first.
func (e *Engine) Run(ctx context.Context, matchInterval, replyInterval time.Duration) error {
	if err := e.refreshMirror(); err != nil {
		return err
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		e.logger.Info("starting matching loop", zap.Duration("interval", matchInterval))
		for {
			if err := e.CheckJobs(ctx); err != nil {
				e.logger.Error("matching tick failed", zap.Error(err))
			}
			if err := utils.WaitFor(ctx, matchInterval); err != nil {
				return nil
			}
		}
	})

	group.Go(func() error {
		e.logger.Info("starting reply loop", zap.Duration("interval", replyInterval))
		for {
			if err := e.CheckReplies(ctx); err != nil {
				e.logger.Error("reply tick failed", zap.Error(err))
			}
			if err := utils.WaitFor(ctx, replyInterval); err != nil {
				return nil
			}
		}
	})

	return group.Wait()
}

// Snapshot returns a copy of the mirror for the status surface.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	snap := Snapshot{
		Jobs:       append([]store.Job(nil), e.mirror.Jobs...),
		Candidates: append([]store.Candidate(nil), e.mirror.Candidates...),
		Offers:     append([]Offer(nil), e.mirror.Offers...),
		Replies:    append([]Reply(nil), e.mirror.Replies...),
	}
	return snap
}

// refreshMirror reloads the jobs and candidates views from disk.
func (e *Engine) refreshMirror() error {
	jobs, err := e.jobs.All()
	if err != nil {
		return err
	}
	candidates, err := e.candidates.All()
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.mirror.Jobs = jobs
	e.mirror.Candidates = candidates
	e.mu.Unlock()

	return nil
}

// recordOffer prepends the matching outcome so the freshest offer reads
// first on the status surface.
func (e *Engine) recordOffer(job store.Job, matches []store.Match) {
	e.mu.Lock()
	e.mirror.Offers = append([]Offer{{Job: job, Matches: matches}}, e.mirror.Offers...)
	e.mu.Unlock()
}

// markSeen records the reply against its email id. It reports false when
// the email was already processed.
func (e *Engine) markSeen(reply Reply) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.seen[reply.Email.EmailID]; ok {
		return false
	}
	e.seen[reply.Email.EmailID] = struct{}{}
	e.mirror.Replies = append(e.mirror.Replies, reply)
	return true
}

// alreadySeen reports whether the email id has been processed before.
func (e *Engine) alreadySeen(emailID int) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.seen[emailID]
	return ok
}
