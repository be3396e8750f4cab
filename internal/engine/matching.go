package engine

import (
	"context"

	"go.uber.org/zap"

	"hireloop/internal/store"
)

// CheckJobs runs one matching tick: sample a job, ask the agent for
// matches, reach out to each resolved candidate, persist the new state.
// An empty job set is a silent no-op.
func (e *Engine) CheckJobs(ctx context.Context) error {
	jobs, err := e.jobs.All()
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	job := jobs[e.pickJob(len(jobs))]

	e.logger.Info("checking job",
		zap.String("job_id", job.JobID),
		zap.String("title", job.Title),
		zap.String("status", job.Status),
	)

	matches := e.agent.ProposeMatches(ctx, job)
	if len(matches) == 0 {
		e.logger.Info("no matches proposed", zap.String("job_id", job.JobID))
		e.recordOffer(job, nil)
		return e.refreshMirror()
	}

	candidates, err := e.candidates.All()
	if err != nil {
		return err
	}

	for i := range matches {
		match := &matches[i]

		candidate := store.FindByName(candidates, match.Name)
		if candidate == nil {
			e.logger.Warn("proposed candidate not found",
				zap.String("name", match.Name),
				zap.String("job_id", job.JobID),
			)
			continue
		}

		draft := e.agent.DraftMessage(ctx, *candidate, job)
		match.SentEmail = &draft
		match.CandidateID = candidate.CandidateID

		// Outbound delivery is send-and-forget: a failed dispatch is logged
		// and the candidate still transitions to requested.
		if err := e.outbound.SendEmail(ctx, candidate.CandidateID, draft); err != nil {
			e.logger.Error("sending outreach email",
				zap.String("candidate_id", candidate.CandidateID),
				zap.Error(err),
			)
		}

		if _, err := e.candidates.UpdateStatus(candidate.CandidateID, store.StatusRequested, job.JobID); err != nil {
			return err
		}
		if _, err := e.candidates.AddMessage(candidate.CandidateID, draft); err != nil {
			return err
		}

		e.logger.Info("outreach sent",
			zap.String("candidate_id", candidate.CandidateID),
			zap.String("name", candidate.Name),
			zap.String("job_id", job.JobID),
			zap.Float64("score", match.Score),
		)
	}

	e.recordOffer(job, matches)
	return e.refreshMirror()
}
