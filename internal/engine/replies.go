package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"hireloop/internal/store"
)

// CheckReplies runs one reply tick: fetch the inbound mailbox, classify
// every newly answered email, and settle job availability. Each email id
// is classified at most once across the process lifetime.
func (e *Engine) CheckReplies(ctx context.Context) error {
	emails, err := e.inbound.Emails(ctx)
	if err != nil {
		return err
	}

	for _, email := range emails {
		if e.alreadySeen(email.EmailID) {
			continue
		}
		if email.Response == nil {
			continue
		}

		candidate, err := e.candidates.FindByID(email.CandidateID)
		if err != nil {
			return err
		}
		if candidate == nil {
			e.logger.Warn("reply from unknown candidate",
				zap.Int("email_id", email.EmailID),
				zap.String("candidate_id", email.CandidateID),
			)
			continue
		}

		classification := e.agent.ClassifyReply(ctx, email.Response.Text)

		reply := Reply{
			Candidate:      *candidate,
			Email:          email,
			Classification: classification,
			JobID:          candidate.JobID,
		}
		if !e.markSeen(reply) {
			continue
		}

		e.logger.Info("classified reply",
			zap.Int("email_id", email.EmailID),
			zap.String("candidate_id", candidate.CandidateID),
			zap.String("classification", classification),
		)

		// Availability follows the classification by substring: anything
		// containing "interested" fills the job, everything else unfills it.
		interested := strings.Contains(strings.ToLower(classification), store.ClassificationInterested)
		if candidate.JobID != "" {
			if _, err := e.jobs.UpdateAvailability(candidate.JobID, interested, candidate.CandidateID); err != nil {
				return err
			}
		} else {
			e.logger.Warn("classified reply without a job reference",
				zap.String("candidate_id", candidate.CandidateID),
			)
		}

		if _, err := e.candidates.AddMessage(candidate.CandidateID, email); err != nil {
			return err
		}
	}

	return e.refreshMirror()
}
