package store

import (
	"go.uber.org/zap"
)

// JobStore owns the jobs collection.
type JobStore struct {
	*ListStore[Job]
	logger *zap.Logger
}

// NewJobStore creates a job store backed by the given file.
func NewJobStore(path string, logger *zap.Logger) *JobStore {
	return &JobStore{ListStore: NewListStore[Job](path), logger: logger}
}

// FindByID returns the job with the given id, or nil.
func (s *JobStore) FindByID(jobID string) (*Job, error) {
	jobs, err := s.All()
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		if jobs[i].JobID == jobID {
			return &jobs[i], nil
		}
	}
	return nil, nil
}

// UpdateAvailability is the single mutator of Job.Status and
// Job.CandidateIDs, so the filled-iff-non-empty invariant holds by
// construction: filling appends the candidate id (unique membership),
// unfilling clears the list. It reports whether the job was found.
func (s *JobStore) UpdateAvailability(jobID string, filled bool, candidateID string) (bool, error) {
	found, err := s.update(
		func(j Job) bool { return j.JobID == jobID },
		func(j *Job) {
			old := j.Status
			if filled {
				j.Status = JobFilled
				if candidateID != "" && !contains(j.CandidateIDs, candidateID) {
					j.CandidateIDs = append(j.CandidateIDs, candidateID)
				}
			} else {
				j.Status = JobUnfilled
				j.CandidateIDs = []string{}
			}
			s.logger.Info("updated job availability",
				zap.String("job_id", jobID),
				zap.String("from", old),
				zap.String("to", j.Status),
				zap.Int("candidates", len(j.CandidateIDs)),
			)
		},
	)
	if err != nil {
		return false, err
	}
	if !found {
		s.logger.Warn("job not found for availability update", zap.String("job_id", jobID))
	}
	return found, nil
}

// ResetAvailability marks every job unfilled and clears its candidate list.
// Called once at orchestrator startup so stale assignments from a previous
// run do not leak into the new one.
func (s *JobStore) ResetAvailability() error {
	jobs, err := s.All()
	if err != nil {
		return err
	}
	for i := range jobs {
		jobs[i].Status = JobUnfilled
		jobs[i].CandidateIDs = []string{}
	}
	return s.Replace(jobs)
}

func contains(items []string, v string) bool {
	for _, item := range items {
		if item == v {
			return true
		}
	}
	return false
}
