package store

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// CandidateStore owns the candidates collection.
type CandidateStore struct {
	*ListStore[Candidate]
	logger *zap.Logger
}

// NewCandidateStore creates a candidate store backed by the given file.
func NewCandidateStore(path string, logger *zap.Logger) *CandidateStore {
	return &CandidateStore{ListStore: NewListStore[Candidate](path), logger: logger}
}

// FindByID returns the candidate with the given id, or nil.
func (s *CandidateStore) FindByID(candidateID string) (*Candidate, error) {
	candidates, err := s.All()
	if err != nil {
		return nil, err
	}
	return FindByID(candidates, candidateID), nil
}

// UpdateStatus is the single mutator of Candidate.Status and
// Candidate.JobID. It reports whether the candidate was found.
func (s *CandidateStore) UpdateStatus(candidateID, status, jobID string) (bool, error) {
	return s.update(
		func(c Candidate) bool { return c.CandidateID == candidateID },
		func(c *Candidate) {
			c.Status = status
			c.JobID = jobID
		},
	)
}

// AddMessage appends an opaque record to the candidate's message history.
func (s *CandidateStore) AddMessage(candidateID string, message any) (bool, error) {
	raw, err := json.Marshal(message)
	if err != nil {
		return false, fmt.Errorf("encoding message for candidate %s: %w", candidateID, err)
	}

	return s.update(
		func(c Candidate) bool { return c.CandidateID == candidateID },
		func(c *Candidate) {
			c.Messages = append(c.Messages, raw)
		},
	)
}

// ClearMessages drops every candidate's message history. Called once at
// orchestrator startup together with JobStore.ResetAvailability.
func (s *CandidateStore) ClearMessages() error {
	candidates, err := s.All()
	if err != nil {
		return err
	}
	for i := range candidates {
		candidates[i].Messages = nil
	}
	return s.Replace(candidates)
}

// FindByName returns the first candidate with the given name, or nil.
// Duplicate names resolve to store order; that is a data-quality assumption,
// not a guarantee.
func FindByName(candidates []Candidate, name string) *Candidate {
	for i := range candidates {
		if candidates[i].Name == name {
			return &candidates[i]
		}
	}
	return nil
}

// FindByID returns the candidate with the given id from the slice, or nil.
func FindByID(candidates []Candidate, candidateID string) *Candidate {
	for i := range candidates {
		if candidates[i].CandidateID == candidateID {
			return &candidates[i]
		}
	}
	return nil
}
