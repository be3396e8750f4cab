package store

import (
	"math/rand/v2"

	"go.uber.org/zap"
)

// Simulator-side contact statuses.
const (
	PersonAvailable    = "Available"
	PersonNotAvailable = "Not Available"
)

// PeopleStore owns the simulator's contact records.
type PeopleStore struct {
	*ListStore[Person]
	logger *zap.Logger
}

// NewPeopleStore creates a people store backed by the given file.
func NewPeopleStore(path string, logger *zap.Logger) *PeopleStore {
	return &PeopleStore{ListStore: NewListStore[Person](path), logger: logger}
}

// FindByID returns the person with the given candidate id, or nil.
func (s *PeopleStore) FindByID(candidateID string) (*Person, error) {
	people, err := s.All()
	if err != nil {
		return nil, err
	}
	for i := range people {
		if people[i].CandidateID == candidateID {
			return &people[i], nil
		}
	}
	return nil, nil
}

// UpdateStatus sets a person's status. It reports whether the person exists.
func (s *PeopleStore) UpdateStatus(candidateID, status string) (bool, error) {
	return s.update(
		func(p Person) bool { return p.CandidateID == candidateID },
		func(p *Person) { p.Status = status },
	)
}

// FlipRandomStatuses toggles each person's availability with the given
// probability and returns the number of records changed. The simulator uses
// it to keep the candidate pool in motion.
func (s *PeopleStore) FlipRandomStatuses(probability float64) (int, error) {
	people, err := s.All()
	if err != nil {
		return 0, err
	}

	changed := 0
	for i := range people {
		if rand.Float64() >= probability {
			continue
		}
		if people[i].Status == PersonAvailable {
			people[i].Status = PersonNotAvailable
		} else {
			people[i].Status = PersonAvailable
		}
		s.logger.Debug("status flipped",
			zap.String("name", people[i].Name),
			zap.String("status", people[i].Status),
		)
		changed++
	}

	if changed == 0 {
		return 0, nil
	}

	return changed, s.Replace(people)
}
