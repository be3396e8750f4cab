package store

import (
	"go.uber.org/zap"
)

// EmailStore owns the emails collection on the simulator side. Email ids
// are assigned monotonically from the current maximum.
type EmailStore struct {
	*ListStore[Email]
	logger *zap.Logger
}

// NewEmailStore creates an email store backed by the given file.
func NewEmailStore(path string, logger *zap.Logger) *EmailStore {
	return &EmailStore{ListStore: NewListStore[Email](path), logger: logger}
}

// Send appends a new outbound email record and returns it.
func (s *EmailStore) Send(candidateID string, draft EmailDraft) (Email, error) {
	emails, err := s.All()
	if err != nil {
		return Email{}, err
	}

	email := Email{
		EmailID:     nextEmailID(emails),
		CandidateID: candidateID,
		From:        draft.From,
		To:          draft.To,
		Subject:     draft.Subject,
		Body:        draft.Message,
		Timestamp:   Timestamp(),
		Response:    nil,
		Read:        false,
	}

	emails = append(emails, email)
	if err := s.Replace(emails); err != nil {
		return Email{}, err
	}

	s.logger.Info("email recorded",
		zap.Int("email_id", email.EmailID),
		zap.String("candidate_id", candidateID),
		zap.String("to", email.To),
	)

	return email, nil
}

// MarkRead flips the read flag. The flag is monotonic: marking an already
// read email is a no-op.
func (s *EmailStore) MarkRead(emailID int) (bool, error) {
	return s.update(
		func(e Email) bool { return e.EmailID == emailID },
		func(e *Email) { e.Read = true },
	)
}

// SaveResponse attaches the candidate's reply and marks the email read.
func (s *EmailStore) SaveResponse(emailID int, text string) (bool, error) {
	return s.update(
		func(e Email) bool { return e.EmailID == emailID },
		func(e *Email) {
			e.Response = &EmailResponse{Text: text, Timestamp: Timestamp()}
			e.Read = true
		},
	)
}

func nextEmailID(emails []Email) int {
	next := 1
	for _, e := range emails {
		if e.EmailID >= next {
			next = e.EmailID + 1
		}
	}
	return next
}
