package store

import (
	"go.uber.org/zap"
)

// SMSStore owns the SMS collection on the simulator side.
type SMSStore struct {
	*ListStore[SMS]
	logger *zap.Logger
}

// NewSMSStore creates an SMS store backed by the given file.
func NewSMSStore(path string, logger *zap.Logger) *SMSStore {
	return &SMSStore{ListStore: NewListStore[SMS](path), logger: logger}
}

// Send appends a new outbound SMS record and returns it.
func (s *SMSStore) Send(candidateID string, draft SMSDraft) (SMS, error) {
	messages, err := s.All()
	if err != nil {
		return SMS{}, err
	}

	next := 1
	for _, m := range messages {
		if m.SMSID >= next {
			next = m.SMSID + 1
		}
	}

	sms := SMS{
		SMSID:       next,
		CandidateID: candidateID,
		From:        draft.From,
		To:          draft.To,
		Body:        draft.Message,
		Timestamp:   Timestamp(),
		Response:    nil,
		Read:        false,
	}

	messages = append(messages, sms)
	if err := s.Replace(messages); err != nil {
		return SMS{}, err
	}

	s.logger.Info("sms recorded",
		zap.Int("sms_id", sms.SMSID),
		zap.String("candidate_id", candidateID),
	)

	return sms, nil
}

// MarkRead flips the read flag.
func (s *SMSStore) MarkRead(smsID int) (bool, error) {
	return s.update(
		func(m SMS) bool { return m.SMSID == smsID },
		func(m *SMS) { m.Read = true },
	)
}

// SaveResponse attaches the candidate's reply and marks the SMS read.
func (s *SMSStore) SaveResponse(smsID int, text string) (bool, error) {
	return s.update(
		func(m SMS) bool { return m.SMSID == smsID },
		func(m *SMS) {
			m.Response = &EmailResponse{Text: text, Timestamp: Timestamp()}
			m.Read = true
		},
	)
}
