// Package store holds the persisted collections of the recruiting system.
//
// Each collection is a flat JSON file shared with other processes (the
// candidate simulator writes emails and SMS, a CRUD surface may edit jobs
// and candidates). Reads always go back to disk so every caller observes
// the latest write; mutations are read-modify-write through a single typed
// mutator per collection.
package store

import (
	"encoding/json"
	"time"
)

// Candidate lifecycle statuses.
const (
	StatusAvailable   = "available"
	StatusRequested   = "requested"
	StatusUnavailable = "unavailable"
	StatusAssigned    = "assigned"
)

// Job statuses. A job is filled iff it has at least one candidate id.
const (
	JobUnfilled = "unfilled"
	JobFilled   = "filled"
)

// Classification tokens produced by the classify-reply agent. Tokens are
// matched case-insensitively by substring; anything that does not contain
// "interested" counts as a rejection.
const (
	ClassificationInterested = "interested"
	ClassificationRejected   = "rejected"
	ClassificationUnclear    = "unclear"
)

// Job is an open position to fill.
type Job struct {
	JobID        string   `json:"job_id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Skills       []string `json:"skills"`
	Status       string   `json:"status"`
	CandidateIDs []string `json:"candidate_ids"`
}

// Candidate is a person the recruiter can reach out to. Messages is an
// append-only history of opaque records (drafts sent, raw inbound emails).
type Candidate struct {
	CandidateID string            `json:"candidate_id"`
	Name        string            `json:"name"`
	Email       string            `json:"email"`
	Phone       string            `json:"phone"`
	Status      string            `json:"status"`
	Skills      []string          `json:"skills"`
	JobID       string            `json:"job_id"`
	Messages    []json.RawMessage `json:"messages,omitempty"`
}

// Email is a dispatched outreach message, mutated once when a reply arrives.
type Email struct {
	EmailID     int            `json:"email_id"`
	CandidateID string         `json:"candidate_id"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Subject     string         `json:"subject"`
	Body        string         `json:"body"`
	Timestamp   string         `json:"timestamp"`
	Response    *EmailResponse `json:"response"`
	Read        bool           `json:"read"`
}

// EmailResponse is the candidate's reply attached to an email record.
type EmailResponse struct {
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// SMS mirrors Email for the text-message transport.
type SMS struct {
	SMSID       int            `json:"sms_id"`
	CandidateID string         `json:"candidate_id"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Body        string         `json:"body"`
	Timestamp   string         `json:"timestamp"`
	Response    *EmailResponse `json:"response"`
	Read        bool           `json:"read"`
}

// Person is a contact record on the candidate-simulator side. Its status
// vocabulary is the simulator's own ("Available"/"Not Available") and is
// independent of the Candidate lifecycle.
type Person struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Status      string `json:"status"`
}

// Match is a candidate/job pairing proposed by the model for one matching
// cycle. It is decoded from model output, so the fields tolerate loose
// typing upstream.
type Match struct {
	CandidateID string      `json:"candidate_id" mapstructure:"candidate_id"`
	Name        string      `json:"name" mapstructure:"name"`
	JobID       string      `json:"job_id" mapstructure:"job_id"`
	Score       float64     `json:"score" mapstructure:"score"`
	Skills      []string    `json:"skills" mapstructure:"skills"`
	Reasons     []string    `json:"reasons" mapstructure:"reasons"`
	Status      string      `json:"status" mapstructure:"status"`
	SentEmail   *EmailDraft `json:"sent_email,omitempty" mapstructure:"-"`
}

// EmailDraft is the outbound message payload handed to the transport.
type EmailDraft struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SMSDraft is the outbound payload for the SMS transport.
type SMSDraft struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// Timestamp returns the wall-clock time in the collections' wire format.
func Timestamp() string {
	return time.Now().Format("2006-01-02 15:04:05")
}
