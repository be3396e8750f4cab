package people

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hireloop/internal/llm"
	"hireloop/internal/store"
	"hireloop/internal/utils"
)

// Simulator plays the candidate side: it answers recruiter emails and SMS
// with model-generated persona replies and keeps availability churning, so
// the orchestrator has something to react to in a local setup.
type Simulator struct {
	people  *store.PeopleStore
	emails  *store.EmailStore
	sms     *store.SMSStore
	backend llm.Backend
	logger  *zap.Logger

	// ReplyProbability is the chance an unread message gets answered on a
	// poll; the rest are read and ignored, like real candidates.
	ReplyProbability float64
	// InterestProbability is the chance a generated reply leans interested.
	InterestProbability float64
	// FlipProbability is the per-person chance of an availability flip on
	// each status pass.
	FlipProbability float64

	randFloat func() float64
}

// NewSimulator creates a simulator over the given collections and backend.
func NewSimulator(people *store.PeopleStore, emails *store.EmailStore, sms *store.SMSStore, backend llm.Backend, logger *zap.Logger) *Simulator {
	return &Simulator{
		people:              people,
		emails:              emails,
		sms:                 sms,
		backend:             backend,
		logger:              logger,
		ReplyProbability:    0.7,
		InterestProbability: 0.6,
		FlipProbability:     0.3,
		randFloat:           rand.Float64,
	}
}

// Run drives the reply and status loops until the context is cancelled.
func (s *Simulator) Run(ctx context.Context, replyInterval, statusInterval time.Duration) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		s.logger.Info("starting email reply loop", zap.Duration("interval", replyInterval))
		for {
			if n, err := s.AutoReplyEmails(ctx); err != nil {
				s.logger.Error("email reply pass failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Info("candidates replied to emails", zap.Int("count", n))
			}

			if n, err := s.AutoReplySMS(ctx); err != nil {
				s.logger.Error("sms reply pass failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Info("candidates replied to sms", zap.Int("count", n))
			}

			if err := utils.WaitFor(ctx, replyInterval); err != nil {
				return nil
			}
		}
	})

	group.Go(func() error {
		s.logger.Info("starting status churn loop", zap.Duration("interval", statusInterval))
		for {
			if n, err := s.people.FlipRandomStatuses(s.FlipProbability); err != nil {
				s.logger.Error("status churn pass failed", zap.Error(err))
			} else if n > 0 {
				s.logger.Debug("statuses flipped", zap.Int("count", n))
			}

			if err := utils.WaitFor(ctx, statusInterval); err != nil {
				return nil
			}
		}
	})

	return group.Wait()
}

// AutoReplyEmails answers unread, unanswered emails and returns how many
// replies were written.
func (s *Simulator) AutoReplyEmails(ctx context.Context) (int, error) {
	emails, err := s.emails.All()
	if err != nil {
		return 0, err
	}

	replied := 0
	for _, email := range emails {
		if email.Read || email.Response != nil {
			continue
		}

		person, err := s.people.FindByID(email.CandidateID)
		if err != nil {
			return replied, err
		}
		if person == nil {
			continue
		}

		if _, err := s.emails.MarkRead(email.EmailID); err != nil {
			return replied, err
		}

		if s.randFloat() >= s.ReplyProbability {
			s.logger.Info("candidate ignored email",
				zap.String("name", person.Name),
				zap.String("subject", email.Subject),
			)
			continue
		}

		reply, err := s.generateReply(ctx, person.Name, email.Subject, email.Body)
		if err != nil {
			s.logger.Error("generating email reply", zap.String("name", person.Name), zap.Error(err))
			continue
		}

		if _, err := s.emails.SaveResponse(email.EmailID, reply); err != nil {
			return replied, err
		}

		s.logger.Info("candidate replied",
			zap.String("name", person.Name),
			zap.Int("email_id", email.EmailID),
		)
		replied++
	}

	return replied, nil
}

// AutoReplySMS mirrors AutoReplyEmails for the SMS collection.
func (s *Simulator) AutoReplySMS(ctx context.Context) (int, error) {
	messages, err := s.sms.All()
	if err != nil {
		return 0, err
	}

	replied := 0
	for _, sms := range messages {
		if sms.Read || sms.Response != nil {
			continue
		}

		person, err := s.people.FindByID(sms.CandidateID)
		if err != nil {
			return replied, err
		}
		if person == nil {
			continue
		}

		if _, err := s.sms.MarkRead(sms.SMSID); err != nil {
			return replied, err
		}

		if s.randFloat() >= s.ReplyProbability {
			s.logger.Info("candidate ignored sms", zap.String("name", person.Name))
			continue
		}

		reply, err := s.generateReply(ctx, person.Name, "SMS", sms.Body)
		if err != nil {
			s.logger.Error("generating sms reply", zap.String("name", person.Name), zap.Error(err))
			continue
		}

		if _, err := s.sms.SaveResponse(sms.SMSID, reply); err != nil {
			return replied, err
		}

		replied++
	}

	return replied, nil
}

func (s *Simulator) generateReply(ctx context.Context, name, subject, body string) (string, error) {
	preference := "not interested"
	if s.randFloat() < s.InterestProbability {
		preference = "interested"
	}

	completion, err := s.backend.GetCompletion(ctx, []llm.Message{
		{
			Role: llm.RoleSystem,
			Content: fmt.Sprintf(
				"You are %s, a job candidate. "+
					"Reply politely to the recruiter in 1-3 sentences. "+
					"You are %s in this opportunity.",
				name, preference,
			),
		},
		{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("Recruiter's message:\nSubject: %s\nBody: %s", subject, body),
		},
	}, nil)
	if err != nil {
		return "", err
	}

	return completion.Text, nil
}

// Handler returns the simulator's HTTP surface.
func (s *Simulator) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /send-email/{id}", func(w http.ResponseWriter, r *http.Request) {
		candidateID := r.PathValue("id")

		person, err := s.people.FindByID(candidateID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if person == nil {
			http.Error(w, "candidate not found", http.StatusNotFound)
			return
		}

		var draft store.EmailDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if draft.To == "" || draft.From == "" || draft.Subject == "" {
			http.Error(w, "missing required fields: to, from, subject", http.StatusBadRequest)
			return
		}

		email, err := s.emails.Send(candidateID, draft)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{"message": "email sent", "email": email})
	})

	mux.HandleFunc("GET /emails", func(w http.ResponseWriter, r *http.Request) {
		emails, err := s.emails.All()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if id := r.URL.Query().Get("candidate_id"); id != "" {
			filtered := make([]store.Email, 0, len(emails))
			for _, e := range emails {
				if e.CandidateID == id {
					filtered = append(filtered, e)
				}
			}
			emails = filtered
		}

		writeJSON(w, emails)
	})

	mux.HandleFunc("POST /send-sms/{id}", func(w http.ResponseWriter, r *http.Request) {
		candidateID := r.PathValue("id")

		person, err := s.people.FindByID(candidateID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if person == nil {
			http.Error(w, "candidate not found", http.StatusNotFound)
			return
		}

		var draft store.SMSDraft
		if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if draft.To == "" || draft.From == "" || draft.Message == "" {
			http.Error(w, "missing required fields: to, from, message", http.StatusBadRequest)
			return
		}

		sms, err := s.sms.Send(candidateID, draft)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, map[string]any{"message": "sms sent", "sms": sms})
	})

	mux.HandleFunc("GET /sms", func(w http.ResponseWriter, _ *http.Request) {
		messages, err := s.sms.All()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, messages)
	})

	mux.HandleFunc("GET /candidates", func(w http.ResponseWriter, r *http.Request) {
		people, err := s.people.All()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if status := r.URL.Query().Get("status"); status != "" {
			filtered := make([]store.Person, 0, len(people))
			for _, p := range people {
				if p.Status == status {
					filtered = append(filtered, p)
				}
			}
			people = filtered
		}

		writeJSON(w, people)
	})

	mux.HandleFunc("PUT /update-status/{id}", func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")
		if status == "" {
			http.Error(w, "status query parameter is required", http.StatusBadRequest)
			return
		}

		found, err := s.people.UpdateStatus(r.PathValue("id"), status)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if !found {
			http.Error(w, "candidate not found", http.StatusNotFound)
			return
		}

		writeJSON(w, map[string]any{"message": "status updated"})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", contentType)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
