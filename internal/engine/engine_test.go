package engine

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"hireloop/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubAgent struct {
	matches        []store.Match
	draftBody      string
	classification string

	proposeCalls  int
	proposedJobs  []string
	classifyCalls int
}

func (a *stubAgent) ProposeMatches(_ context.Context, job store.Job) []store.Match {
	a.proposeCalls++
	a.proposedJobs = append(a.proposedJobs, job.JobID)
	return a.matches
}

func (a *stubAgent) DraftMessage(_ context.Context, candidate store.Candidate, _ store.Job) store.EmailDraft {
	return store.EmailDraft{
		To:      candidate.Email,
		From:    "recruiter@company.com",
		Subject: "Job Opportunity",
		Message: a.draftBody,
	}
}

func (a *stubAgent) ClassifyReply(_ context.Context, _ string) string {
	a.classifyCalls++
	return a.classification
}

type stubOutbound struct {
	sent []string
	err  error
}

func (o *stubOutbound) SendEmail(_ context.Context, candidateID string, _ store.EmailDraft) error {
	if o.err != nil {
		return o.err
	}
	o.sent = append(o.sent, candidateID)
	return nil
}

type stubInbound struct {
	emails []store.Email
}

func (i *stubInbound) Emails(_ context.Context) ([]store.Email, error) {
	return i.emails, nil
}

type fixture struct {
	engine     *Engine
	jobs       *store.JobStore
	candidates *store.CandidateStore
	agent      *stubAgent
	outbound   *stubOutbound
	inbound    *stubInbound
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	logger := zap.NewNop()

	jobs := store.NewJobStore(filepath.Join(dir, "jobs.json"), logger)
	candidates := store.NewCandidateStore(filepath.Join(dir, "candidates.json"), logger)

	require.NoError(t, jobs.Replace([]store.Job{{
		JobID:  "J1",
		Title:  "Backend Engineer",
		Skills: []string{"Python", "SQL"},
		Status: store.JobUnfilled,
	}}))
	require.NoError(t, candidates.Replace([]store.Candidate{{
		CandidateID: "C1",
		Name:        "Ada",
		Email:       "ada@example.org",
		Status:      store.StatusAvailable,
		Skills:      []string{"Python"},
	}}))

	agent := &stubAgent{classification: store.ClassificationUnclear}
	outbound := &stubOutbound{}
	inbound := &stubInbound{}

	e := New(jobs, candidates, agent, outbound, inbound, logger)
	e.pickJob = func(int) int { return 0 }

	return &fixture{engine: e, jobs: jobs, candidates: candidates, agent: agent, outbound: outbound, inbound: inbound}
}

func TestCheckJobsSendsOutreach(t *testing.T) {
	f := newFixture(t)
	f.agent.matches = []store.Match{{Name: "Ada", JobID: "J1", Score: 92}}
	f.agent.draftBody = "Hi Ada, interested in a backend role?"

	require.NoError(t, f.engine.CheckJobs(context.Background()))

	assert.Equal(t, []string{"C1"}, f.outbound.sent)

	candidate, err := f.candidates.FindByID("C1")
	require.NoError(t, err)
	require.NotNil(t, candidate)
	assert.Equal(t, store.StatusRequested, candidate.Status)
	assert.Equal(t, "J1", candidate.JobID)
	assert.Len(t, candidate.Messages, 1)

	snap := f.engine.Snapshot()
	require.Len(t, snap.Offers, 1)
	assert.Equal(t, "J1", snap.Offers[0].Job.JobID)
	require.Len(t, snap.Offers[0].Matches, 1)
	assert.Equal(t, "C1", snap.Offers[0].Matches[0].CandidateID)
	require.NotNil(t, snap.Offers[0].Matches[0].SentEmail)
	assert.Equal(t, "ada@example.org", snap.Offers[0].Matches[0].SentEmail.To)
}

func TestCheckJobsEmptyJobSetIsNoOp(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.jobs.Replace(nil))

	require.NoError(t, f.engine.CheckJobs(context.Background()))

	assert.Zero(t, f.agent.proposeCalls)
	assert.Empty(t, f.engine.Snapshot().Offers)
}

func TestCheckJobsSkipsUnknownName(t *testing.T) {
	f := newFixture(t)
	f.agent.matches = []store.Match{{Name: "Nobody", JobID: "J1"}}

	require.NoError(t, f.engine.CheckJobs(context.Background()))

	assert.Empty(t, f.outbound.sent)
	candidate, err := f.candidates.FindByID("C1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusAvailable, candidate.Status)
}

func TestCheckJobsDispatchFailureStillMarksRequested(t *testing.T) {
	f := newFixture(t)
	f.agent.matches = []store.Match{{Name: "Ada", JobID: "J1"}}
	f.outbound.err = errors.New("service down")

	require.NoError(t, f.engine.CheckJobs(context.Background()))

	// A transport failure must not drop the state transition.
	candidate, err := f.candidates.FindByID("C1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusRequested, candidate.Status)
	assert.Equal(t, "J1", candidate.JobID)
	assert.Len(t, candidate.Messages, 1)
}

func TestCheckJobsSamplesJobsUniformly(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.jobs.Replace([]store.Job{
		{JobID: "J1", Title: "Backend Engineer", Status: store.JobUnfilled},
		{JobID: "J2", Title: "Data Engineer", Status: store.JobUnfilled},
		{JobID: "J3", Title: "Platform Engineer", Status: store.JobUnfilled},
	}))
	f.engine.pickJob = rand.IntN

	const ticks = 600
	for i := 0; i < ticks; i++ {
		require.NoError(t, f.engine.CheckJobs(context.Background()))
	}

	counts := make(map[string]int)
	for _, jobID := range f.agent.proposedJobs {
		counts[jobID]++
	}

	require.Len(t, counts, 3)
	for jobID, count := range counts {
		assert.InDelta(t, ticks/3, count, ticks/3*0.4, "job %s sampled unevenly", jobID)
	}
}

func answeredEmail(id int, candidateID, text string) store.Email {
	return store.Email{
		EmailID:     id,
		CandidateID: candidateID,
		Subject:     "Job Opportunity",
		Response:    &store.EmailResponse{Text: text, Timestamp: store.Timestamp()},
		Read:        true,
	}
}

func TestCheckRepliesInterestedFillsJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.candidates.UpdateStatus("C1", store.StatusRequested, "J1")
	require.NoError(t, err)

	f.agent.classification = "Interested!"
	f.inbound.emails = []store.Email{answeredEmail(1, "C1", "Sounds great, count me in.")}

	require.NoError(t, f.engine.CheckReplies(context.Background()))

	job, err := f.jobs.FindByID("J1")
	require.NoError(t, err)
	assert.Equal(t, store.JobFilled, job.Status)
	assert.Equal(t, []string{"C1"}, job.CandidateIDs)

	candidate, err := f.candidates.FindByID("C1")
	require.NoError(t, err)
	assert.Len(t, candidate.Messages, 1)

	snap := f.engine.Snapshot()
	require.Len(t, snap.Replies, 1)
	assert.Equal(t, "Interested!", snap.Replies[0].Classification)
	assert.Equal(t, "J1", snap.Replies[0].JobID)
}

func TestCheckRepliesRejectionUnfillsJob(t *testing.T) {
	f := newFixture(t)
	_, err := f.candidates.UpdateStatus("C1", store.StatusRequested, "J1")
	require.NoError(t, err)
	_, err = f.jobs.UpdateAvailability("J1", true, "C1")
	require.NoError(t, err)

	f.agent.classification = "REJECTED"
	f.inbound.emails = []store.Email{answeredEmail(1, "C1", "Not for me, thanks.")}

	require.NoError(t, f.engine.CheckReplies(context.Background()))

	job, err := f.jobs.FindByID("J1")
	require.NoError(t, err)
	assert.Equal(t, store.JobUnfilled, job.Status)
	assert.Empty(t, job.CandidateIDs)
}

func TestCheckRepliesReplayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	_, err := f.candidates.UpdateStatus("C1", store.StatusRequested, "J1")
	require.NoError(t, err)

	f.agent.classification = "interested"
	f.inbound.emails = []store.Email{answeredEmail(1, "C1", "Yes!")}

	require.NoError(t, f.engine.CheckReplies(context.Background()))
	require.NoError(t, f.engine.CheckReplies(context.Background()))

	assert.Equal(t, 1, f.agent.classifyCalls)
	assert.Len(t, f.engine.Snapshot().Replies, 1)

	candidate, err := f.candidates.FindByID("C1")
	require.NoError(t, err)
	assert.Len(t, candidate.Messages, 1)
}

func TestCheckRepliesSkipsUnanswered(t *testing.T) {
	f := newFixture(t)
	f.inbound.emails = []store.Email{{EmailID: 1, CandidateID: "C1"}}

	require.NoError(t, f.engine.CheckReplies(context.Background()))

	assert.Zero(t, f.agent.classifyCalls)
	assert.Empty(t, f.engine.Snapshot().Replies)
}

func TestCheckRepliesSkipsUnknownCandidate(t *testing.T) {
	f := newFixture(t)
	f.inbound.emails = []store.Email{answeredEmail(1, "ghost", "hello")}

	require.NoError(t, f.engine.CheckReplies(context.Background()))

	assert.Zero(t, f.agent.classifyCalls)
	assert.Empty(t, f.engine.Snapshot().Replies)
}

func TestSnapshotIsACopy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.refreshMirror())

	snap := f.engine.Snapshot()
	require.Len(t, snap.Jobs, 1)
	snap.Jobs[0].Status = "mutated"

	assert.Equal(t, store.JobUnfilled, f.engine.Snapshot().Jobs[0].Status)
}
