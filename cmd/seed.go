package cmd

import (
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"hireloop/internal/logger"
	"hireloop/internal/store"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var prompt = promptui.Select{
	Label: "Existing data files will be overwritten. Proceed?",
	Items: []string{PromptYes, PromptNo},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate fixture data: people, candidates, and jobs",
	Run: func(cmd *cobra.Command, _ []string) {
		seed(cmd)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)

	seedCmd.Flags().IntP("people", "p", 5, "number of people to generate")
	seedCmd.Flags().IntP("jobs", "n", 8, "number of jobs to generate")
	seedCmd.Flags().BoolP("auto-approve", "y", false, "do not ask for confirmation before overwriting")
}

var firstNames = []string{
	"Ada", "Grace", "Alan", "Linus", "Margaret", "Dennis", "Barbara", "Ken",
	"Donald", "Radia", "Guido", "Bjarne",
}

var lastNames = []string{
	"Lovelace", "Hopper", "Turing", "Torvalds", "Hamilton", "Ritchie",
	"Liskov", "Thompson", "Knuth", "Perlman", "Rossum", "Stroustrup",
}

var skillPool = []string{
	"Python", "JavaScript", "SQL", "AWS", "Docker", "Kubernetes",
	"React", "Django", "Flask", "Machine Learning",
}

var titleTemplates = []string{
	"%s Engineer", "Senior %s Developer", "%s Platform Engineer",
	"Lead %s Specialist",
}

func seed(cmd *cobra.Command) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	peopleCount, _ := cmd.Flags().GetInt("people")
	jobCount, _ := cmd.Flags().GetInt("jobs")

	if hasExistingData(config.Data.Dir) && cmd.Flag("auto-approve").Value.String() == "false" {
		_, action, err := prompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
		if action == PromptNo {
			logger.Info("exiting", zap.String("reason", "got no from prompt"))
			return
		}
	}

	if err := os.MkdirAll(config.Data.Dir, 0o755); err != nil {
		logger.Fatal("creating data directory", zap.Error(err))
	}

	people := generatePeople(peopleCount)
	candidates := generateCandidates(people)
	jobs := generateJobs(jobCount)

	peopleStore := store.NewPeopleStore(filepath.Join(config.Data.Dir, "people.json"), logger)
	candidateStore := store.NewCandidateStore(filepath.Join(config.Data.Dir, "candidates.json"), logger)
	jobStore := store.NewJobStore(filepath.Join(config.Data.Dir, "jobs.json"), logger)
	emailStore := store.NewEmailStore(filepath.Join(config.Data.Dir, "emails.json"), logger)
	smsStore := store.NewSMSStore(filepath.Join(config.Data.Dir, "sms.json"), logger)

	if err := peopleStore.Replace(people); err != nil {
		logger.Fatal("writing people", zap.Error(err))
	}
	if err := candidateStore.Replace(candidates); err != nil {
		logger.Fatal("writing candidates", zap.Error(err))
	}
	if err := jobStore.Replace(jobs); err != nil {
		logger.Fatal("writing jobs", zap.Error(err))
	}
	if err := emailStore.Replace(nil); err != nil {
		logger.Fatal("resetting emails", zap.Error(err))
	}
	if err := smsStore.Replace(nil); err != nil {
		logger.Fatal("resetting sms", zap.Error(err))
	}

	logger.Info("seeded fixture data",
		zap.String("dir", config.Data.Dir),
		zap.Int("people", len(people)),
		zap.Int("candidates", len(candidates)),
		zap.Int("jobs", len(jobs)),
	)
}

func hasExistingData(dir string) bool {
	for _, name := range []string{"people.json", "candidates.json", "jobs.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func generatePeople(n int) []store.Person {
	people := make([]store.Person, 0, n)
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s %s",
			firstNames[rand.IntN(len(firstNames))],
			lastNames[rand.IntN(len(lastNames))],
		)
		people = append(people, store.Person{
			CandidateID: uuid.NewString(),
			Name:        name,
			Email:       emailFromName(name),
			Phone:       fmt.Sprintf("+1-555-%03d-%04d", rand.IntN(1000), rand.IntN(10000)),
			Status:      pick(store.PersonAvailable, store.PersonNotAvailable),
		})
	}
	return people
}

// emailFromName mirrors the two address shapes real mailbox data shows:
// first_last@example.org or initials plus a small number.
func emailFromName(name string) string {
	parts := strings.Fields(strings.ToLower(name))
	first := parts[0]
	last := ""
	if len(parts) > 1 {
		last = parts[len(parts)-1]
	}

	if rand.IntN(2) == 0 {
		return fmt.Sprintf("%s_%s@example.org", first, last)
	}

	initials := first[:1]
	if last != "" {
		initials += last[:1]
	}
	return fmt.Sprintf("%s%d@example.org", initials, 1+rand.IntN(99))
}

func generateCandidates(people []store.Person) []store.Candidate {
	candidates := make([]store.Candidate, 0, len(people))
	for _, person := range people {
		candidates = append(candidates, store.Candidate{
			CandidateID: person.CandidateID,
			Name:        person.Name,
			Email:       person.Email,
			Phone:       person.Phone,
			Status:      store.StatusAvailable,
			Skills:      sampleSkills(3 + rand.IntN(4)),
		})
	}
	return candidates
}

func generateJobs(n int) []store.Job {
	jobs := make([]store.Job, 0, n)
	for i := 0; i < n; i++ {
		skills := sampleSkills(3 + rand.IntN(3))
		template := titleTemplates[rand.IntN(len(titleTemplates))]
		title := fmt.Sprintf(template, skills[0])
		jobs = append(jobs, store.Job{
			JobID: strings.ToUpper(uuid.NewString()[:8]),
			Title: title,
			Description: fmt.Sprintf(
				"We are looking for a %s to join our team. Experience with %s is required.",
				title, strings.Join(skills, ", "),
			),
			Skills:       skills,
			Status:       store.JobUnfilled,
			CandidateIDs: []string{},
		})
	}
	return jobs
}

func sampleSkills(n int) []string {
	perm := rand.Perm(len(skillPool))
	if n > len(skillPool) {
		n = len(skillPool)
	}
	skills := make([]string, 0, n)
	for _, idx := range perm[:n] {
		skills = append(skills, skillPool[idx])
	}
	return skills
}

func pick(options ...string) string {
	return options[rand.IntN(len(options))]
}
