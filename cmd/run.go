package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hireloop/internal/agents"
	"hireloop/internal/engine"
	"hireloop/internal/httpapi"
	"hireloop/internal/llm"
	"hireloop/internal/logger"
	"hireloop/internal/people"
	"hireloop/internal/secrets"
	"hireloop/internal/store"
	"hireloop/internal/toolchat"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the orchestrator: matching and reply loops plus the status surface",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("data-dir", "", "directory with the JSON collections")
	viper.BindPFlag("data.dir", runCmd.Flags().Lookup("data-dir"))
}

// run is the main command for the orchestrator.
func run(_ *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting hireloop", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	backend, err := newBackend(ctx, config.LLM, logger)
	if err != nil {
		logger.Fatal("building completion backend", zap.Error(err))
	}

	chat := toolchat.New(config.MCP.ServerURL, backend, logger)
	defer chat.Close()

	agentSet := agents.New(chat, config.SenderEmail, logger)

	jobs := store.NewJobStore(filepath.Join(config.Data.Dir, "jobs.json"), logger)
	candidates := store.NewCandidateStore(filepath.Join(config.Data.Dir, "candidates.json"), logger)

	// A fresh run starts from a clean slate: no filled jobs, no message
	// history carried over from the previous process.
	if err := jobs.ResetAvailability(); err != nil {
		logger.Fatal("resetting job availability", zap.Error(err))
	}
	if err := candidates.ClearMessages(); err != nil {
		logger.Fatal("clearing candidate messages", zap.Error(err))
	}

	peopleClient := people.NewClient(config.People.BaseURL, logger)

	eng := engine.New(jobs, candidates, agentSet, peopleClient, peopleClient, logger)
	api := httpapi.New(config.API.Addr, eng, chat, logger)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return eng.Run(ctx, config.Loops.MatchInterval, config.Loops.ReplyInterval)
	})
	group.Go(func() error {
		return api.Run(ctx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}

// newBackend resolves secrets and builds the configured completion backend.
func newBackend(ctx context.Context, cfg *LLMConfig, logger *zap.Logger) (llm.Backend, error) {
	if cfg == nil {
		cfg = &LLMConfig{}
	}

	llmCfg := llm.Config{Provider: cfg.Provider}

	if strings.EqualFold(strings.TrimSpace(cfg.Provider), "gemini") {
		if cfg.Gemini == nil {
			return nil, fmt.Errorf("gemini configuration is required for the gemini provider")
		}
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set llm.gemini.api-key-file or GEMINI_API_KEY)", err)
		}
		llmCfg.Gemini = &llm.GeminiConfig{
			APIKey: apiKey,
			Model:  cfg.Gemini.Model,
		}
	}

	if cfg.Ollama != nil {
		llmCfg.Ollama = &llm.OllamaConfig{
			Host:  cfg.Ollama.Host,
			Model: cfg.Ollama.Model,
		}
	}

	return llm.New(ctx, llmCfg, logger)
}
