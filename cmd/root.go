package cmd

import (
	"errors"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	app = "hireloop"
)

// Config is the full configuration tree, unmarshalled by viper from the
// config file, environment, and flags.
type Config struct {
	SenderEmail string         `mapstructure:"sender-email"`
	Data        *DataConfig    `mapstructure:"data"`
	MCP         *MCPConfig     `mapstructure:"mcp"`
	LLM         *LLMConfig     `mapstructure:"llm"`
	People      *PeopleConfig  `mapstructure:"people"`
	Loops       *LoopsConfig   `mapstructure:"loops"`
	API         *APIConfig     `mapstructure:"api"`
	Sim         *PeopleSimSpec `mapstructure:"peoplesim"`
}

// DataConfig locates the JSON collections on disk.
type DataConfig struct {
	Dir string `mapstructure:"dir"`
}

// MCPConfig points at the tool registry.
type MCPConfig struct {
	ServerURL string `mapstructure:"server-url"`
}

// LLMConfig selects and configures the completion backend.
type LLMConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
	Ollama   *OllamaConfig `mapstructure:"ollama"`
}

// GeminiConfig configures the hosted Gemini backend. The key can be given
// inline, via a file, or through the GEMINI_API_KEY environment variable.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	Model      string `mapstructure:"model"`
}

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	Host  string `mapstructure:"host"`
	Model string `mapstructure:"model"`
}

// PeopleConfig points at the candidate-side service.
type PeopleConfig struct {
	BaseURL string `mapstructure:"base-url"`
}

// LoopsConfig sets the fixed delays between ticks.
type LoopsConfig struct {
	MatchInterval time.Duration `mapstructure:"match-interval"`
	ReplyInterval time.Duration `mapstructure:"reply-interval"`
}

// APIConfig binds the read-only status surface.
type APIConfig struct {
	Addr string `mapstructure:"addr"`
}

// PeopleSimSpec configures the candidate simulator command.
type PeopleSimSpec struct {
	Addr           string        `mapstructure:"addr"`
	ReplyInterval  time.Duration `mapstructure:"reply-interval"`
	StatusInterval time.Duration `mapstructure:"status-interval"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "hireloop is a recruiting workflow orchestrator: it matches candidates to open jobs, sends outreach, and settles replies",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is hireloop.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))

	if err := viper.BindEnv("llm.gemini.api-key", "GEMINI_API_KEY"); err != nil {
		log.Fatalf("binding GEMINI_API_KEY environment variable: %v", err)
	}
	if err := viper.BindEnv("mcp.server-url", "MCP_SERVER_URL"); err != nil {
		log.Fatalf("binding MCP_SERVER_URL environment variable: %v", err)
	}
}

func initConfig() {
	// Local setups keep keys in a .env next to the binary; absence is fine.
	_ = godotenv.Load()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app + ".yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return config, err
	}
	if config == nil {
		config = &Config{}
	}
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.SenderEmail == "" {
		config.SenderEmail = "recruiter@company.com"
	}
	if config.Data == nil {
		config.Data = &DataConfig{}
	}
	if config.Data.Dir == "" {
		config.Data.Dir = "data"
	}
	if config.MCP == nil {
		config.MCP = &MCPConfig{}
	}
	if config.MCP.ServerURL == "" {
		config.MCP.ServerURL = "http://127.0.0.1:8000/sse"
	}
	if config.LLM == nil {
		config.LLM = &LLMConfig{}
	}
	if config.People == nil {
		config.People = &PeopleConfig{}
	}
	if config.People.BaseURL == "" {
		config.People.BaseURL = "http://127.0.0.1:8001"
	}
	if config.Loops == nil {
		config.Loops = &LoopsConfig{}
	}
	if config.Loops.MatchInterval <= 0 {
		config.Loops.MatchInterval = 30 * time.Second
	}
	if config.Loops.ReplyInterval <= 0 {
		config.Loops.ReplyInterval = 15 * time.Second
	}
	if config.API == nil {
		config.API = &APIConfig{}
	}
	if config.API.Addr == "" {
		config.API.Addr = "127.0.0.1:8080"
	}
	if config.Sim == nil {
		config.Sim = &PeopleSimSpec{}
	}
	if config.Sim.Addr == "" {
		config.Sim.Addr = "127.0.0.1:8001"
	}
	if config.Sim.ReplyInterval <= 0 {
		config.Sim.ReplyInterval = 20 * time.Second
	}
	if config.Sim.StatusInterval <= 0 {
		config.Sim.StatusInterval = 60 * time.Second
	}
}
