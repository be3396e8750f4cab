package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hireloop/internal/logger"
	"hireloop/internal/people"
	"hireloop/internal/store"
)

var peoplesimCmd = &cobra.Command{
	Use:   "peoplesim",
	Short: "Run the candidate simulator: mailbox endpoints plus auto-reply and status-churn loops",
	Run: func(cmd *cobra.Command, _ []string) {
		peoplesim(cmd)
	},
}

func init() {
	rootCmd.AddCommand(peoplesimCmd)

	peoplesimCmd.Flags().String("addr", "", "listen address for the simulator service")
	viper.BindPFlag("peoplesim.addr", peoplesimCmd.Flags().Lookup("addr"))
}

func peoplesim(_ *cobra.Command) {
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

	logger.Info("starting the candidate simulator", zap.String("addr", config.Sim.Addr))

	backend, err := newBackend(ctx, config.LLM, logger)
	if err != nil {
		logger.Fatal("building completion backend", zap.Error(err))
	}

	peopleStore := store.NewPeopleStore(filepath.Join(config.Data.Dir, "people.json"), logger)
	emails := store.NewEmailStore(filepath.Join(config.Data.Dir, "emails.json"), logger)
	sms := store.NewSMSStore(filepath.Join(config.Data.Dir, "sms.json"), logger)

	sim := people.NewSimulator(peopleStore, emails, sms, backend, logger)

	server := &http.Server{
		Addr:              config.Sim.Addr,
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return sim.Run(ctx, config.Sim.ReplyInterval, config.Sim.StatusInterval)
	})
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}

	logger.Info("exiting", zap.String("reason", "shutdown requested"))
}
