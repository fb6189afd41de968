package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/studyloop/studyloop/internal/api/httpapi"
	"github.com/studyloop/studyloop/internal/auth"
	"github.com/studyloop/studyloop/internal/config"
	"github.com/studyloop/studyloop/internal/llm"
	"github.com/studyloop/studyloop/internal/progress"
	"github.com/studyloop/studyloop/internal/session"
	"github.com/studyloop/studyloop/internal/store"
	"github.com/studyloop/studyloop/internal/tutor"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
}

// runServe opens the store, builds dependencies, and runs the server
// until interrupted.
func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	dbPath, err := resolveDBPath(cmd)
	if err != nil {
		return fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	progressSvc := progress.NewService(st.Progress(), progress.DefaultConfig())

	engineOpts := session.Options{
		Progress: progressSvc,
		Archive:  st.Archive(),
		IdleTTL:  cfg.IdleTTL,
	}

	llmCfg := llm.ConfigFromEnv()
	if llmCfg.Validate() != nil {
		if discovered, ok := llm.Discover(); ok {
			llmCfg = discovered
		}
	}
	if err := llmCfg.Validate(); err != nil {
		// No usable API key. The tutor channel still works, answering
		// from the authored hint ladder.
		fmt.Fprintln(os.Stderr, "LLM provider not configured:", err)
		fmt.Fprintln(os.Stderr, "Tutoring will use built-in hints only.")
		engineOpts.Tutor = tutor.NewChannel(nil, tutor.DefaultConfig())
	} else {
		provider, err := llm.New(ctx, llmCfg, st.GenLog())
		if err != nil {
			return fmt.Errorf("initialize generation provider: %w", err)
		}
		channel := tutor.NewChannel(provider, tutor.DefaultConfig())
		engineOpts.Tutor = channel
		engineOpts.Hinter = channel
	}

	engine := session.NewEngine(st.Questions(), engineOpts)

	router := httpapi.NewRouter(httpapi.Options{
		Engine:          engine,
		Progress:        progressSvc,
		History:         st.Archive(),
		Auth:            auth.NewService(cfg.AuthSecret, cfg.TokenTTL),
		CORSOrigins:     cfg.CORSOrigins,
		EnableLocalAuth: true,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Janitor: evict idle sessions on a fixed interval.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := engine.SweepIdle(); n > 0 {
					log.Printf("evicted %d idle sessions", n)
				}
			}
		}
	}()

	errc := make(chan error, 1)
	go func() {
		log.Printf("studyloop listening on %s (db %s)", cfg.HTTPAddr, dbPath)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}
