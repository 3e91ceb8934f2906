package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"dtracker/middleware"
	"dtracker/models"
	"dtracker/repository"
	"dtracker/routes"
	"dtracker/schema"
	"dtracker/service"
	"dtracker/sla"
	"dtracker/worker"
)

func serveCmd(envErr error) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the SLA worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), envErr)
		},
	}
}

func migrateCmd(envErr error) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and columns and seed department SLA policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, envErr)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := schema.InitializeDatabase(ctx, a.db, a.registry)
			if err != nil {
				return err
			}

			departments := repository.NewDepartmentRepository(a.db)
			policies := make([]models.DepartmentPolicy, 0, len(a.registry.Definitions()))
			for _, def := range a.registry.Definitions() {
				policies = append(policies, models.DepartmentPolicy{Department: string(def.Name), Policy: sla.DefaultPolicy})
			}
			seeded, err := departments.SeedPolicies(ctx, policies)
			if err != nil {
				return err
			}
			current, err := departments.ListPolicies(ctx)
			if err != nil {
				return err
			}
			for _, p := range current {
				log.Info().
					Str("department", p.Department).
					Int("assign_minutes", p.Policy.AssignMinutes).
					Int("completion_minutes", p.Policy.CompletionMinutes).
					Bool("hod_token", p.HODToken.Valid && p.HODToken.String != "").
					Msg("department policy")
			}

			return printJSON(cmd, map[string]interface{}{
				"createdTables":  report.CreatedTables,
				"addedColumns":   report.AddedColumns,
				"seededPolicies": seeded,
			})
		},
	}
}

func checkSLACmd(envErr error) *cobra.Command {
	return &cobra.Command{
		Use:   "check-sla",
		Short: "Run one SLA breach scan and print the counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx, envErr)
			if err != nil {
				return err
			}
			defer a.close()

			breaches, err := a.breachService(ctx)
			if err != nil {
				return err
			}
			result, err := breaches.Scan(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, result)
		},
	}
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runServer(parent context.Context, envErr error) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, envErr)
	if err != nil {
		return err
	}
	defer a.close()
	cfg := a.cfg

	if err := schema.ValidateRequiredColumns(ctx, a.db, a.registry); err != nil {
		return err
	}

	// Repositories
	ticketRepo := repository.NewTicketRepository(a.db)
	stepRepo := repository.NewStepRepository(a.db)
	bedRepo := repository.NewBedRepository(a.db)
	notificationRepo := repository.NewNotificationRepository(a.db)
	userRepo := repository.NewUserRepository(a.db)

	// Services
	ticketService := service.NewTicketService(a.db, a.registry, ticketRepo, stepRepo, bedRepo)
	workflowService := service.NewWorkflowService(a.db, a.registry, ticketRepo, stepRepo, bedRepo, cfg.SLA.Location)
	notificationService := service.NewNotificationService(notificationRepo, a.registry, cfg.SLA.Location)
	userService := service.NewUserService(userRepo, a.registry, cfg.Auth.JWTSecret)
	breachService, err := a.breachService(ctx)
	if err != nil {
		return err
	}

	if cfg.SLA.WorkerEnabled {
		slaWorker := worker.NewSLAWorker(breachService, cfg.SLA.ScanInterval)
		slaWorker.Start(ctx)
		defer slaWorker.Stop()
	} else {
		log.Info().Msg("SLA worker disabled; scans run only via /check-sla")
	}

	handler := routes.SetupRoutes(routes.Services{
		Tickets:       ticketService,
		Workflows:     workflowService,
		Scanner:       breachService,
		Notifications: notificationService,
		Users:         userService,
		DB:            a.db,
	}, middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.Required), log.Logger)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Bool("auth_required", cfg.Auth.Required).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
