package main

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

	"github.com/formgate/formgate/internal/app"
	"github.com/formgate/formgate/internal/metrics"
	"github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:  "formgate",
		Usage: "Multi-tenant registration platform with admin-defined form schemas",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Value: ":8080",
				Usage: "HTTP listen address",
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Value:   "./data",
				Sources: cli.EnvVars("FORMGATE_DATA_DIR"),
				Usage:   "Directory for the shared store and per-tenant databases",
			},
			&cli.StringFlag{
				Name:    "config",
				Sources: cli.EnvVars("FORMGATE_CONFIG"),
				Usage:   "Optional YAML config file (flags take precedence)",
			},
			&cli.StringFlag{
				Name:    "webhook-url",
				Sources: cli.EnvVars("FORMGATE_WEBHOOK_URL"),
				Usage:   "Outbox event webhook target URL (enables push delivery)",
			},
			&cli.StringFlag{
				Name:    "webhook-secret",
				Sources: cli.EnvVars("FORMGATE_WEBHOOK_SECRET"),
				Usage:   "HMAC-SHA256 signing secret for outbound webhook requests",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg := app.Config{
				Addr:          c.String("addr"),
				DataDir:       c.String("data-dir"),
				WebhookURL:    c.String("webhook-url"),
				WebhookSecret: c.String("webhook-secret"),
			}

			if path := c.String("config"); path != "" {
				fileCfg, err := app.LoadFileConfig(path)
				if err != nil {
					return err
				}
				if fileCfg.Addr != "" && !c.IsSet("addr") {
					cfg.Addr = fileCfg.Addr
				}
				if fileCfg.DataDir != "" && !c.IsSet("data-dir") {
					cfg.DataDir = fileCfg.DataDir
				}
				if fileCfg.Webhook.URL != "" && !c.IsSet("webhook-url") {
					cfg.WebhookURL = fileCfg.Webhook.URL
				}
				if fileCfg.Webhook.Secret != "" && !c.IsSet("webhook-secret") {
					cfg.WebhookSecret = fileCfg.Webhook.Secret
				}
			}

			metrics.Init()

			server, closer, err := app.NewServer(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			defer func() {
				if closeErr := closer.Close(); closeErr != nil {
					log.Printf("close resources: %v", closeErr)
				}
			}()

			errCh := make(chan error, 1)
			go func() {
				log.Printf("listening on %s", cfg.Addr)
				errCh <- server.ListenAndServe()
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case sig := <-sigCh:
				log.Printf("received signal %s", sig)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return server.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
