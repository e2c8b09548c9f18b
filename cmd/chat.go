package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/sourcescope/internal/auth"
	"github.com/JakeFAU/sourcescope/internal/chatapi"
	"github.com/JakeFAU/sourcescope/internal/llm"
	"github.com/JakeFAU/sourcescope/internal/userstore"
)

func newChatCmd() *cobra.Command {
	var language string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Run the LLM chat and profile-article HTTP server.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := envFrom(cmd)
			if err != nil {
				return err
			}
			if err := e.cfg.JWT.ValidateSecret(); err != nil {
				return fmt.Errorf("chat: %w", err)
			}
			logger := e.logger.Named("chat")

			users, err := userstore.New(e.cfg.Storage.UsersFile, logger)
			if err != nil {
				return fmt.Errorf("open user store: %w", err)
			}
			client := llm.New(llm.Config{
				APIKey:   e.cfg.LLM.APIKey,
				Endpoint: e.cfg.LLM.BaseURL,
				Model:    e.cfg.LLM.Model,
			}, &http.Client{}, logger)
			if !client.Configured() {
				logger.Warn("llm api key not configured; chat routes will fail until it is set")
			}
			authSvc := auth.New(users, auth.Config{
				Secret: e.cfg.JWT.SecretKey,
				TTL:    e.cfg.JWT.TTL(),
			}, logger)

			server := chatapi.NewServer(client, users, authSvc, chatapi.Options{
				AllowedOrigins: e.cfg.CORS.AllowedOrigins,
				Language:       language,
			}, logger)
			return listenAndServe(cmd.Context(), e.cfg.Chat.Port, server.Handler(), e.cfg.ShutdownTimeout(), logger)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "language profile articles are written in")
	return cmd
}
