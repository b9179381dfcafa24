package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/LexCal/LexCal/internal/agent"
	"github.com/LexCal/LexCal/internal/config"
	"github.com/LexCal/LexCal/internal/provider"
	"github.com/LexCal/LexCal/internal/tenant"
)

var (
	chatMessage  string
	chatTenant   string
	chatRole     string
	chatTimezone string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Send one message to the agent from the CLI",
	Run:   runChat,
}

func init() {
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "Message to send to the agent")
	chatCmd.Flags().StringVarP(&chatTenant, "tenant", "t", "", "Tenant ID")
	chatCmd.Flags().StringVarP(&chatRole, "role", "r", "", "Caller role (admin, staff, viewer)")
	chatCmd.Flags().StringVar(&chatTimezone, "timezone", "UTC", "Caller timezone (IANA name or offset)")
}

func runChat(cmd *cobra.Command, args []string) {
	if chatMessage == "" {
		fmt.Println("Error: --message is required")
		os.Exit(1)
	}
	if chatTenant == "" {
		fmt.Println("Error: --tenant is required")
		os.Exit(1)
	}

	printHeader("⚖️  LexCal Agent")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config warning: %v (using defaults)\n", err)
	}
	if cfg.Model.APIKey == "" {
		fmt.Println("Error: no model API key configured (set LEXCAL_MODEL_API_KEY or OPENAI_API_KEY)")
		os.Exit(1)
	}

	loop, err := agent.NewLoop(agent.Options{
		Provider:        provider.NewOpenAIProvider(cfg.Model.APIKey, cfg.Model.APIBase, cfg.Model.Name),
		BackendBase:     cfg.Backend.BaseURL,
		HTTPClient:      &http.Client{Timeout: cfg.BackendTimeout()},
		Retry:           retryPolicy(cfg),
		SystemPrompt:    cfg.Prompt.SystemPrompt,
		Model:           cfg.Model.Name,
		MaxTokens:       cfg.Model.MaxTokens,
		Temperature:     cfg.Model.Temperature,
		MaxRounds:       cfg.Model.MaxRounds,
		KeepRecent:      cfg.History.KeepRecent,
		MaxContentChars: cfg.History.MaxContentChars,
	})
	if err != nil {
		fmt.Printf("Agent error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("⚖️  LexCal (%s)\n", cfg.Model.Name)
	fmt.Println("Thinking...")

	resp, err := loop.Process(context.Background(), &agent.Request{
		Prompt: chatMessage,
		Tenant: tenant.Context{
			TenantID: chatTenant,
			Role:     tenant.NormalizeRole(chatRole),
			Timezone: chatTimezone,
		},
	})
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("\n" + resp.Text)
}
