// Command seven-mcp exposes the seven.io API as MCP tools over stdio,
// authenticated by a static API key or an OAuth 2.0 PKCE login.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/seven-io/seven-mcp/internal/auth"
	"github.com/seven-io/seven-mcp/internal/client"
	"github.com/seven-io/seven-mcp/internal/config"
	"github.com/seven-io/seven-mcp/internal/logging"
	"github.com/seven-io/seven-mcp/internal/mcpserver"
)

var Version = "dev"

func main() {
	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	var err error

	switch cmd {
	case "serve":
		err = runServe()
	case "login":
		err = runLogin()
	case "logout":
		err = runLogout()
	case "status":
		err = runStatus()
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`seven-mcp - seven.io MCP server

USAGE:
  seven-mcp [command]

COMMANDS:
  serve     Run the MCP server on stdio (default)
  login     Authenticate with seven.io using OAuth
  logout    Remove stored authentication tokens
  status    Show current authentication status
  help      Show this help message
`)
}

// setup loads configuration and constructs the shared pieces every
// command needs.
func setup() (*config.Config, *slog.Logger, *auth.TokenStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	logger := logging.NewLogger(cfg.Environment, cfg.LogLevel)

	creds, err := auth.OpenCredentialStore(cfg.NoKeychain)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening credential store: %w", err)
	}

	return cfg, logger, auth.NewTokenStore(creds), nil
}

// signalContext returns a context cancelled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServe() error {
	cfg, logger, tokenStore, err := setup()
	if err != nil {
		return err
	}

	if !cfg.HasAuthMethod() {
		return fmt.Errorf("no authentication configured: set SEVEN_API_KEY or SEVEN_CLIENT_ID")
	}

	refresher := auth.NewRefresher(cfg.ClientID, tokenStore, logger)

	gw := client.New(client.Config{
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		ClientID: cfg.ClientID,
	}, tokenStore, refresher, logger, nil)

	server := mcp.NewServer(
		&mcp.Implementation{Name: "seven-mcp", Version: Version},
		nil,
	)
	mcpserver.RegisterTools(server, gw)

	ctx, stop := signalContext()
	defer stop()

	logger.Info("starting MCP server on stdio",
		slog.String("base_url", cfg.BaseURL),
		slog.Bool("api_key", cfg.APIKey != ""),
		slog.Bool("oauth", cfg.ClientID != ""),
	)

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}

	return nil
}

func runLogin() error {
	cfg, logger, tokenStore, err := setup()
	if err != nil {
		return err
	}

	if cfg.ClientID == "" {
		return fmt.Errorf("SEVEN_CLIENT_ID is required for OAuth login")
	}

	if tokenStore.Has() {
		fmt.Println("You are already logged in.")
		fmt.Println(`Run "seven-mcp logout" first if you want to log in again.`)
		return nil
	}

	ctx, stop := signalContext()
	defer stop()

	flow := auth.NewFlow(cfg.ClientID, cfg.OAuthScope, tokenStore, logger)

	if _, err := flow.Run(ctx); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Println("Login successful.")
	fmt.Println("You can now use the seven.io MCP server with OAuth authentication.")

	return nil
}

func runLogout() error {
	_, _, tokenStore, err := setup()
	if err != nil {
		return err
	}

	if !tokenStore.Has() {
		fmt.Println("You are not logged in.")
		return nil
	}

	deleted, err := tokenStore.Delete("")
	if err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	if deleted {
		fmt.Println("Logout successful. Tokens have been removed.")
	} else {
		fmt.Println("No tokens found to remove.")
	}

	return nil
}

func runStatus() error {
	_, _, tokenStore, err := setup()
	if err != nil {
		return err
	}

	tokens, err := tokenStore.Get("")
	if err != nil {
		return fmt.Errorf("checking status: %w", err)
	}

	if tokens == nil {
		fmt.Println("Status: Not logged in")
		fmt.Println()
		fmt.Println(`Run "seven-mcp login" to authenticate.`)
		return nil
	}

	fmt.Println("Status: Logged in")
	fmt.Printf("Account: %s\n", tokenStore.CurrentAccount())
	fmt.Printf("Token type: %s\n", tokens.TokenType)

	scope := tokens.Scope
	if scope == "" {
		scope = "N/A"
	}
	fmt.Printf("Scope: %s\n", scope)

	remaining := time.Until(time.Unix(tokens.ExpiresAt, 0))
	if remaining > 0 {
		fmt.Printf("Expires in: %dm %ds\n", int(remaining.Minutes()), int(remaining.Seconds())%60)
	} else {
		fmt.Println("Token: EXPIRED (will be auto-refreshed on next use)")
	}

	return nil
}
