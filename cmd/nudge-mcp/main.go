package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("NUDGE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8787"
	}
	// Optional: the daemon runs without auth by default.
	apiKey := os.Getenv("NUDGE_API_KEY")

	s := server.NewMCPServer(
		"translate-nudge",
		"0.1.0",
		server.WithToolCapabilities(false),
	)
	registerTools(s, newAPIClient(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}
