package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/garyohosu/translate-nudge/models"
)

const (
	healthPath  = "/api/v1/health"
	statsPath   = "/api/v1/stats"
	signalsPath = "/api/v1/signals"
	triggerPath = "/api/v1/trigger"
	pendingPath = "/api/v1/pending"
)

// registerTools adds every nudge tool to s.
func registerTools(s *server.MCPServer, c *apiClient) {
	s.AddTool(mcp.NewTool("nudge_status",
		mcp.WithDescription("Show the nudge daemon's health, scheduler state and fire counters for the watched page."),
	), handleStatus(c))

	s.AddTool(mcp.NewTool("send_signal",
		mcp.WithDescription("Feed a scroll or mutation signal to the scheduler. It goes through the same threshold, debounce and cooldown as signals from the page."),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Signal kind: 'scroll' or 'mutation'"),
			mcp.Enum("scroll", "mutation"),
		),
		mcp.WithNumber("magnitude",
			mcp.Required(),
			mcp.Description("Scroll distance in px, or the number of added elements"),
		),
	), handleSendSignal(c))

	s.AddTool(mcp.NewTool("force_trigger",
		mcp.WithDescription("Run the perturbation actions now, without waiting for the debounce. Still refused during the cooldown or while a fire is running."),
		mcp.WithString("kind",
			mcp.Description("Which action profile to run: 'mutation' (default) or 'scroll'"),
			mcp.Enum("scroll", "mutation"),
		),
	), handleForceTrigger(c))

	s.AddTool(mcp.NewTool("pending_content",
		mcp.WithDescription("List the content on the watched page that still looks untranslated, as Markdown."),
	), handlePending(c))
}

// toolError turns an API failure into a tool-level error result.
func toolError(what string, err error) *mcp.CallToolResult {
	var ne *models.NudgeError
	if errors.As(err, &ne) {
		msg := fmt.Sprintf("%s: [%s] %s", what, ne.Code, ne.Message)
		if ne.Retryable() {
			msg += " (transient, retry later)"
		}
		return mcp.NewToolResultError(msg)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", what, err))
}

func handleStatus(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var health models.HealthResponse
		if err := c.call(ctx, http.MethodGet, healthPath, nil, &health); err != nil {
			return toolError("health check failed", err), nil
		}
		var stats models.StatsResponse
		if err := c.call(ctx, http.MethodGet, statsPath, nil, &stats); err != nil {
			return toolError("stats failed", err), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "Status: %s (up %s, version %s)\n", health.Status, health.Uptime, health.Version)
		if health.Target != "" {
			fmt.Fprintf(&b, "Target: %s\n", health.Target)
		}
		s := stats.Scheduler
		fmt.Fprintf(&b, "Scheduler: %s", s.StateName)
		if s.PendingKind != "" {
			fmt.Fprintf(&b, " (%s armed)", s.PendingKind)
		}
		fmt.Fprintf(&b, "\nSignals: %d received, %d ignored, %d armed\n", s.Signals, s.Ignored, s.Armed)
		fmt.Fprintf(&b, "Fires: %d fired, %d in cooldown, %d while in flight, %d failed\n",
			s.Fired, s.SuppressedCooldown, s.SuppressedInFlight, s.Failed)
		if !s.LastFiredAt.IsZero() {
			fmt.Fprintf(&b, "Last fired: %s\n", s.LastFiredAt.Format("15:04:05.000"))
		}
		r := stats.Runner
		fmt.Fprintf(&b, "Runner: %d runs (%d empty), %d elements nudged, %d action errors, %d processed",
			r.Runs, r.EmptyRuns, r.Perturbed, r.ActionErrors, r.Processed)

		return mcp.NewToolResultText(b.String()), nil
	}
}

func handleSendSignal(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		kind, err := request.RequireString("kind")
		if err != nil {
			return mcp.NewToolResultError("kind is required"), nil
		}
		magnitude, err := request.RequireFloat("magnitude")
		if err != nil {
			return mcp.NewToolResultError("magnitude is required and must be a number"), nil
		}

		var resp models.SignalResponse
		req := models.SignalRequest{Kind: kind, Magnitude: magnitude}
		if err := c.call(ctx, http.MethodPost, signalsPath, req, &resp); err != nil {
			return toolError("signal failed", err), nil
		}
		if !resp.Accepted {
			return mcp.NewToolResultText(fmt.Sprintf("Signal ignored (below threshold or scheduler stopped). State: %s", resp.State)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Signal accepted. State: %s", resp.State)), nil
	}
}

func handleForceTrigger(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := models.TriggerRequest{Kind: request.GetString("kind", "")}

		var resp models.TriggerResponse
		if err := c.call(ctx, http.MethodPost, triggerPath, req, &resp); err != nil {
			return toolError("trigger failed", err), nil
		}
		if !resp.Fired {
			return mcp.NewToolResultText(fmt.Sprintf("Not fired: %s actions are cooling down or already running.", resp.Kind)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("Fired %s actions.", resp.Kind)), nil
	}
}

func handlePending(c *apiClient) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var resp models.PendingResponse
		if err := c.call(ctx, http.MethodGet, pendingPath, nil, &resp); err != nil {
			return toolError("pending content failed", err), nil
		}
		return mcp.NewToolResultText(resp.Markdown), nil
	}
}
