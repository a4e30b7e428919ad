package main

import (
	"fmt"
	"log/slog"

	"github.com/garyohosu/translate-nudge/action"
	"github.com/garyohosu/translate-nudge/clock"
	"github.com/garyohosu/translate-nudge/config"
	"github.com/garyohosu/translate-nudge/document"
	"github.com/garyohosu/translate-nudge/processed"
	"github.com/garyohosu/translate-nudge/trigger"
	"github.com/garyohosu/translate-nudge/webhook"
)

// pipeline is the scheduler and the action runner it drives.
type pipeline struct {
	scheduler *trigger.Scheduler
	runner    *action.Runner
	seen      *processed.Set
}

// buildPipeline wires the nudge settings into a scheduler whose fires run
// the configured action profiles against doc. A non-nil notifier reports
// each fire.
func buildPipeline(n config.NudgeConfig, doc document.Document, clk clock.Clock, notifier *webhook.Notifier, logger *slog.Logger) (*pipeline, error) {
	catalog := action.NewCatalog(action.Options{
		Clock:         clk,
		ReversalDelay: n.ReversalDelay,
		LangAttr:      n.LangAttr,
		TargetLang:    n.TargetLang,
		FallbackLang:  n.FallbackLang,
		MaxMarkers:    n.MaxMarkers,
		Events:        n.Events,
		Logger:        logger,
	})

	scrollProfile, err := catalog.Profile(n.ScrollActions)
	if err != nil {
		return nil, fmt.Errorf("scroll actions: %w", err)
	}
	mutationProfile, err := catalog.Profile(n.MutationActions)
	if err != nil {
		return nil, fmt.Errorf("mutation actions: %w", err)
	}

	qualifies, err := action.ScriptRun(n.SourceScript, n.MinAlphaRun)
	if err != nil {
		return nil, err
	}

	seen := processed.New()
	runner := action.NewRunner(doc, seen, action.RunnerConfig{
		CandidateSelector: n.CandidateSelector,
		Qualifies:         qualifies,
		Profiles: map[trigger.Kind][]action.Action{
			trigger.KindScroll:   scrollProfile,
			trigger.KindMutation: mutationProfile,
		},
		OpTimeout: n.OpTimeout,
	}, logger)

	var dispatcher trigger.Dispatcher = runner
	if notifier != nil {
		dispatcher = notifier.Wrap(runner)
	}

	sched := trigger.New(trigger.Config{
		DebounceDelay:    n.DebounceDelay,
		Cooldown:         n.Cooldown,
		ScrollThreshold:  n.ScrollThreshold,
		MutationMinAdded: n.MutationMinAdded,
		SplitCooldown:    n.SplitCooldown,
	}, clk, dispatcher, logger)

	return &pipeline{scheduler: sched, runner: runner, seen: seen}, nil
}
