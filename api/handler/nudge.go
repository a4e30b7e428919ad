package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/garyohosu/translate-nudge/action"
	"github.com/garyohosu/translate-nudge/models"
	"github.com/garyohosu/translate-nudge/processed"
	"github.com/garyohosu/translate-nudge/report"
	"github.com/garyohosu/translate-nudge/trigger"
)

// Stats returns a handler for GET /api/v1/stats.
func Stats(sched *trigger.Scheduler, runner *action.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondOK(c, models.StatsResponse{
			Scheduler: sched.Stats(),
			Runner:    runner.Stats(),
		})
	}
}

// PostSignal returns a handler for POST /api/v1/signals. It feeds an
// external signal through the same threshold and debounce path as the
// page's own listeners.
func PostSignal(sched *trigger.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.SignalRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, models.NewNudgeError(models.OpSignal, models.ErrCodeInvalidInput, err.Error(), err))
			return
		}
		kind, err := trigger.ParseKind(req.Kind)
		if err != nil {
			respondError(c, models.NewNudgeError(models.OpSignal, models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		var accepted bool
		if kind == trigger.KindScroll {
			accepted = sched.OnScroll(req.Magnitude)
		} else {
			accepted = sched.OnSignal(kind, req.Magnitude)
		}

		respondOK(c, models.SignalResponse{
			Accepted: accepted,
			State:    sched.State().String(),
		})
	}
}

// PostTrigger returns a handler for POST /api/v1/trigger. The fire still
// goes through the cooldown and in-flight gate.
func PostTrigger(sched *trigger.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.TriggerRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, models.NewNudgeError(models.OpTrigger, models.ErrCodeInvalidInput, err.Error(), err))
				return
			}
		}
		kind := trigger.KindMutation
		if req.Kind != "" {
			k, err := trigger.ParseKind(req.Kind)
			if err != nil {
				respondError(c, models.NewNudgeError(models.OpTrigger, models.ErrCodeInvalidInput, err.Error(), err))
				return
			}
			kind = k
		}

		respondOK(c, models.TriggerResponse{
			Fired: sched.TryFire(kind),
			Kind:  kind.String(),
		})
	}
}

// Pending returns a handler for GET /api/v1/pending: the candidates that
// still look untranslated, whether or not they were nudged already.
func Pending(runner *action.Runner, seen *processed.Set, renderer *report.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		els, err := runner.Pending(c.Request.Context())
		if err != nil {
			respondError(c, models.NewNudgeError(models.OpPending, models.ErrCodeDocument, "reading the page failed", err))
			return
		}

		entries := make([]report.Entry, len(els))
		resp := models.PendingResponse{
			Count:    len(els),
			Elements: make([]models.PendingElement, len(els)),
		}
		for i, el := range els {
			done := !seen.ShouldProcess(el.ID)
			entries[i] = report.Entry{Element: el, Processed: done}
			resp.Elements[i] = models.PendingElement{ID: el.ID, Text: el.Text, Processed: done}
		}

		md, err := renderer.Render(entries)
		if err != nil {
			respondError(c, models.NewNudgeError(models.OpPending, models.ErrCodeInternal, "rendering the report failed", err))
			return
		}
		resp.Markdown = md
		respondOK(c, resp)
	}
}
