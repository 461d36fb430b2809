// Package trigger decides whether an incoming event starts a workflow.
// Evaluation is pure: no clocks, no IO, no side effects.
package trigger

import (
	"fmt"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/robfig/cron/v3"

	"github.com/systemstart/stagehand/pkg/api"
)

// Event is a single trigger occurrence delivered by the hosting system.
// Branch carries the pushed branch for push events and the target branch
// for pull_request events; it is empty for schedule and manual events.
type Event struct {
	Kind   string
	Branch string
}

func (e Event) wellFormed() bool {
	switch e.Kind {
	case api.EventPush, api.EventPullRequest:
		return e.Branch != ""
	case api.EventSchedule, api.EventManual:
		return true
	}
	return false
}

// ShouldRun reports whether any rule matches the event. Malformed events
// never match, and neither does an empty rule set. Manual dispatch matches
// unconditionally.
func ShouldRun(rules []api.TriggerRule, ev Event) bool {
	if !ev.wellFormed() {
		return false
	}
	if ev.Kind == api.EventManual {
		return true
	}
	for _, rule := range rules {
		if ruleMatches(rule, ev) {
			return true
		}
	}
	return false
}

func ruleMatches(rule api.TriggerRule, ev Event) bool {
	if rule.Event != ev.Kind {
		return false
	}
	if ev.Kind == api.EventSchedule {
		return true
	}
	return branchMatches(rule.Branches, ev.Branch)
}

// branchMatches applies the rule's branch patterns. No patterns means any
// branch. Patterns are matched verbatim first, then as doublestar globs.
func branchMatches(patterns api.StringList, branch string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, pattern := range patterns {
		if pattern == branch {
			return true
		}
		if ok, err := doublestar.Match(pattern, branch); err == nil && ok {
			return true
		}
	}
	return false
}

// Decision explains an evaluation for inspection output.
type Decision struct {
	Matched bool
	Reason  string
}

// Explain evaluates like ShouldRun and says why.
func Explain(rules []api.TriggerRule, ev Event) Decision {
	if !ev.wellFormed() {
		return Decision{Reason: fmt.Sprintf("malformed event %q on branch %q", ev.Kind, ev.Branch)}
	}
	if ev.Kind == api.EventManual {
		return Decision{Matched: true, Reason: "manual dispatch always runs"}
	}
	for i, rule := range rules {
		if ruleMatches(rule, ev) {
			return Decision{Matched: true, Reason: fmt.Sprintf("rule %d matches %s on %q", i, ev.Kind, ev.Branch)}
		}
	}
	return Decision{Reason: fmt.Sprintf("no rule matches %s on %q", ev.Kind, ev.Branch)}
}

// NextActivation returns the earliest upcoming schedule activation after
// from, considering every schedule rule. ok is false when the workflow has
// no schedule rules.
func NextActivation(rules []api.TriggerRule, from time.Time) (next time.Time, ok bool) {
	for _, rule := range rules {
		if rule.Event != api.EventSchedule {
			continue
		}
		sched, err := cron.ParseStandard(rule.Cron)
		if err != nil {
			// Rejected at validation; an unparsable rule cannot fire.
			continue
		}
		candidate := sched.Next(from)
		if !ok || candidate.Before(next) {
			next = candidate
			ok = true
		}
	}
	return next, ok
}
