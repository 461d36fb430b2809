package trigger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systemstart/stagehand/pkg/api"
)

func docsRules() []api.TriggerRule {
	return []api.TriggerRule{
		{Event: api.EventPush, Branches: api.StringList{"master"}},
		{Event: api.EventPullRequest},
	}
}

func TestShouldRun(t *testing.T) {
	tests := []struct {
		name  string
		rules []api.TriggerRule
		ev    Event
		want  bool
	}{
		{"push to configured branch", docsRules(), Event{Kind: api.EventPush, Branch: "master"}, true},
		{"push to other branch", docsRules(), Event{Kind: api.EventPush, Branch: "feature-x"}, false},
		{"pull request any branch", docsRules(), Event{Kind: api.EventPullRequest, Branch: "feature-x"}, true},
		{"pull request to master", docsRules(), Event{Kind: api.EventPullRequest, Branch: "master"}, true},
		{"unknown event kind", docsRules(), Event{Kind: "deployment", Branch: "master"}, false},
		{"empty event kind", docsRules(), Event{Branch: "master"}, false},
		{"push without branch", docsRules(), Event{Kind: api.EventPush}, false},
		{"no rules", nil, Event{Kind: api.EventPush, Branch: "master"}, false},
		{
			"push rule without branches matches any branch",
			[]api.TriggerRule{{Event: api.EventPush}},
			Event{Kind: api.EventPush, Branch: "feature-x"},
			true,
		},
		{
			"pull request rule with branch filter",
			[]api.TriggerRule{{Event: api.EventPullRequest, Branches: api.StringList{"master"}}},
			Event{Kind: api.EventPullRequest, Branch: "develop"},
			false,
		},
		{
			"glob branch pattern",
			[]api.TriggerRule{{Event: api.EventPush, Branches: api.StringList{"releases/**"}}},
			Event{Kind: api.EventPush, Branch: "releases/v1.2"},
			true,
		},
		{
			"glob branch pattern miss",
			[]api.TriggerRule{{Event: api.EventPush, Branches: api.StringList{"releases/**"}}},
			Event{Kind: api.EventPush, Branch: "hotfix"},
			false,
		},
		{
			"schedule event matches schedule rule",
			[]api.TriggerRule{{Event: api.EventSchedule, Cron: "0 4 * * 1"}},
			Event{Kind: api.EventSchedule},
			true,
		},
		{
			"push event does not match schedule rule",
			[]api.TriggerRule{{Event: api.EventSchedule, Cron: "0 4 * * 1"}},
			Event{Kind: api.EventPush, Branch: "master"},
			false,
		},
		{
			"manual dispatch bypasses rules",
			[]api.TriggerRule{{Event: api.EventPush, Branches: api.StringList{"master"}}},
			Event{Kind: api.EventManual},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ShouldRun(tt.rules, tt.ev))
		})
	}
}

func TestShouldRunIsPure(t *testing.T) {
	rules := docsRules()
	ev := Event{Kind: api.EventPush, Branch: "master"}
	for range 3 {
		assert.True(t, ShouldRun(rules, ev))
	}
	assert.Equal(t, docsRules(), rules, "evaluation must not mutate rules")
}

func TestExplain(t *testing.T) {
	d := Explain(docsRules(), Event{Kind: api.EventPush, Branch: "master"})
	assert.True(t, d.Matched)
	assert.Contains(t, d.Reason, "rule 0 matches")

	d = Explain(docsRules(), Event{Kind: api.EventPush, Branch: "feature-x"})
	assert.False(t, d.Matched)
	assert.Contains(t, d.Reason, "no rule matches")

	d = Explain(docsRules(), Event{Kind: "bogus"})
	assert.False(t, d.Matched)
	assert.Contains(t, d.Reason, "malformed event")

	d = Explain(nil, Event{Kind: api.EventManual})
	assert.True(t, d.Matched)
}

func TestNextActivation(t *testing.T) {
	rules := []api.TriggerRule{
		{Event: api.EventPush, Branches: api.StringList{"master"}},
		{Event: api.EventSchedule, Cron: "0 4 * * *"},
	}
	from := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	next, ok := NextActivation(rules, from)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 11, 4, 0, 0, 0, time.UTC), next)

	_, ok = NextActivation(docsRules(), from)
	assert.False(t, ok, "no schedule rules, no activation")
}
