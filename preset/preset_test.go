package preset

import (
	"testing"

	"github.com/Skryldev/darkroom-develop/core"
)

func TestScenario5_AutoApplyOnlyOnce(t *testing.T) {
	tracker := NewAppliedTracker()
	h := core.NewImageHandle()

	if tracker.AlreadyApplied(h.ID) {
		t.Fatal("fresh image should not be marked applied")
	}
	tracker.MarkApplied(h.ID)
	if !tracker.AlreadyApplied(h.ID) {
		t.Fatal("expected flag to stick after MarkApplied")
	}
	tracker.MarkApplied(h.ID) // idempotent
	if !tracker.AlreadyApplied(h.ID) {
		t.Fatal("flag must remain set after repeated MarkApplied")
	}
}

func TestAutoApplyMatchesMostSpecificWins(t *testing.T) {
	r := NewResolver([]Preset{
		{Name: "generic", Op: "exposure", Origin: OriginBuiltin, AutoApply: true, Selector: Selector{}},
		{Name: "specific", Op: "exposure", Origin: OriginBuiltin, AutoApply: true, Selector: Selector{Maker: "Fujifilm", Model: "X-T4"}},
	})
	r.SetOneInstanceOps(map[string]bool{"exposure": true})
	h := core.ImageHandle{Maker: "Fujifilm", Model: "X-T4"}

	matches := r.AutoApplyMatches(h)
	if len(matches) != 1 || matches[0].Name != "specific" {
		t.Fatalf("expected the more specific preset to win, got %+v", matches)
	}
}

func TestAutoApplyUserBeatsBuiltinAtEqualSpecificity(t *testing.T) {
	r := NewResolver([]Preset{
		{Name: "builtin", Op: "exposure", Origin: OriginBuiltin, AutoApply: true, Selector: Selector{Maker: "Fujifilm"}},
		{Name: "user", Op: "exposure", Origin: OriginUser, AutoApply: true, Selector: Selector{Maker: "Fujifilm"}},
	})
	r.SetOneInstanceOps(map[string]bool{"exposure": true})
	h := core.ImageHandle{Maker: "Fujifilm"}

	matches := r.AutoApplyMatches(h)
	if len(matches) != 1 || matches[0].Name != "user" {
		t.Fatalf("expected user preset to win at equal specificity, got %+v", matches)
	}
}

func TestAutoApplyConflictsSerializeByInstancePriority(t *testing.T) {
	// spotremoval is not a ONE_INSTANCE op: multiple genuinely conflicting
	// matches must all survive as separate instances rather than one winner
	// discarding the rest.
	r := NewResolver([]Preset{
		{Name: "builtin-spot", Op: "spotremoval", Origin: OriginBuiltin, AutoApply: true, Selector: Selector{Maker: "Fujifilm"}},
		{Name: "user-spot", Op: "spotremoval", Origin: OriginUser, AutoApply: true, Selector: Selector{Maker: "Fujifilm", Model: "X-T4"}},
	})
	h := core.ImageHandle{Maker: "Fujifilm", Model: "X-T4"}

	matches := r.AutoApplyMatches(h)
	if len(matches) != 2 {
		t.Fatalf("expected both conflicting spotremoval matches to survive, got %+v", matches)
	}
	if matches[0].Name != "user-spot" || matches[0].InstancePriority != 0 {
		t.Fatalf("expected the most specific match first at instance-priority 0, got %+v", matches[0])
	}
	if matches[1].Name != "builtin-spot" || matches[1].InstancePriority != 1 {
		t.Fatalf("expected the runner-up at instance-priority 1, got %+v", matches[1])
	}
}

func TestIOPOrderQueriedSeparately(t *testing.T) {
	r := NewResolver([]Preset{
		{Name: "order-preset", Op: "ioporder", IOPOrder: true, Selector: Selector{Maker: "Fujifilm"}},
		{Name: "exposure-preset", Op: "exposure", AutoApply: true, Selector: Selector{Maker: "Fujifilm"}},
	})
	h := core.ImageHandle{Maker: "Fujifilm"}

	if matches := r.AutoApplyMatches(h); len(matches) != 1 || matches[0].Name != "exposure-preset" {
		t.Fatalf("expected ioporder preset excluded from AutoApplyMatches, got %+v", matches)
	}
	p, ok := r.IOPOrderMatch(h)
	if !ok || p.Name != "order-preset" {
		t.Fatalf("expected ioporder match, got %+v ok=%v", p, ok)
	}
}
