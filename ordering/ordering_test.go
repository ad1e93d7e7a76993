package ordering

import (
	"testing"

	"github.com/Skryldev/darkroom-develop/core"
)

func inst(op string, prio int) core.OperationInstance {
	return core.OperationInstance{Op: op, InstancePriority: prio, Enabled: true}
}

func TestResolveBaseOrder(t *testing.T) {
	l := NewList([]string{"exposure", "crop", "resize"})
	out := l.Resolve([]core.OperationInstance{inst("resize", 0), inst("exposure", 0), inst("crop", 0)})

	want := []string{"exposure", "crop", "resize"}
	for i, w := range want {
		if out[i].Op != w || out[i].Rank != i {
			t.Fatalf("position %d: got op=%s rank=%d, want op=%s rank=%d", i, out[i].Op, out[i].Rank, w, i)
		}
	}
}

func TestResolveDuplicateInstanceOrder(t *testing.T) {
	l := NewList([]string{"exposure", "crop"})
	out := l.Resolve([]core.OperationInstance{inst("exposure", 1), inst("exposure", 0), inst("crop", 0)})

	if out[0].Op != "exposure" || out[0].InstancePriority != 0 {
		t.Fatalf("expected base instance (priority 0) first, got %+v", out[0])
	}
	if out[1].Op != "exposure" || out[1].InstancePriority != 1 {
		t.Fatalf("expected duplicate instance right after the base instance, got %+v", out[1])
	}
}

func TestResolveOverridePins(t *testing.T) {
	l := NewList([]string{"exposure", "crop", "resize"})
	l.SetOverride("resize", 0, -1)

	out := l.Resolve([]core.OperationInstance{inst("exposure", 0), inst("crop", 0), inst("resize", 0)})
	if out[0].Op != "resize" {
		t.Fatalf("expected pinned override to sort first, got %+v", out[0])
	}
}

func TestOverrideRoundTrip(t *testing.T) {
	l := NewList([]string{"exposure"})
	l.SetOverride("exposure", 2, 5)

	data, err := l.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	l2 := NewList([]string{"exposure"})
	if err := l2.UnmarshalOverrides(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got := l2.Overrides()
	if len(got) != 1 || got[0].Op != "exposure" || got[0].InstancePriority != 2 || got[0].Rank != 5 {
		t.Fatalf("unexpected round-tripped overrides: %+v", got)
	}
}
