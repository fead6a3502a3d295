package polish

import "testing"

func TestUIState_Transitions(t *testing.T) {
	sink := &recordingSink{}
	ui := NewUIState(sink, sink)

	if v, _ := ui.View(); v != ViewIdle {
		t.Errorf("expected idle, got %s", v)
	}
	if !ui.Enabled() {
		t.Error("expected trigger enabled initially")
	}

	ui.showLoading("loading")
	ui.showResult("partial")
	ui.showError("boom")

	view, content := ui.View()
	if view != ViewError || content != "boom" {
		t.Errorf("expected error view, got %s %q", view, content)
	}

	events, _ := sink.snapshot()
	want := []sinkEvent{{ViewLoading, "loading"}, {ViewResult, "partial"}, {ViewError, "boom"}}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d: expected %v, got %v", i, want[i], events[i])
		}
	}

	ui.disable()
	if ui.Enabled() {
		t.Error("expected disabled")
	}
	ui.enable()
	_, toggles := sink.snapshot()
	if len(toggles) != 2 || toggles[0] || !toggles[1] {
		t.Errorf("unexpected toggles %v", toggles)
	}
}

func TestUIState_NilSinkAndTrigger(t *testing.T) {
	ui := NewUIState(nil, nil)
	ui.showLoading("a")
	ui.showResult("b")
	ui.disable()

	if v, c := ui.View(); v != ViewResult || c != "b" {
		t.Errorf("expected state tracked without sink, got %s %q", v, c)
	}
	if ui.Enabled() {
		t.Error("expected disabled")
	}
}

func TestTriggerFunc(t *testing.T) {
	var got []bool
	tr := TriggerFunc(func(enabled bool) { got = append(got, enabled) })
	ui := NewUIState(nil, tr)
	ui.disable()
	ui.enable()
	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("unexpected calls %v", got)
	}
}

func TestMessages_WithDefaults(t *testing.T) {
	m := Messages{Failed: "failed"}.withDefaults()
	if m.Failed != "failed" {
		t.Errorf("expected override kept, got %q", m.Failed)
	}
	if m.Loading != DefaultMessages.Loading || m.Retrying != DefaultMessages.Retrying || m.EmptyInput != DefaultMessages.EmptyInput {
		t.Errorf("expected defaults filled, got %+v", m)
	}
}

func TestView_String(t *testing.T) {
	tests := map[View]string{
		ViewIdle:    "idle",
		ViewLoading: "loading",
		ViewResult:  "result",
		ViewError:   "error",
		View(42):    "unknown",
	}
	for v, want := range tests {
		if v.String() != want {
			t.Errorf("View(%d): expected %q, got %q", int(v), want, v.String())
		}
	}
}
