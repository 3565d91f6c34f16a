package types

import "testing"

func TestEventClassRoundTrip(t *testing.T) {
	for _, c := range AllEventClasses {
		name := c.String()
		if name == "unknown" {
			t.Fatalf("class %d has no name", c)
		}
		got, ok := ParseEventClass(name)
		if !ok || got != c {
			t.Errorf("ParseEventClass(%q) = %v, %v; want %v", name, got, ok, c)
		}
	}
}

func TestParseEventClassUnknown(t *testing.T) {
	if _, ok := ParseEventClass("tabs.onZoomChange"); ok {
		t.Error("expected unknown event name to be rejected")
	}
}

func TestCurrentWindow(t *testing.T) {
	s := &SessionData{Windows: []*Window{{Index: 0}, {Index: 1}}, SelectedWindow: 1}
	if w := s.CurrentWindow(); w == nil || w.Index != 1 {
		t.Errorf("CurrentWindow() = %+v, want window 1", w)
	}
	s.SelectedWindow = -1
	if w := s.CurrentWindow(); w != nil {
		t.Errorf("CurrentWindow() = %+v, want nil", w)
	}
}
