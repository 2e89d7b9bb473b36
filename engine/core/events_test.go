package core

import "testing"

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls = append(calls, "first")
		return KeyCode(data.U16[0]) == KEY_ESCAPE
	}
	second := func(code SystemEventCode, sender, listener interface{}, data EventContext) bool {
		calls = append(calls, "second")
		return true
	}

	a, b := &struct{ int }{1}, &struct{ int }{2}
	if !bus.Register(EVENT_CODE_KEY_PRESSED, a, first) {
		t.Fatal("Register(a) = false")
	}
	if bus.Register(EVENT_CODE_KEY_PRESSED, a, first) {
		t.Error("duplicate Register(a) = true")
	}
	bus.Register(EVENT_CODE_KEY_PRESSED, b, second)

	var esc EventContext
	esc.U16[0] = uint16(KEY_ESCAPE)

	tests := []struct {
		name      string
		data      EventContext
		wantCalls string
	}{
		{"handled by first listener", esc, "first"},
		{"passed on", EventContext{}, "first,second"},
	}
	for _, tt := range tests {
		calls = nil
		if !bus.Fire(EVENT_CODE_KEY_PRESSED, nil, tt.data) {
			t.Errorf("%s: Fire() = false", tt.name)
		}
		if got := join(calls); got != tt.wantCalls {
			t.Errorf("%s: calls = %s, want %s", tt.name, got, tt.wantCalls)
		}
	}

	if bus.Fire(EVENT_CODE_APPLICATION_QUIT, nil, EventContext{}) {
		t.Error("Fire() without listeners = true")
	}

	if !bus.Unregister(EVENT_CODE_KEY_PRESSED, a) {
		t.Fatal("Unregister(a) = false")
	}
	calls = nil
	bus.Fire(EVENT_CODE_KEY_PRESSED, nil, esc)
	if got := join(calls); got != "second" {
		t.Errorf("calls after Unregister = %s, want second", got)
	}

	bus.Shutdown()
	if bus.Fire(EVENT_CODE_KEY_PRESSED, nil, esc) {
		t.Error("Fire() after Shutdown = true")
	}
}

func join(s []string) string {
	out := ""
	for i, v := range s {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}
