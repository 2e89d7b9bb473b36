package core

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	SetLogOutput(io.Discard)
	os.Exit(m.Run())
}

func TestTeardownReleasesInReverse(t *testing.T) {
	td := NewTeardown()
	var order []string
	for _, name := range []string{"instance", "device", "swapchain", "fence"} {
		name := name
		td.Push(name, func() error {
			order = append(order, name)
			if name == "device" {
				return errors.New("busy")
			}
			return nil
		})
	}
	if td.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", td.Len())
	}

	if failed := td.Release(); failed != 1 {
		t.Errorf("Release() = %d failures, want 1", failed)
	}
	want := "fence,swapchain,device,instance"
	if got := strings.Join(order, ","); got != want {
		t.Errorf("release order = %s, want %s", got, want)
	}
	if td.Len() != 0 {
		t.Errorf("Len() after Release = %d", td.Len())
	}
	if failed := td.Release(); failed != 0 {
		t.Errorf("second Release() = %d, want 0", failed)
	}
}

func TestClock(t *testing.T) {
	now := time.Unix(100, 0)
	c := NewClock()
	c.now = func() time.Time { return now }

	c.Update()
	if c.Elapsed() != 0 {
		t.Fatalf("stopped clock elapsed %s", c.Elapsed())
	}

	c.Start()
	now = now.Add(16 * time.Millisecond)
	c.Update()
	if c.Elapsed() != 16*time.Millisecond {
		t.Errorf("Elapsed() = %s, want 16ms", c.Elapsed())
	}

	c.Stop()
	now = now.Add(time.Second)
	c.Update()
	if c.Elapsed() != 16*time.Millisecond {
		t.Errorf("Elapsed() after Stop = %s, want 16ms", c.Elapsed())
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < 10; i++ {
		m.Update(10 * time.Millisecond)
	}
	if m.FrameTime() != 10*time.Millisecond {
		t.Errorf("FrameTime() = %s, want 10ms", m.FrameTime())
	}
	if m.FPS() != 0 {
		t.Errorf("FPS() = %f before a full second", m.FPS())
	}

	// Push the short frames out of the window.
	for i := 0; i < AVG_COUNT; i++ {
		m.Update(40 * time.Millisecond)
	}
	if m.FrameTime() != 40*time.Millisecond {
		t.Errorf("FrameTime() = %s, want 40ms", m.FrameTime())
	}
	// 10 x 10ms + 23 x 40ms crosses one second.
	if fps := m.FPS(); fps < 30 || fps > 33 {
		t.Errorf("FPS() = %f, want about 32", fps)
	}
}

func TestLogDiagnosticLevels(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(io.Discard)
	if err := SetLogLevel("info"); err != nil {
		t.Fatal(err)
	}
	defer SetLogLevel("debug")

	LogDiagnostic(DiagnosticVerbose, "Validation", "hidden")
	LogDiagnostic(DiagnosticError, "Validation", "broken state")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("verbose message logged at info level: %q", out)
	}
	if !strings.Contains(out, "broken state") || !strings.Contains(out, "Validation") {
		t.Errorf("error message missing: %q", out)
	}
}

func TestSetLogLevelRejectsUnknown(t *testing.T) {
	if err := SetLogLevel("chatty"); err == nil {
		t.Fatal("SetLogLevel(\"chatty\") succeeded")
	}
}
