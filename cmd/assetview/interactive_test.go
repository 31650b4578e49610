package main

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/assetcache/config"
	"github.com/wippyai/assetcache/errors"
)

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestInteractive_FrameRefreshesTypes(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	if _, err := s.load(ctx, "readme.txt"); err != nil {
		t.Fatalf("load: %v", err)
	}

	m := newInteractiveModel(ctx, s, config.Default())
	_, cmd := m.Update(frameMsg(time.Now()))
	if cmd == nil {
		t.Fatal("Expected the next frame to be scheduled")
	}
	if len(m.types.Rows()) != 1 {
		t.Fatalf("Expected 1 type row, got %d", len(m.types.Rows()))
	}
	if s.engine.Frames() != 1 {
		t.Fatalf("Frames = %d, want 1", s.engine.Frames())
	}
}

func TestInteractive_SweepFailureIsKept(t *testing.T) {
	ctx := context.Background()
	s := newTestSession(t)
	if _, err := s.load(ctx, "readme.txt"); err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := s.engine.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m := newInteractiveModel(ctx, s, config.Default())
	if _, cmd := m.Update(frameMsg(time.Now())); cmd != nil {
		t.Fatal("Frame loop must stop after a failed sweep")
	}
	closed := &errors.Error{Phase: errors.PhaseSweep, Kind: errors.KindClosed}
	if !errors.Is(m.fatalErr, closed) {
		t.Fatalf("Expected sweep error, got %v", m.fatalErr)
	}

	// Actions that would succeed or fail on their own must not replace it.
	for _, k := range []string{"c", "d", "l", "r"} {
		if _, cmd := m.Update(key(k)); cmd != nil {
			t.Fatalf("Key %q should be ignored after a failed sweep", k)
		}
	}
	if !errors.Is(m.fatalErr, closed) {
		t.Fatalf("Sweep error was replaced by %v", m.fatalErr)
	}
	if m.state != stateBrowse {
		t.Fatal("Prompts must not open after a failed sweep")
	}
	if m.err != nil {
		t.Fatalf("Unexpected action error: %v", m.err)
	}
	if _, cmd := m.Update(frameMsg(time.Now())); cmd != nil {
		t.Fatal("Frames must stay stopped")
	}

	_, cmd := m.Update(key("q"))
	if cmd == nil {
		t.Fatal("Expected q to quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("Expected a quit message")
	}
}
