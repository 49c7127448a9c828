package editor

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"github.com/larder/larder/internal/models"
	"github.com/larder/larder/internal/tracker"
)

// waitFor is a convenience wrapper around teatest.WaitFor with a standard timeout.
func waitFor(t *testing.T, tm *teatest.TestModel, text string) {
	t.Helper()
	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte(text))
	}, teatest.WithDuration(5*time.Second))
}

// --- End-to-end tests ---
// These run the editor in a headless terminal and assert on the rendered
// screen.

func TestE2E_ShowsCostSheet(t *testing.T) {
	store := newMemStore()
	store.addLine(storedFlourLine("recipe-1"))

	tm := teatest.NewTestModel(t, buildModel(t, store),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "Country Loaf")
	waitFor(t, tm, "Total: $4.00")
}

func TestE2E_EditAndSave(t *testing.T) {
	store := newMemStore()
	line := storedFlourLine("recipe-1")
	store.addLine(line)

	tm := teatest.NewTestModel(t, buildModel(t, store),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "Loaded 1 line")

	tm.Send(SetQuantityMsg{LineID: line.ID, Quantity: 3})
	waitFor(t, tm, "modified")

	tm.Send(keyMsg("s"))
	waitFor(t, tm, "Saved: 1 updated")

	tm.Send(keyMsg("q"))
	final := tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second)).(*Model)

	if !final.quitting {
		t.Error("expected editor to be quitting")
	}
	stored, _ := store.line(line.ID)
	if stored.Quantity != 3 {
		t.Errorf("expected stored quantity 3, got %v", stored.Quantity)
	}
	if _, ok := store.draft("recipe-1"); ok {
		t.Error("expected no draft after a clean save")
	}
}

func TestE2E_QuitStoresDraft(t *testing.T) {
	store := newMemStore()
	line := storedFlourLine("recipe-1")
	store.addLine(line)

	tm := teatest.NewTestModel(t, buildModel(t, store),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "Loaded 1 line")

	tm.Send(SetQuantityMsg{LineID: line.ID, Quantity: 3})
	waitFor(t, tm, "modified")

	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))

	payload, ok := store.draft("recipe-1")
	if !ok {
		t.Fatal("expected draft to be stored on quit")
	}
	restored, err := tracker.DecodeDraft(payload)
	if err != nil {
		t.Fatalf("decoding draft: %v", err)
	}
	if kind, _ := restored.PendingKind(line.ID); kind != models.ChangeModified {
		t.Errorf("expected draft to keep the modified line, got %s", kind)
	}
	got, _ := restored.Line(line.ID)
	if got.Quantity != 3 {
		t.Errorf("expected draft quantity 3, got %v", got.Quantity)
	}
}

func TestE2E_TypeQuantityAndSave(t *testing.T) {
	store := newMemStore()
	line := storedFlourLine("recipe-1")
	store.addLine(line)

	tm := teatest.NewTestModel(t, buildModel(t, store),
		teatest.WithInitialTermSize(120, 40))
	t.Cleanup(func() { tm.Quit() })

	waitFor(t, tm, "Loaded 1 line")

	tm.Send(keyMsg("e"))
	waitFor(t, tm, "Quantity:")

	tm.Send(tea.KeyMsg{Type: tea.KeyBackspace})
	tm.Send(keyMsg("3"))
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitFor(t, tm, "modified")

	tm.Send(keyMsg("s"))
	waitFor(t, tm, "Saved: 1 updated")

	tm.Send(keyMsg("q"))
	tm.FinalModel(t, teatest.WithFinalTimeout(5*time.Second))

	stored, _ := store.line(line.ID)
	if stored.Quantity != 3 || *stored.LineCost != 6 {
		t.Errorf("expected stored 3 kg at 6.00, got %v", stored.Quantity)
	}
}
