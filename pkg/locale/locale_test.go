package locale

import (
	"strings"
	"testing"
)

func TestRender_FallsBackToDefaultLanguage(t *testing.T) {
	// Weekly report has no Hindi variant; must fall back to English.
	msg, ok := Render(KeyWeeklyReport, "hi", Params{AdherencePct: 85.7, TakenDoses: 6, TotalDoses: 7})
	if !ok {
		t.Fatal("expected fallback render to succeed")
	}
	if !strings.Contains(msg, "85.7") || !strings.Contains(msg, "6/7") {
		t.Errorf("unexpected fallback message: %q", msg)
	}
}

func TestRender_UnknownKey(t *testing.T) {
	if _, ok := Render("no_such_template", "en", Params{}); ok {
		t.Error("expected render of unknown key to fail")
	}
}

func TestRender_LocalizedVariant(t *testing.T) {
	en, _ := Render(KeyDoseReminder, "en", Params{MedicineName: "Paracetamol", Dosage: "500mg"})
	hi, _ := Render(KeyDoseReminder, "hi", Params{MedicineName: "Paracetamol", Dosage: "500mg"})
	if en == hi {
		t.Error("expected Hindi reminder to differ from English")
	}
	if !strings.Contains(hi, "Paracetamol") {
		t.Errorf("localized message lost the medicine name: %q", hi)
	}
}

func TestRenderDoseReminder_CustomMessageOverrides(t *testing.T) {
	p := Params{MedicineName: "Metformin", Dosage: "850mg", CustomMessage: "Take with breakfast"}
	if got := RenderDoseReminder("en", p); got != "Take with breakfast" {
		t.Errorf("custom message not honored: %q", got)
	}

	p.CustomMessage = ""
	if got := RenderDoseReminder("en", p); !strings.Contains(got, "Metformin") {
		t.Errorf("template render lost medicine name: %q", got)
	}
}
