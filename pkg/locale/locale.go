// Package locale renders patient-facing SMS texts by template key and
// language. A missing language falls back to English rather than blocking
// the send.
package locale

import "fmt"

const DefaultLanguage = "en"

// Template keys the reminder core renders.
const (
	KeyDoseReminder  = "dose_reminder"
	KeySetupConfirm  = "setup_confirm"
	KeyCancelled     = "reminder_cancelled"
	KeyWeeklyReport  = "weekly_report"
	KeyWeeklyNoDoses = "weekly_report_empty"
)

// Params carries the values a template may interpolate.
type Params struct {
	MedicineName  string
	Dosage        string
	Times         string
	DurationDays  int
	AdherencePct  float64
	TakenDoses    int
	TotalDoses    int
	CustomMessage string
}

// Render produces the message for a template key in the requested language,
// falling back to the default language when the pair is unknown. The
// returned bool is false when even the fallback is missing.
func Render(key, languageCode string, p Params) (string, bool) {
	if fn, ok := templates[langKey{languageCode, key}]; ok {
		return fn(p), true
	}
	if fn, ok := templates[langKey{DefaultLanguage, key}]; ok {
		return fn(p), true
	}
	return "", false
}

// RenderDoseReminder is the hot path: the dispatch loop's message for one
// due slot. A non-empty custom message overrides the template body but
// keeps the header.
func RenderDoseReminder(languageCode string, p Params) string {
	if p.CustomMessage != "" {
		return p.CustomMessage
	}
	msg, _ := Render(KeyDoseReminder, languageCode, p)
	return msg
}

type langKey struct {
	lang string
	key  string
}

var templates = map[langKey]func(Params) string{
	{"en", KeyDoseReminder}: func(p Params) string {
		return fmt.Sprintf("Medication reminder: time to take %s (%s). Please take your medication as prescribed.",
			p.MedicineName, p.Dosage)
	},
	{"en", KeySetupConfirm}: func(p Params) string {
		return fmt.Sprintf("Reminder setup complete for %s (%s). Times: %s. Duration: %d days. You will receive SMS reminders at the scheduled times.",
			p.MedicineName, p.Dosage, p.Times, p.DurationDays)
	},
	{"en", KeyCancelled}: func(p Params) string {
		return fmt.Sprintf("Medication reminders for %s have been cancelled.", p.MedicineName)
	},
	{"en", KeyWeeklyReport}: func(p Params) string {
		return fmt.Sprintf("Weekly medication report: adherence %.1f%%, %d/%d doses taken.",
			p.AdherencePct, p.TakenDoses, p.TotalDoses)
	},
	{"en", KeyWeeklyNoDoses}: func(p Params) string {
		return "Weekly medication report: no doses were scheduled this week."
	},

	{"hi", KeyDoseReminder}: func(p Params) string {
		return fmt.Sprintf("दवा अनुस्मारक: %s (%s) लेने का समय हो गया है। कृपया निर्धारित अनुसार अपनी दवा लें।",
			p.MedicineName, p.Dosage)
	},
	{"hi", KeyCancelled}: func(p Params) string {
		return fmt.Sprintf("%s के लिए दवा अनुस्मारक रद्द कर दिए गए हैं।", p.MedicineName)
	},

	{"pa", KeyDoseReminder}: func(p Params) string {
		return fmt.Sprintf("ਦਵਾਈ ਯਾਦਦਿਹਾਨੀ: %s (%s) ਲੈਣ ਦਾ ਸਮਾਂ ਹੋ ਗਿਆ ਹੈ। ਕਿਰਪਾ ਕਰਕੇ ਨਿਰਧਾਰਤ ਅਨੁਸਾਰ ਆਪਣੀ ਦਵਾਈ ਲਓ।",
			p.MedicineName, p.Dosage)
	},
	{"pa", KeyCancelled}: func(p Params) string {
		return fmt.Sprintf("%s ਲਈ ਦਵਾਈ ਯਾਦਦਿਹਾਨੀਆਂ ਰੱਦ ਕਰ ਦਿੱਤੀਆਂ ਗਈਆਂ ਹਨ।", p.MedicineName)
	},
}
