package summary

import (
	"reflect"
	"testing"

	"github.com/sehatline/sehat_backend/internal/model"
)

func TestTopTerms(t *testing.T) {
	tests := []struct {
		name  string
		terms []string
		k     int
		want  []model.FreqEntry
	}{
		{
			name:  "empty input",
			terms: nil,
			k:     5,
			want:  []model.FreqEntry{},
		},
		{
			name:  "counts and ordering",
			terms: []string{"fever", "cough", "fever", "headache", "fever", "cough"},
			k:     5,
			want: []model.FreqEntry{
				{Term: "fever", Count: 3},
				{Term: "cough", Count: 2},
				{Term: "headache", Count: 1},
			},
		},
		{
			name: "tie breaks toward more recent",
			// input is most-recent-first, so cough was seen more recently
			terms: []string{"cough", "fever", "fever", "cough"},
			k:     5,
			want: []model.FreqEntry{
				{Term: "cough", Count: 2},
				{Term: "fever", Count: 2},
			},
		},
		{
			name:  "truncates to k",
			terms: []string{"a", "b", "c", "d"},
			k:     2,
			want: []model.FreqEntry{
				{Term: "a", Count: 1},
				{Term: "b", Count: 1},
			},
		},
		{
			name:  "normalizes case and whitespace",
			terms: []string{"Fever ", " fever", "FEVER"},
			k:     5,
			want: []model.FreqEntry{
				{Term: "fever", Count: 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TopTerms(tt.terms, tt.k)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopTerms() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSplitSymptoms(t *testing.T) {
	got := SplitSymptoms(" fever, dry cough ,, shortness of breath")
	want := []string{"fever", "dry cough", "shortness of breath"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitSymptoms() = %v, want %v", got, want)
	}

	if got := SplitSymptoms(""); len(got) != 0 {
		t.Errorf("expected empty result for empty input, got %v", got)
	}
}
