package keyword

import (
	"errors"
	"testing"
)

type staticDict map[string]int

func (d staticDict) Terms() (map[string]int, error) { return d, nil }

type brokenDict struct{}

func (brokenDict) Terms() (map[string]int, error) { return nil, errors.New("index closed") }

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "ab", 2},
		{"metformin", "metformin", 0},
		{"kitten", "sitting", 3},
		{"asprin", "aspirin", 1},
		{"ca", "ac", 1},
		{"naïve", "naive", 1},
	}
	for _, tt := range tests {
		if got := editDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := editDistance(tt.b, tt.a); got != tt.want {
			t.Errorf("editDistance(%q, %q) = %d, want %d", tt.b, tt.a, got, tt.want)
		}
	}
}

func TestSpeller_Suggest(t *testing.T) {
	dict := staticDict{"hypertension": 4, "metformin": 2, "metoprolol": 1, "follow": 3, "up": 3}
	sp := NewSpeller(dict, 0)

	tests := []struct {
		query, want string
	}{
		{"hypertenson", "hypertension"},
		{"Metformn follow up", "metformin follow up"},
		{"hypertension", ""},
		{"zzzzzzzz", ""},
		{"", ""},
	}
	for _, tt := range tests {
		got, err := sp.Suggest(tt.query)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("Suggest(%q) = %q, want %q", tt.query, got, tt.want)
		}
	}

	if _, err := NewSpeller(brokenDict{}, 1).Suggest("x"); err == nil {
		t.Error("dictionary error should surface")
	}
}

func TestSpeller_prefersFrequentTerm(t *testing.T) {
	sp := NewSpeller(staticDict{"cough": 1, "rough": 5}, 1)
	got, _ := sp.Suggest("tough")
	if got != "rough" {
		t.Errorf("Suggest = %q, want the more frequent tie", got)
	}
}
