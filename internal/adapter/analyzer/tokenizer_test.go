package analyzer

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"basic", "chicken, rice , garlic", []string{"chicken", "rice", "garlic"}},
		{"empty", "", nil},
		{"single", "salt", []string{"salt"}},
		{"inner spaces kept", " olive oil ,  sea salt", []string{"olive oil", "sea salt"}},
		{"empty piece kept", "a,,b", []string{"a", "", "b"}},
		{"trailing comma", "egg,", []string{"egg", ""}},
		{"tabs and newlines", "\tbutter\n,flour ", []string{"butter", "flour"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestTokenize_Deterministic(t *testing.T) {
	inputs := []string{"", "chicken, rice", " a , b ,, c ", "ÉPICES, Thé"}
	for _, in := range inputs {
		first := Tokenize(in)
		second := Tokenize(in)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("tokenizing %q twice gave %q and %q", in, first, second)
		}
	}
}

func TestTokenizer_LowercasesAndDropsEmpty(t *testing.T) {
	tok := NewTokenizer(false)

	got := tok.Tokenize("Chicken, , RICE,")
	want := []string{"chicken", "rice"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}
	if tok.RemovesStopwords() {
		t.Error("tokenizer should keep stopwords")
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer(true)

	got := tok.Tokenize("the, salt, and, pepper")
	want := []string{"salt", "pepper"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %q, got %q", want, got)
	}

	// Only whole tokens are matched against the stopword list.
	got = tok.Tokenize("salt and pepper")
	if len(got) != 1 || got[0] != "salt and pepper" {
		t.Errorf("expected multi-word token to survive, got %q", got)
	}
}

func TestTokenizer_OnlyStopwords(t *testing.T) {
	tok := NewTokenizer(true)
	if got := tok.Tokenize("the, and, of"); got != nil {
		t.Errorf("expected no tokens, got %q", got)
	}
}

func TestIsStopword(t *testing.T) {
	if !IsStopword("the") {
		t.Error("expected 'the' to be a stopword")
	}
	if IsStopword("garlic") {
		t.Error("did not expect 'garlic' to be a stopword")
	}
}
