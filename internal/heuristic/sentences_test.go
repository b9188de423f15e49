package heuristic

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSentences(t *testing.T) {
	notes := "\r\n- Photosynthesis converts light energy into chemical energy.\n" +
		"• Too short.\n" +
		"  - Mitochondria are the site of cellular respiration in cells! Why does this matter to us all?\n"

	got := Sentences(notes)
	want := []string{
		"Photosynthesis converts light energy into chemical energy.",
		"Mitochondria are the site of cellular respiration in cells!",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Sentences() = %q, want %q", got, want)
	}
}

func TestSentencesLengthBounds(t *testing.T) {
	exact := strings.Repeat("a", minSentenceLen-1) + "."
	tooLong := strings.Repeat("b", maxSentenceLen) + "."
	got := Sentences(exact + " " + tooLong)
	if len(got) != 1 || got[0] != exact {
		t.Fatalf("Sentences() = %q, want only the 35-char sentence", got)
	}
	for _, s := range got {
		if n := utf8.RuneCountInString(s); n < minSentenceLen || n > maxSentenceLen {
			t.Fatalf("sentence length %d out of bounds", n)
		}
	}
}

func TestSentencesIdempotent(t *testing.T) {
	notes := "The mitochondrion is the powerhouse of the eukaryotic cell. It produces ATP through respiration."
	first := Sentences(notes)
	second := Sentences(notes)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeat split differs: %q vs %q", first, second)
	}
}

func TestSentencesEmpty(t *testing.T) {
	if got := Sentences(" \n- \n•\n"); len(got) != 0 {
		t.Fatalf("Sentences() = %q, want none", got)
	}
}
