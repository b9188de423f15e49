package storage

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestJSONRoundTripAndMissing(t *testing.T) {
	s, err := NewFileStorage(filepath.Join(t.TempDir(), "nested"))
	if err != nil {
		t.Fatal(err)
	}

	var got record
	err = s.LoadJSONFile("r.json", &got)
	if !errors.Is(err, ErrNotFound) || !apperrors.IsNotFoundError(err) {
		t.Fatalf("missing file err = %v", err)
	}
	if err := s.SaveJSONFile("sub/r.json", record{Name: "a", Count: 2}); err != nil {
		t.Fatal(err)
	}
	if err := s.LoadJSONFile("sub/r.json", &got); err != nil || got.Count != 2 {
		t.Fatalf("got %+v err %v", got, err)
	}
	if _, err := os.Stat(s.Path("sub/r.json.tmp")); !os.IsNotExist(err) {
		t.Fatal("temp file left behind")
	}
}

func TestCorruptJSON(t *testing.T) {
	s, _ := NewFileStorage(t.TempDir())
	s.SaveTextFile("bad.json", []byte("{"))
	var got record
	if err := s.LoadJSONFile("bad.json", &got); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestConcurrentWrites(t *testing.T) {
	s, _ := NewFileStorage(t.TempDir())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := s.SaveJSONFile("c.json", record{Count: n}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	var got record
	if err := s.LoadJSONFile("c.json", &got); err != nil {
		t.Fatalf("final file unreadable: %v", err)
	}
}
