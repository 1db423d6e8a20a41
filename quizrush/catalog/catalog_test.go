package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func writeQuiz(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
		t.Fatalf("failed to write fixture quiz: %s", err)
	}
}

func TestLoadSkipsInvalidAndNonJSON(t *testing.T) {
	dir := t.TempDir()
	writeQuiz(t, dir, "geography.json", `{"subject":"Geography","questions":[]}`)
	writeQuiz(t, dir, "history.json", `{not valid json`)
	writeQuiz(t, dir, "readme.txt", `not a quiz`)

	quizzes, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %s", err)
	}
	if len(quizzes) != 1 {
		t.Fatalf("expected 1 valid quiz, got %d", len(quizzes))
	}
	if quizzes[0].ID != "geography" {
		t.Errorf("expected id 'geography', got %q", quizzes[0].ID)
	}
	if quizzes[0].Subject != "Geography" {
		t.Errorf("expected subject 'Geography', got %q", quizzes[0].Subject)
	}
}

func TestLoadMissingDirReturnsEmpty(t *testing.T) {
	quizzes, err := Load(filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("Load returned unexpected error: %s", err)
	}
	if len(quizzes) != 0 {
		t.Errorf("expected no quizzes for missing directory, got %d", len(quizzes))
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	writeQuiz(t, dir, "a.json", `{"subject":"A","questions":[]}`)
	quizzes, err := Load(dir)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %s", err)
	}

	if _, err := Find(quizzes, "a"); err != nil {
		t.Errorf("expected to find quiz 'a', got error: %s", err)
	}
	if _, err := Find(quizzes, "missing"); err == nil {
		t.Errorf("expected error for missing quiz id")
	}
}
