// Package catalog loads the set of quizzes a manager can choose from when
// creating a game.
package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rousseya/quizrush-server/logging"
	"github.com/rousseya/quizrush-server/quizrush"
)

var logger = logging.NewPrefixed("catalog")

// Load reads every *.json file directly inside dir and parses it as a Quiz.
// The catalog id of each quiz is derived from its filename without the
// extension, matching the sample-quiz layout the config bootstrap writes.
// Files that fail to parse are logged and skipped rather than aborting the
// whole load.
func Load(dir string) ([]quizrush.QuizWithID, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	quizzes := make([]quizrush.QuizWithID, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".json") {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error("failed to read quiz %s: %s", path, err)
			continue
		}

		var quiz quizrush.Quiz
		if err := json.Unmarshal(data, &quiz); err != nil {
			logger.Error("failed to parse quiz %s: %s", path, err)
			continue
		}

		id := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		quizzes = append(quizzes, quizrush.QuizWithID{ID: id, Quiz: quiz})
	}

	sort.Slice(quizzes, func(i, j int) bool { return quizzes[i].ID < quizzes[j].ID })
	return quizzes, nil
}

// Find returns the quiz with the given catalog id, or
// quizrush.ErrQuizNotFound if no quiz with that id was loaded.
func Find(quizzes []quizrush.QuizWithID, id string) (quizrush.QuizWithID, error) {
	for _, q := range quizzes {
		if q.ID == id {
			return q, nil
		}
	}
	return quizrush.QuizWithID{}, quizrush.ErrQuizNotFound
}
