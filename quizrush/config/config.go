// Package config loads and bootstraps the on-disk configuration directory:
// the shared manager password (game.json) and the quiz catalog (quizz/).
// Environment variables are bound through viper the way Seednode-partybox's
// CLI config layer does, minus its cobra subcommands since quizrush has none.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/rousseya/quizrush-server/logging"
	"github.com/rousseya/quizrush-server/quizrush"
)

var logger = logging.NewPrefixed("config")

// Env holds the environment-derived settings that shape a server run.
type Env struct {
	ConfigPath string
	Port       int
	BaseURL    string
}

// LoadEnv binds CONFIG_PATH, PORT and BASE_URL from the process environment,
// applying the same defaults as the original implementation.
func LoadEnv() Env {
	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()
	v.SetDefault("CONFIG_PATH", "config")
	v.SetDefault("PORT", 3000)

	configPath := v.GetString("CONFIG_PATH")
	port := v.GetInt("PORT")

	baseURL := v.GetString("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:" + strconv.Itoa(port)
	}

	return Env{ConfigPath: configPath, Port: port, BaseURL: baseURL}
}

// QuizzDir is the name of the subdirectory holding catalog quiz files.
const QuizzDir = "quizz"

// GameConfigFile is the name of the shared manager config file.
const GameConfigFile = "game.json"

// Bootstrap creates configPath (and a quizz/ subdirectory with one sample
// quiz) if they don't already exist, so a fresh checkout can boot without
// any manual setup.
func Bootstrap(configPath string) error {
	if err := os.MkdirAll(configPath, 0755); err != nil {
		return err
	}

	gamePath := filepath.Join(configPath, GameConfigFile)
	if _, err := os.Stat(gamePath); os.IsNotExist(err) {
		defaultConfig := quizrush.GameConfig{
			ManagerPassword: "PASSWORD",
			ManagerEmails:   []string{},
		}
		data, err := json.MarshalIndent(defaultConfig, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(gamePath, data, 0644); err != nil {
			return err
		}
		logger.Info("wrote default %s", gamePath)
	}

	quizDir := filepath.Join(configPath, QuizzDir)
	if _, err := os.Stat(quizDir); os.IsNotExist(err) {
		if err := os.MkdirAll(quizDir, 0755); err != nil {
			return err
		}

		example := quizrush.Quiz{
			Subject: "Example Quiz",
			Questions: []quizrush.Question{
				{
					Question: "What is the correct answer?",
					Answers:  []string{"No", "Correct", "No", "No"},
					Solution: 1,
					Cooldown: 5,
					Time:     15,
				},
			},
		}
		data, err := json.MarshalIndent(example, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(quizDir, "example.json"), data, 0644); err != nil {
			return err
		}
		logger.Info("wrote sample quiz to %s", quizDir)
	}

	return nil
}

// LoadGameConfig reads and parses game.json from configPath.
func LoadGameConfig(configPath string) (quizrush.GameConfig, error) {
	data, err := os.ReadFile(filepath.Join(configPath, GameConfigFile))
	if err != nil {
		return quizrush.GameConfig{}, err
	}
	var cfg quizrush.GameConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return quizrush.GameConfig{}, err
	}
	return cfg, nil
}

// ResolveImageURL resolves an asset path referenced from a quiz file into a
// URL a browser can fetch. Paths that are already absolute URLs pass
// through unchanged; relative paths are served from this server and so are
// prefixed with baseURL.
func ResolveImageURL(path, baseURL string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return baseURL + "/" + path
}
