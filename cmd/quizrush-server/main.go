package main

import (
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/rousseya/quizrush-server/logging"
	"github.com/rousseya/quizrush-server/quizrush/catalog"
	"github.com/rousseya/quizrush-server/quizrush/config"
	"github.com/rousseya/quizrush-server/quizrush/game"
	"github.com/rousseya/quizrush-server/quizrush/server"
)

var logLevelFlag = flag.String("level", "info", "Sets the minimum log level. Should be one of 'debug', 'info', 'warning', 'error'.")

func logLevelFromFlag() logging.Level {
	switch *logLevelFlag {
	case "debug":
		return logging.LevelDebug
	case "warning", "warn":
		return logging.LevelWarning
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func main() {
	flag.Parse()

	fileHandler, err := logging.NewFileHandler("quizrush.log")
	if err != nil {
		// A log file we can't open is not fatal to serving games; fall back
		// to stdout only.
		fileHandler = nil
	}
	if fileHandler != nil {
		logging.SetHandler(logging.MergeHandlers(logging.NewStdoutHandler(), fileHandler))
	} else {
		logging.SetHandler(logging.NewStdoutHandler())
	}
	logging.SetMinLevel(logLevelFromFlag())
	go logging.Start()

	log := logging.NewPrefixed("app")
	log.Info("starting quizrush server...")

	env := config.LoadEnv()
	if err := config.Bootstrap(env.ConfigPath); err != nil {
		log.Error("failed to bootstrap config directory %s: %s", env.ConfigPath, err)
		shutdownLogging()
		os.Exit(1)
	}

	gameConfig, err := config.LoadGameConfig(env.ConfigPath)
	if err != nil {
		log.Error("failed to load %s: %s", filepath.Join(env.ConfigPath, config.GameConfigFile), err)
		shutdownLogging()
		os.Exit(1)
	}

	quizzes, err := catalog.Load(filepath.Join(env.ConfigPath, config.QuizzDir))
	if err != nil {
		log.Error("failed to load quiz catalog: %s", err)
		shutdownLogging()
		os.Exit(1)
	}
	log.Info("loaded %d quizzes from catalog", len(quizzes))

	registry := game.NewRegistry()
	gw := game.NewGateway(registry, quizzes, gameConfig.ManagerPassword, env.BaseURL)
	router := server.Router(gw, env.ConfigPath, "static")

	addr := ":" + strconv.Itoa(env.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Error("failed to bind %s: %s", addr, err)
		shutdownLogging()
		os.Exit(1)
	}

	httpServer := &http.Server{Handler: router}
	go func() {
		log.Info("listening on %s (base url %s)", addr, env.BaseURL)
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server stopped unexpectedly: %s", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	<-sigChan

	log.Info("shutting down...")
	httpServer.Close()
	shutdownLogging()
}

func shutdownLogging() {
	logging.Stop()
	logging.WaitForStop()
}
