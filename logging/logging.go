// Package logging is a small async, leveled, prefixed logger used by every
// quizrush component. Log calls never block the caller on I/O: they hand a
// message off to a background goroutine that owns the actual handler.
package logging

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
)

// Level is the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

var root = &asyncLogger{
	minLevel: LevelDebug,

	stopCh:     make(chan bool),
	msgCh:      make(chan *Message, 64),
	stoppedCh:  make(chan bool),
}

// SetHandler sets the handler that the root logger delivers messages to.
func SetHandler(h Handler) { root.handler = h }

// SetMinLevel sets the minimum level that will be delivered to the handler.
func SetMinLevel(level Level) { root.minLevel = level }

// Start starts the background delivery loop. Call once at startup, after
// SetHandler.
func Start() { root.Start() }

// Stop requests the delivery loop to drain and shut down.
func Stop() { root.Stop() }

// WaitForStop blocks until the delivery loop has fully shut down.
func WaitForStop() { root.WaitForStop() }

type asyncLogger struct {
	handler  Handler
	minLevel Level

	stopCh    chan bool
	msgCh     chan *Message
	stoppedCh chan bool
}

func (l *asyncLogger) Start() {
	if l.handler == nil {
		log.Fatal("logging: cannot start with a nil handler")
	}

loop:
	for {
		select {
		case stop := <-l.stopCh:
			if stop {
				break loop
			}
		case msg := <-l.msgCh:
			l.handler.OnMessage(msg)
		}
	}

drain:
	for {
		select {
		case msg := <-l.msgCh:
			l.handler.OnMessage(msg)
		default:
			break drain
		}
	}

	l.handler.OnShutdown()
	close(l.stoppedCh)
}

func (l *asyncLogger) Stop() { l.stopCh <- true }

func (l *asyncLogger) WaitForStop() { <-l.stoppedCh }

func (l *asyncLogger) log(level Level, prefix, format string, args ...interface{}) {
	if level < l.minLevel {
		return
	}
	l.msgCh <- &Message{
		Prefix:    prefix,
		Text:      fmt.Sprintf(format, args...),
		Level:     level,
		CreatedAt: time.Now(),
	}
}

// Message is a single log entry handed to a Handler.
type Message struct {
	Level     Level
	Text      string
	Prefix    string
	CreatedAt time.Time
}

// Handler renders or persists log messages. Implementations must not block
// for long since they run on the single delivery goroutine.
type Handler interface {
	OnMessage(msg *Message)
	OnShutdown()
}

type stdoutHandler struct{}

// NewStdoutHandler returns a handler that colorizes level and prefix and
// writes to stdout.
func NewStdoutHandler() Handler { return &stdoutHandler{} }

func (h *stdoutHandler) OnMessage(msg *Message) {
	var level string
	switch msg.Level {
	case LevelDebug:
		level = color.GreenString("[debug]")
	case LevelInfo:
		level = color.BlueString("[info]")
	case LevelWarning:
		level = color.YellowString("[warn]")
	case LevelError:
		level = color.RedString("[error]")
	default:
		level = color.HiBlackString("[?]")
	}
	prefix := color.CyanString(msg.Prefix)
	fmt.Fprintf(color.Output, "%s [%s] %s\n", level, prefix, msg.Text)
}

func (h *stdoutHandler) OnShutdown() {}

type fileHandler struct {
	file *os.File
}

// NewFileHandler returns a handler that appends plain-text lines to filename.
func NewFileHandler(filename string) (Handler, error) {
	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &fileHandler{file: f}, nil
}

func (h *fileHandler) OnMessage(msg *Message) {
	if h.file == nil {
		return
	}
	var level string
	switch msg.Level {
	case LevelDebug:
		level = "[debug]"
	case LevelInfo:
		level = "[info]"
	case LevelWarning:
		level = "[warn]"
	case LevelError:
		level = "[error]"
	default:
		level = "[?]"
	}
	if _, err := fmt.Fprintf(h.file, "%s [%s] [%s] %s\n", level, msg.CreatedAt.Format(time.RFC822), msg.Prefix, msg.Text); err != nil {
		fmt.Printf("logging: error writing to %s: %s\n", h.file.Name(), err)
		h.close()
	}
}

func (h *fileHandler) OnShutdown() {
	if h.file != nil {
		h.close()
	}
}

func (h *fileHandler) close() {
	if err := h.file.Close(); err != nil {
		fmt.Printf("logging: error closing %s: %s\n", h.file.Name(), err)
	}
	h.file = nil
}

type mergedHandlers struct{ handlers []Handler }

// MergeHandlers fans a message out to every handler in order.
func MergeHandlers(handlers ...Handler) Handler {
	return &mergedHandlers{handlers: handlers}
}

func (h *mergedHandlers) OnMessage(msg *Message) {
	for _, sub := range h.handlers {
		sub.OnMessage(msg)
	}
}

func (h *mergedHandlers) OnShutdown() {
	for _, sub := range h.handlers {
		sub.OnShutdown()
	}
}

// Prefixed is a logger bound to a constant prefix, the usual way components
// log: logging.NewPrefixed("session").
type Prefixed struct {
	Prefix string
}

// NewPrefixed returns a logger that prepends prefix to every message.
func NewPrefixed(prefix string) *Prefixed {
	return &Prefixed{Prefix: prefix}
}

func (l *Prefixed) Debug(format string, args ...interface{}) {
	root.log(LevelDebug, l.Prefix, format, args...)
}

func (l *Prefixed) Info(format string, args ...interface{}) {
	root.log(LevelInfo, l.Prefix, format, args...)
}

func (l *Prefixed) Warn(format string, args ...interface{}) {
	root.log(LevelWarning, l.Prefix, format, args...)
}

func (l *Prefixed) Error(format string, args ...interface{}) {
	root.log(LevelError, l.Prefix, format, args...)
}
