// Package server wires the HTTP surface described in spec §6 on top of the
// game package's Gateway: the websocket upgrade endpoint, the image
// byte-serving endpoint, a static asset mount, and a trio of thin HTML page
// stubs (page templating itself is an explicit external collaborator, out
// of this repository's core).
package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/rousseya/quizrush-server/logging"
	"github.com/rousseya/quizrush-server/quizrush/game"
)

var logger = logging.NewPrefixed("http")

// imageExtMIME allowlists the asset extensions quiz files may reference,
// per spec §6.
var imageExtMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Router builds the complete mux for a running quizrush server: page stubs,
// static assets, image serving from the quiz catalog's images directory, and
// the websocket upgrade endpoint that hands every accepted socket to gw.
func Router(gw *game.Gateway, configPath, staticDir string) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", servePageStub("Quizrush")).Methods("GET")
	r.HandleFunc("/manager", servePageStub("Quizrush Manager")).Methods("GET")
	r.HandleFunc("/game/{game_id}", servePageStub("Quizrush Game")).Methods("GET")

	imagesDir := filepath.Join(configPath, "quizz", "images")
	r.PathPrefix("/images/").HandlerFunc(serveImage(imagesDir))

	if staticDir != "" {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	r.HandleFunc("/ws", serveWebsocket(gw)).Methods("GET")

	return withRequestLogging(r)
}

func withRequestLogging(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
		logger.Debug("%s %s", r.Method, r.RequestURI)
	})
}

// servePageStub returns the minimal HTML shell described in SPEC_FULL.md §6:
// HTML templating proper is an external collaborator, so this just loads the
// static client bundle.
func servePageStub(title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<!DOCTYPE html><html><head><title>" + title + "</title></head>" +
			"<body><div id=\"app\"></div><script src=\"/static/app.js\"></script></body></html>"))
	}
}

// serveImage serves files out of dir, the quiz catalog's images directory,
// rejecting path traversal and unsupported extensions per spec §6.
func serveImage(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, "/images/")
		if strings.Contains(rel, "..") {
			http.Error(w, "invalid path", http.StatusBadRequest)
			return
		}

		ext := strings.ToLower(filepath.Ext(rel))
		mime, ok := imageExtMIME[ext]
		if !ok {
			http.NotFound(w, r)
			return
		}

		path := filepath.Join(dir, filepath.FromSlash(rel))
		data, err := os.ReadFile(path)
		if err != nil {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", mime)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Write(data)
	}
}

// serveWebsocket upgrades the request to a websocket and hands it off to a
// fresh ConnectionHandler, keyed by the client's self-reported, persisted
// clientId (the sole basis for reconnection identity, per the glossary).
func serveWebsocket(gw *game.Gateway) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := r.URL.Query().Get("clientId")
		if clientID == "" {
			http.Error(w, "missing clientId query parameter", http.StatusBadRequest)
			return
		}

		rawConn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("error upgrading websocket connection: %s", err)
			return
		}

		conn := game.NewConn(rawConn)
		go conn.StartReadLoop()

		handler := game.NewConnectionHandler(gw, conn, clientID)
		handler.Run()
	}
}
