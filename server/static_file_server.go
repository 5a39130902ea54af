package server

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
)

//go:embed static/*
var staticFiles embed.FS

const indexFile = "index.html"

// staticHandler serves the console's exported build. Unknown paths fall back to index.html so
// client-side routes load the shell.
type staticHandler struct {
	files      fs.FS
	fileServer http.Handler
}

// newStaticHandler serves dir, or the embedded placeholder shell when dir does not exist.
func newStaticHandler(dir string) http.Handler {
	files := StaticFilesFS()
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		files = os.DirFS(dir)
	} else if dir != "" {
		log.Warn().Str("dir", dir).Msg("console build not found, serving placeholder shell")
	}
	return &staticHandler{
		files:      files,
		fileServer: http.FileServer(http.FS(files)),
	}
}

func (h *staticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if isAPIRequest(r) {
		writeJSONError(w, http.StatusNotFound, "not_found", "no such endpoint")
		return
	}

	name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	if name == "" {
		name = indexFile
	}
	if info, err := fs.Stat(h.files, name); err == nil && !info.IsDir() {
		h.fileServer.ServeHTTP(w, r)
		return
	}
	if path.Ext(name) != "" {
		http.NotFound(w, r)
		return
	}

	index, err := fs.ReadFile(h.files, indexFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Err(err).Msg("failed to read console shell")
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentTypeHTML)
	_, _ = w.Write(index)
}

func StaticFilesFS() fs.FS {
	subFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic("Failed to create sub filesystem: " + err.Error())
	}

	return subFS
}
