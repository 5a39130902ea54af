package server

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

func TemplateFilesFS() fs.FS {
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Parse(string(content))
}

var handshakeErrorTmpl = template.Must(ParseTemplate("handshake_error.html"))

// HandshakeErrorData contains data for rendering the handshake error page
type HandshakeErrorData struct {
	AppName  string
	Message  string
	LoginURL string
}

// renderHandshakeError writes the blocking error page with a link back to the login route.
func (s *Server) renderHandshakeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", contentTypeHTML)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	data := HandshakeErrorData{
		AppName:  s.config.GetAppName(),
		Message:  message,
		LoginURL: RouteLogin,
	}
	if err := handshakeErrorTmpl.Execute(w, data); err != nil {
		log.Err(err).Msg("Failed to render handshake error template")
	}
}
