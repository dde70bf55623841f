package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type indexData struct {
	Title string
}

type IndexHandler struct {
	title  string
	logger *zap.Logger
}

func NewIndexHandler(title string, logger *zap.Logger) *IndexHandler {
	return &IndexHandler{title: title, logger: logger}
}

func (h *IndexHandler) Index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, indexData{Title: h.title}); err != nil {
		h.logger.Error("failed to render index", zap.Error(err))
	}
}
