package server

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"

	"github.com/TobiSchelling/TechBrief/internal/database"
	"github.com/TobiSchelling/TechBrief/internal/selection"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

var md = goldmark.New()

// recentDigests is how many digests the index lists.
const recentDigests = 7

// Server is the HTTP server for browsing digests.
type Server struct {
	db    *database.DB
	pages map[string]*template.Template
	mux   *http.ServeMux
}

// digestView is a digest with its stories resolved in stored order.
type digestView struct {
	Date         string
	Status       string
	Stories      []database.Story
	Missing      int
	Distribution []selection.TopicCount
}

// New creates a new Server.
func New(db *database.DB) (*Server, error) {
	funcMap := template.FuncMap{
		"markdown":   renderMarkdown,
		"formatDate": database.FormatDateDisplay,
		"percent":    func(f float64) int { return int(f*100 + 0.5) },
		"storyCount": func(d database.DigestRecord) int { return len(d.StoryIDs) },
		"joinTopics": func(t []string) string { return strings.Join(t, ", ") },
		"deref":      deref,
	}

	base, err := template.New("base.html").Funcs(funcMap).ParseFS(templateFS, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	// Each page gets its own clone of base so "title" and "content" can be redefined.
	pageNames := []string{"index.html", "digest.html"}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("cloning base for %s: %w", name, err)
		}
		if _, err := clone.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = clone
	}

	s := &Server{db: db, pages: pages, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	staticSub, _ := fs.Sub(staticFS, "static")
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/digest/", s.handleDigest)
	s.mux.HandleFunc("/api/digest/", s.handleDigestJSON)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	digests, err := s.db.GetRecentDigests(recentDigests)
	if err != nil {
		log.Printf("Error listing digests: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	s.render(w, http.StatusOK, "index.html", map[string]any{
		"Digests": digests,
	})
}

func (s *Server) handleDigest(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimPrefix(r.URL.Path, "/digest/")
	if date == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if !validDate(date) {
		http.NotFound(w, r)
		return
	}

	view, err := s.loadDigest(date)
	if err != nil {
		log.Printf("Error loading digest %s: %v", date, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if view == nil {
		status = http.StatusNotFound
	}
	s.render(w, status, "digest.html", map[string]any{
		"Date":   date,
		"Digest": view,
	})
}

type apiStory struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Source         string   `json:"source"`
	SourceDomain   string   `json:"source_domain,omitempty"`
	Topics         []string `json:"topics"`
	Summary        string   `json:"summary"`
	TrustScore     float64  `json:"trust_score"`
	RelevanceScore float64  `json:"relevance_score"`
	PublishedAt    string   `json:"published_at,omitempty"`
}

type apiDigest struct {
	Date    string     `json:"digest_date"`
	Status  string     `json:"status"`
	Stories []apiStory `json:"stories"`
}

// handleDigestJSON serves a digest with resolved stories for downstream senders.
func (s *Server) handleDigestJSON(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimPrefix(r.URL.Path, "/api/digest/")
	if !validDate(date) {
		writeJSONError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	view, err := s.loadDigest(date)
	if err != nil {
		log.Printf("Error loading digest %s: %v", date, err)
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if view == nil {
		writeJSONError(w, http.StatusNotFound, "no digest for "+date)
		return
	}

	out := apiDigest{Date: view.Date, Status: view.Status, Stories: make([]apiStory, 0, len(view.Stories))}
	for _, st := range view.Stories {
		out.Stories = append(out.Stories, apiStory{
			ID:             st.ID,
			Title:          st.Title,
			URL:            st.URL,
			Source:         st.Source,
			SourceDomain:   deref(st.SourceDomain),
			Topics:         st.Topics,
			Summary:        st.Summary,
			TrustScore:     st.TrustScore,
			RelevanceScore: st.RelevanceScore,
			PublishedAt:    deref(st.PublishedAt),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		log.Printf("Error encoding digest %s: %v", date, err)
	}
}

// loadDigest returns nil when no digest exists for date.
func (s *Server) loadDigest(date string) (*digestView, error) {
	d, err := s.db.GetDigest(date)
	if err != nil || d == nil {
		return nil, err
	}
	stories, err := s.db.GetStoriesByIDs(d.StoryIDs)
	if err != nil {
		return nil, err
	}
	return &digestView{
		Date:         d.DigestDate,
		Status:       d.Status,
		Stories:      stories,
		Missing:      len(d.StoryIDs) - len(stories),
		Distribution: selection.TopicDistribution(stories),
	}, nil
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := s.pages[name]
	if !ok {
		log.Printf("Template %s not found", name)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "base.html", data); err != nil {
		log.Printf("Error rendering template %s: %v", name, err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func validDate(date string) bool {
	_, err := database.ParseDate(date)
	return err == nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func renderMarkdown(text string) template.HTML {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}
	return template.HTML(buf.String()) //nolint: gosec
}

// Serve starts the HTTP server on the given port.
func Serve(db *database.DB, port int) error {
	srv, err := New(db)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", port)
	log.Printf("Server listening on http://%s", addr)
	return http.ListenAndServe(addr, srv.Handler())
}
