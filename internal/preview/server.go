// Package preview serves the current post draft on localhost so the user
// can read it in a browser before publishing.
package preview

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tkman/postpilot/internal/generator"
)

// Server holds the draft being previewed. SetDraft may be called while the
// server is running; the next request sees the new draft.
type Server struct {
	mu    sync.RWMutex
	draft *generator.Draft

	httpServer *http.Server
}

// NewServer creates a preview server without starting it.
func NewServer() *Server {
	return &Server{}
}

// SetDraft swaps in the draft to preview.
func (s *Server) SetDraft(d *generator.Draft) {
	s.mu.Lock()
	s.draft = d
	s.mu.Unlock()
}

func (s *Server) currentDraft() *generator.Draft {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Router builds the preview routes.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestLogger)
	r.Use(Recovery)

	r.Get("/", s.handleIndex)
	r.Get("/raw", s.handleRaw)

	return r
}

// Start serves the preview on 127.0.0.1:port until the context is
// cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

const previewPage = `<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { max-width: 780px; margin: 40px auto; padding: 0 16px;
       font-family: "Apple SD Gothic Neo", "Malgun Gothic", sans-serif;
       line-height: 1.7; color: #222; }
h1 { border-bottom: 2px solid #eee; padding-bottom: 12px; }
table { border-collapse: collapse; width: 100%%; }
th, td { border: 1px solid #ddd; padding: 8px 12px; }
img { max-width: 100%%; }
.tags { color: #888; margin-top: 32px; font-size: 0.9em; }
</style>
</head>
<body>
<h1>%s</h1>
%s
<p class="tags">태그: %s</p>
</body>
</html>`

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	draft := s.currentDraft()
	if draft == nil {
		http.Error(w, "미리볼 초안이 없습니다", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	title := html.EscapeString(draft.Title)
	fmt.Fprintf(w, previewPage, title, title, draft.Content, html.EscapeString(draft.Tags))
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	draft := s.currentDraft()
	if draft == nil {
		http.Error(w, "미리볼 초안이 없습니다", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, draft.Content)
}
