package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/saint0x/ghscribe/pkg/config"
	"github.com/saint0x/ghscribe/pkg/generate"
	"github.com/saint0x/ghscribe/pkg/github"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

type sessionRequest struct {
	Owner     string `json:"owner"`
	Repo      string `json:"repo"`
	RepoURL   string `json:"repoUrl"`
	Token     string `json:"token"`
	GeminiKey string `json:"geminiKey"`
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"maxResults"`
}

type selectRequest struct {
	Paths []string `json:"paths"`
}

type generateRequest struct {
	Temperature     float32 `json:"temperature"`
	AutoPullRequest bool    `json:"autoPullRequest"`
	Path            string  `json:"path"`
	Prompt          string  `json:"prompt"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) current() *generate.Session {
	s.sessionMu.RLock()
	defer s.sessionMu.RUnlock()
	return s.session
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// writeError maps use case errors onto HTTP statuses
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var fetchErr *generate.FetchError
	status := http.StatusInternalServerError
	switch {
	case generate.IsPrecondition(err):
		status = http.StatusBadRequest
	case errors.Is(err, generate.ErrBusy):
		status = http.StatusConflict
	case errors.As(err, &fetchErr):
		status = http.StatusBadGateway
	case errors.Is(err, config.ErrMissingCredential):
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warning("Invalid request body from %s: %v", r.RemoteAddr, err)
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return false
	}
	return true
}

// withSession resolves the current session or reports that none exists
func (s *Server) withSession(w http.ResponseWriter) *generate.Session {
	session := s.current()
	if session == nil {
		s.writeError(w, generate.ErrNoRepository)
	}
	return session
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	owner, repo := req.Owner, req.Repo
	if req.RepoURL != "" {
		var err error
		if owner, repo, err = github.ParseRepo(req.RepoURL); err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
	}
	if owner == "" || repo == "" {
		s.writeError(w, generate.ErrNoRepository)
		return
	}

	creds := Credentials{GitHubToken: req.Token, GenerationKey: req.GeminiKey}

	s.sessionMu.Lock()
	if s.session == nil || creds != s.creds {
		session, err := s.factory(r.Context(), creds)
		if err != nil {
			s.sessionMu.Unlock()
			s.writeError(w, err)
			return
		}
		s.session, s.creds = session, creds
	}
	session := s.session
	s.sessionMu.Unlock()

	session.SelectRepository(owner, repo)
	s.writeJSON(w, http.StatusOK, map[string]string{"repository": session.Repository()})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if !s.decode(w, r, &req) {
		return
	}
	session := s.withSession(w)
	if session == nil {
		return
	}

	results, err := session.Search(r.Context(), req.Query, req.MaxResults)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !s.decode(w, r, &req) {
		return
	}
	session := s.withSession(w)
	if session == nil {
		return
	}

	if err := session.Select(req.Paths); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"selected": len(req.Paths)})
}

// generateHandler adapts a use case to an HTTP handler
func (s *Server) generateHandler(run useCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if !s.decode(w, r, &req) {
			return
		}
		session := s.withSession(w)
		if session == nil {
			return
		}

		out, err := run(r, session, req)
		if err != nil {
			s.writeError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

// useCase runs one generation use case for a decoded request
type useCase func(r *http.Request, session *generate.Session, req generateRequest) (*generate.Outcome, error)

func readme(r *http.Request, session *generate.Session, req generateRequest) (*generate.Outcome, error) {
	return session.GenerateREADME(r.Context(), generate.ReadmeOptions{
		Temperature:     req.Temperature,
		AutoPullRequest: req.AutoPullRequest,
	})
}

func documentation(r *http.Request, session *generate.Session, req generateRequest) (*generate.Outcome, error) {
	return session.GenerateDocumentation(r.Context(), req.Temperature)
}

func comments(r *http.Request, session *generate.Session, req generateRequest) (*generate.Outcome, error) {
	return session.GenerateCommentsAndSendPullRequest(r.Context(), generate.CommentOptions{
		Temperature:     req.Temperature,
		AutoPullRequest: req.AutoPullRequest,
	})
}

func checkComments(r *http.Request, session *generate.Session, req generateRequest) (*generate.Outcome, error) {
	return session.CheckComments(r.Context(), req.Path, req.Temperature)
}

func wellDocumented(r *http.Request, session *generate.Session, req generateRequest) (*generate.Outcome, error) {
	return session.WellDocumented(r.Context(), req.Path, req.Temperature)
}

func custom(r *http.Request, session *generate.Session, req generateRequest) (*generate.Outcome, error) {
	return session.SendCustomPrompt(r.Context(), req.Prompt, req.Temperature)
}

func (s *Server) handleClearGenerated(w http.ResponseWriter, r *http.Request) {
	session := s.withSession(w)
	if session == nil {
		return
	}
	session.ClearGeneratedContent()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearRepo(w http.ResponseWriter, r *http.Request) {
	session := s.withSession(w)
	if session == nil {
		return
	}
	session.ClearRepoContent()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	session := s.withSession(w)
	if session == nil {
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="output.md"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(session.Output()))
}
