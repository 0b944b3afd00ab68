package webapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"gifportal/portal"
	"gifportal/solprogram"
	"gifportal/wallet"
)

// AddGifRequest is the body of POST /api/gifs.
type AddGifRequest struct {
	Link string `json:"link"`
}

// StateResponse is the current screen plus the page texts.
type StateResponse struct {
	portal.Screen
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// HandleGetState returns the current screen.
func (s *Server) HandleGetState(w http.ResponseWriter, r *http.Request) {
	s.respondState(w, http.StatusOK)
}

// HandleConnect requests an interactive wallet connection.
func (s *Server) HandleConnect(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callContext(r)
	defer cancel()

	if err := s.ctrl.RequestConnection(ctx); err != nil {
		respondError(w, err.Error(), statusFor(err))
		return
	}
	s.respondState(w, http.StatusOK)
}

// HandleAddGif submits a link.
func (s *Server) HandleAddGif(w http.ResponseWriter, r *http.Request) {
	var req AddGifRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := s.callContext(r)
	defer cancel()

	s.ctrl.SetDraft(req.Link)
	if err := s.ctrl.AppendEntry(ctx, req.Link); err != nil {
		respondError(w, messageFor(err), statusFor(err))
		return
	}
	s.respondState(w, http.StatusCreated)
}

// HandleInitialize creates the base account.
func (s *Server) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callContext(r)
	defer cancel()

	if err := s.ctrl.InitializeAccount(ctx); err != nil {
		respondError(w, messageFor(err), statusFor(err))
		return
	}
	s.respondState(w, http.StatusCreated)
}

// HandleReload invalidates and refetches the list.
func (s *Server) HandleReload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.callContext(r)
	defer cancel()

	if !s.ctrl.State().Connected() {
		respondError(w, portal.ErrNotConnected.Error(), http.StatusConflict)
		return
	}
	s.ctrl.Reload(ctx)
	s.respondState(w, http.StatusOK)
}

func (s *Server) callContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.opts.CallTimeout)
}

func (s *Server) respondState(w http.ResponseWriter, status int) {
	respondJSON(w, StateResponse{
		Screen:   s.ctrl.Screen(),
		Title:    s.opts.Title,
		Subtitle: s.opts.Subtitle,
	}, status)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, portal.ErrEmptyLink):
		return http.StatusBadRequest
	case errors.Is(err, portal.ErrNotConnected), errors.Is(err, portal.ErrNotInitializable):
		return http.StatusConflict
	case errors.Is(err, wallet.ErrRejected), errors.Is(err, wallet.ErrNotTrusted):
		return http.StatusForbidden
	case errors.Is(err, wallet.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func messageFor(err error) string {
	switch {
	case errors.Is(err, portal.ErrEmptyLink),
		errors.Is(err, portal.ErrNotConnected),
		errors.Is(err, portal.ErrNotInitializable):
		return err.Error()
	}
	return solprogram.ParseProgramError(err)
}

// Helper functions
func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}, status)
}
