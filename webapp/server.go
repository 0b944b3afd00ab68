// Package webapp serves the portal as an HTML page and a JSON API.
package webapp

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"gifportal/portal"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const defaultCallTimeout = 60 * time.Second

var errCrossOrigin = errors.New("cross-origin request rejected")

type Options struct {
	Title     string
	Subtitle  string
	Credit    string
	CreditURL string
	// Explorer links the base account in a block explorer.
	Explorer    string
	CallTimeout time.Duration
	Logger      *zap.Logger
}

type Server struct {
	ctrl *portal.Controller
	opts Options
	log  *zap.Logger
	cop  *http.CrossOriginProtection
}

func New(ctrl *portal.Controller, opts Options) *Server {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaultCallTimeout
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{ctrl: ctrl, opts: opts, log: log, cop: http.NewCrossOriginProtection()}
}

// Router wires the page, the form actions and the JSON API.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests, s.sameOrigin)

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/connect", s.formAction(s.connect)).Methods(http.MethodPost)
	r.HandleFunc("/gifs", s.formActionRequest(func(ctx context.Context, r *http.Request) error {
		link := r.PostFormValue("link")
		s.ctrl.SetDraft(link)
		return s.ctrl.AppendEntry(ctx, link)
	})).Methods(http.MethodPost)
	r.HandleFunc("/initialize", s.formAction(s.ctrl.InitializeAccount)).Methods(http.MethodPost)
	r.HandleFunc("/reload", s.formAction(s.reload)).Methods(http.MethodPost)

	r.HandleFunc("/api/state", s.HandleGetState).Methods(http.MethodGet)
	r.HandleFunc("/api/connect", s.HandleConnect).Methods(http.MethodPost)
	r.HandleFunc("/api/gifs", s.HandleAddGif).Methods(http.MethodPost)
	r.HandleFunc("/api/initialize", s.HandleInitialize).Methods(http.MethodPost)
	r.HandleFunc("/api/reload", s.HandleReload).Methods(http.MethodPost)

	return r
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug("request",
			zap.String("request_id", uuid.NewString()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", time.Since(start)),
		)
	})
}

// sameOrigin rejects state-changing requests sent by another site. Requests
// without Origin, Sec-Fetch-Site or Referer come from non-browser clients and
// pass.
func (s *Server) sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.checkOrigin(r); err != nil {
			s.log.Warn("rejected request",
				zap.String("path", r.URL.Path),
				zap.String("origin", r.Header.Get("Origin")),
				zap.String("referer", r.Referer()),
				zap.Error(err),
			)
			respondError(w, errCrossOrigin.Error(), http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkOrigin(r *http.Request) error {
	if err := s.cop.Check(r); err != nil {
		return err
	}
	switch r.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}
	if r.Header.Get("Origin") != "" || r.Referer() == "" {
		return nil
	}
	ref, err := url.Parse(r.Referer())
	if err != nil || ref.Host != r.Host {
		return errCrossOrigin
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

type pageView struct {
	Title     string
	Subtitle  string
	Credit    string
	CreditURL string
	Explorer  string
	Kind      string
	Screen    portal.Screen
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	scr := s.ctrl.Screen()
	view := pageView{
		Title:     s.opts.Title,
		Subtitle:  s.opts.Subtitle,
		Credit:    s.opts.Credit,
		CreditURL: s.opts.CreditURL,
		Kind:      scr.Kind.String(),
		Screen:    scr,
	}
	if scr.Wallet != "" {
		view.Explorer = s.opts.Explorer
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, view); err != nil {
		s.log.Error("failed to render page", zap.Error(err))
	}
}

// formAction runs op and sends the browser back to the page, where the
// outcome shows up as the new screen or notice.
func (s *Server) formAction(op func(ctx context.Context) error) http.HandlerFunc {
	return s.formActionRequest(func(ctx context.Context, _ *http.Request) error {
		return op(ctx)
	})
}

func (s *Server) formActionRequest(op func(ctx context.Context, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.CallTimeout)
		defer cancel()
		if err := op(ctx, r); err != nil {
			s.log.Debug("form action failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (s *Server) connect(ctx context.Context) error {
	return s.ctrl.RequestConnection(ctx)
}

func (s *Server) reload(ctx context.Context) error {
	st := s.ctrl.Reload(ctx)
	if st.Kind == portal.ListUnavailable {
		return st.Err
	}
	return nil
}
