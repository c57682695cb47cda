// Package web serves the pantry list as an HTML page and a JSON API.
package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Makepad-fr/pantry/internal/model"
	"github.com/Makepad-fr/pantry/internal/pantry"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templateFS, "templates/index.html"))

const hintIncomplete = "name and quantity are required"

type Server struct {
	sync   *pantry.Synchronizer
	recipe *pantry.RecipeFlow
	log    *zap.Logger
}

// New returns a server reading items from s. The caller owns the
// synchronizer's subscription.
func New(s *pantry.Synchronizer, f *pantry.RecipeFlow, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{sync: s, recipe: f, log: log}
}

// Handler builds the router.
func (srv *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(srv.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			srv.log.Warn("write error", zap.Error(err))
		}
	})

	r.Get("/", srv.page)
	r.Post("/items", srv.addForm)
	r.Post("/items/{id}/delete", srv.deleteForm)
	r.Post("/recipe", srv.recipeForm)

	r.Route("/api", func(r chi.Router) {
		r.Get("/items", srv.listItems)
		r.Post("/items", srv.createItem)
		r.Delete("/items/{id}", srv.deleteItem)
		r.Post("/recipe", srv.generateRecipe)
	})
	return r
}

func (srv *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		srv.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// ---- page ----

type pageData struct {
	Items  []model.Item
	Draft  model.Draft
	Hint   string
	Recipe string
}

func (srv *Server) render(w http.ResponseWriter, status int, data pageData) {
	data.Items = srv.sync.Items()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		srv.log.Error("render page", zap.Error(err))
	}
}

func (srv *Server) page(w http.ResponseWriter, r *http.Request) {
	srv.render(w, http.StatusOK, pageData{})
}

func (srv *Server) addForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	d := model.Draft{Name: r.PostForm.Get("name"), Price: r.PostForm.Get("price")}
	if !pantry.ValidDraft(d) {
		srv.render(w, http.StatusUnprocessableEntity, pageData{Draft: d, Hint: hintIncomplete})
		return
	}
	if err := srv.sync.AddItem(r.Context(), &d); err != nil {
		srv.log.Warn("add failed", zap.Error(err))
		srv.render(w, http.StatusBadGateway, pageData{Hint: "add failed: " + err.Error()})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (srv *Server) deleteForm(w http.ResponseWriter, r *http.Request) {
	if err := srv.sync.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		srv.log.Warn("delete failed", zap.Error(err))
		srv.render(w, http.StatusBadGateway, pageData{Hint: "delete failed: " + err.Error()})
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// recipeForm answers with the page itself; the recipe belongs to this
// response only and is gone on the next GET.
func (srv *Server) recipeForm(w http.ResponseWriter, r *http.Request) {
	res := srv.recipe.Generate(r.Context(), srv.sync.Items())
	data := pageData{Recipe: res.Text}
	if res.Outcome == pantry.OutcomeServiceError {
		data.Hint = "no recipe: " + res.Outcome.String()
	}
	srv.render(w, http.StatusOK, data)
}

// ---- JSON API ----

type itemRequest struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type recipeResponse struct {
	Recipe  string `json:"recipe"`
	Outcome string `json:"outcome"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (srv *Server) listItems(w http.ResponseWriter, r *http.Request) {
	items := srv.sync.Items()
	if items == nil {
		items = []model.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (srv *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	d := model.Draft{Name: req.Name, Price: req.Price}
	if !pantry.ValidDraft(d) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: hintIncomplete})
		return
	}
	if err := srv.sync.AddItem(r.Context(), &d); err != nil {
		srv.log.Warn("add failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	// The item shows up with the next snapshot.
	w.WriteHeader(http.StatusAccepted)
}

func (srv *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	if err := srv.sync.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		srv.log.Warn("delete failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (srv *Server) generateRecipe(w http.ResponseWriter, r *http.Request) {
	res := srv.recipe.Generate(r.Context(), srv.sync.Items())
	writeJSON(w, http.StatusOK, recipeResponse{Recipe: res.Text, Outcome: res.Outcome.String()})
}
