// Package server exposes the chat controller to the browser widget over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"EduProChat/internal/backend"
	"EduProChat/internal/chatbot"
	"EduProChat/internal/inquiry"
	"EduProChat/internal/session"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/cors"
)

// maxBodyBytes caps a decoded request body.
const maxBodyBytes = 1 << 20

// Handler serves the chat API for a single widget session.
type Handler struct {
	bot      *chatbot.ChatBot
	whatsApp string
	logger   *slog.Logger
}

// NewHandler creates a Handler. A nil logger uses slog.Default.
func NewHandler(bot *chatbot.ChatBot, whatsApp string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bot: bot, whatsApp: whatsApp, logger: logger}
}

// NewRouter builds the full HTTP stack: chi middleware, routes and CORS.
func NewRouter(h *Handler, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	h.RegisterRoutes(r)

	return cors.New(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
	}).Handler(r)
}

// RegisterRoutes mounts the chat and plan routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/messages", h.PostMessage)
		r.Get("/suggestions", h.GetSuggestions)
		r.Post("/suggestions/{index}", h.PostSuggestion)
		r.Get("/transcript", h.GetTranscript)
		r.Get("/status", h.GetStatus)
		r.Post("/probe", h.PostProbe)
	})
	r.Get("/api/plans/{plan}/inquiry", h.GetInquiry)
}

type messageRequest struct {
	Text *string `json:"text"`
}

func (m messageRequest) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Text, validation.NotNil),
	)
}

type outcomeResponse struct {
	Kind   chatbot.Kind   `json:"kind"`
	Reply  string         `json:"reply,omitempty"`
	Health chatbot.Health `json:"health"`
	Error  string         `json:"error,omitempty"`
	Status int            `json:"status,omitempty"`
}

func newOutcomeResponse(out chatbot.Outcome) outcomeResponse {
	resp := outcomeResponse{Kind: out.Kind, Reply: out.Reply, Health: out.Health}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	var reqErr *backend.RequestFailedError
	if errors.As(out.Err, &reqErr) {
		resp.Status = reqErr.Status
	}
	return resp
}

type transcriptResponse struct {
	SessionID string            `json:"session_id"`
	Turns     []session.Message `json:"turns"`
	WindowLen int               `json:"window_len"`
}

type statusResponse struct {
	Health     chatbot.Health `json:"health"`
	Processing bool           `json:"processing"`
}

type inquiryResponse struct {
	Plan    inquiry.Plan `json:"plan"`
	Message string       `json:"message"`
	URL     string       `json:"url"`
}

// detach keeps an in-flight completion alive when the browser goes away.
func detach(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// PostMessage submits the user's text.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	out := h.bot.Submit(detach(r), *req.Text)
	h.logger.Debug("message handled",
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"outcome", out.Kind)
	JSON(w, http.StatusOK, newOutcomeResponse(out))
}

// GetSuggestions lists the suggestion chips.
func (h *Handler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{"suggestions": h.bot.Suggestions()})
}

// PostSuggestion submits the chip at the path index.
func (h *Handler) PostSuggestion(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid suggestion index")
		return
	}
	JSON(w, http.StatusOK, newOutcomeResponse(h.bot.Suggest(detach(r), index)))
}

// GetTranscript returns every visible turn.
func (h *Handler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, transcriptResponse{
		SessionID: h.bot.SessionID(),
		Turns:     h.bot.Transcript(),
		WindowLen: len(h.bot.Window()),
	})
}

// GetStatus reports connection health and whether a request is in flight.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, statusResponse{Health: h.bot.Health(), Processing: h.bot.Processing()})
}

// PostProbe runs the connection test.
func (h *Handler) PostProbe(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]chatbot.Health{"health": h.bot.Probe(detach(r))})
}

// GetInquiry returns the WhatsApp link for a pricing plan.
func (h *Handler) GetInquiry(w http.ResponseWriter, r *http.Request) {
	plan, err := inquiry.Lookup(chi.URLParam(r, "plan"))
	if errors.Is(err, inquiry.ErrUnknownPlan) {
		Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to look up plan")
		return
	}
	JSON(w, http.StatusOK, inquiryResponse{
		Plan:    plan,
		Message: inquiry.Message(plan),
		URL:     inquiry.WhatsAppURL(h.whatsApp, plan),
	})
}
