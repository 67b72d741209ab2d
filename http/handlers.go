package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"cropadvisor/crops"
	"cropadvisor/llm"
	"cropadvisor/ml"
)

const (
	msgNoData          = "No data provided"
	msgInternalError   = "An internal server error occurred"
	msgBodyTooLarge    = "Request body too large"
	msgMissingCrop     = "Missing crop parameter"
	msgMissingQuestion = "Missing question parameter"
	msgNotConfigured   = "Advisory service is not configured. Set GOOGLE_API_KEY in the environment."
	msgBlockedPrompt   = "Your question contains content that cannot be processed due to safety filters. Please rephrase your question."
	msgBlockedResponse = "The response contained content that was flagged by safety filters. Please try a different question."
	msgProviderError   = "There was an issue generating a response. Please try again later."
	msgAskFailed       = "An error occurred while processing your request"

	statusOnline  = "online"
	statusSuccess = "success"
	statusError   = "error"

	advisoryNotConfigured = "not_configured"
	advisoryConnected     = "connected"

	defaultHealthCheckTimeout = 10 * time.Second
	healthCheckPrompt         = "test"
)

// Dependencies are the collaborators the handlers need. A nil Advisor means
// the advisory service is not configured.
type Dependencies struct {
	Classifier ml.Classifier
	Advisor    llm.Advisor
	Crops      *crops.KnowledgeBase
	Logger     *zap.Logger
	// Verbose exposes error detail in 5xx responses.
	Verbose            bool
	HealthCheckTimeout time.Duration
}

type Handler struct {
	deps Dependencies
}

func NewHandler(deps Dependencies) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.HealthCheckTimeout <= 0 {
		deps.HealthCheckTimeout = defaultHealthCheckTimeout
	}
	return &Handler{deps: deps}
}

// Register mounts the routes at the root and again under /api.
func (h *Handler) Register(mux *http.ServeMux) {
	for _, prefix := range []string{"", "/api"} {
		mux.HandleFunc("GET "+prefix+"/health", h.handleHealth)
		mux.HandleFunc("POST "+prefix+"/predict", h.handlePredict)
		mux.HandleFunc("POST "+prefix+"/ask", h.handleAsk)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type askErrorResponse struct {
	Status    string `json:"status"`
	Error     string `json:"error"`
	Traceback string `json:"traceback,omitempty"`
}

type healthResponse struct {
	Status   string `json:"status"`
	Advisory string `json:"advisory"`
}

type predictResponse struct {
	Status string       `json:"status"`
	Crop   string       `json:"crop"`
	Info   crops.Record `json:"info"`
}

type askResponse struct {
	Status   string `json:"status"`
	Crop     string `json:"crop"`
	Language string `json:"language"`
	Response string `json:"response"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) logger(r *http.Request) *zap.Logger {
	return LoggerFromContext(r.Context(), h.deps.Logger)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:   statusOnline,
		Advisory: h.checkAdvisor(r.Context()),
	})
}

// checkAdvisor issues a trivial generate call and reports the outcome as data.
func (h *Handler) checkAdvisor(ctx context.Context) (status string) {
	if h.deps.Advisor == nil {
		return advisoryNotConfigured
	}
	defer func() {
		if rec := recover(); rec != nil {
			status = fmt.Sprintf("error: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, h.deps.HealthCheckTimeout)
	defer cancel()
	if _, err := h.deps.Advisor.Generate(ctx, healthCheckPrompt); err != nil {
		return "error: " + err.Error()
	}
	return advisoryConnected
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	features, err := parsePredictRequest(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		var invalid *validationError
		switch {
		case errors.As(err, &tooLarge):
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: msgBodyTooLarge})
		case errors.As(err, &invalid):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: invalid.msg})
		default:
			h.logger(r).Error("read predict request", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
		}
		return
	}

	label, err := h.deps.Classifier.Predict(features)
	if err != nil {
		h.logger(r).Error("prediction failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msgInternalError})
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Status: statusSuccess,
		Crop:   label,
		Info:   h.deps.Crops.Lookup(label),
	})
}

func (h *Handler) handleAsk(w http.ResponseWriter, r *http.Request) {
	if h.deps.Advisor == nil {
		h.writeAskError(w, http.StatusServiceUnavailable, msgNotConfigured)
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			stack := debug.Stack()
			h.logger(r).Error("ask panicked", zap.Any("panic", rec), zap.ByteString("stack", stack))
			h.writeAskInternal(w, fmt.Errorf("panic: %v", rec), string(stack))
		}
	}()

	req, err := parseAskRequest(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		var invalid *validationError
		switch {
		case errors.As(err, &tooLarge):
			h.writeAskError(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
		case errors.As(err, &invalid):
			h.writeAskError(w, http.StatusBadRequest, invalid.msg)
		default:
			h.logger(r).Error("decode ask request", zap.Error(err))
			h.writeAskInternal(w, err, "")
		}
		return
	}

	cropType := h.deps.Crops.TypeOf(llm.LowerCase(req.Crop))
	prompt := llm.BuildPrompt(req.Crop, cropType, req.Question, req.Language)

	text, err := h.deps.Advisor.Generate(r.Context(), prompt)
	if err != nil {
		h.writeAdvisoryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, askResponse{
		Status:   statusSuccess,
		Crop:     req.Crop,
		Language: req.Language,
		Response: text,
	})
}

func (h *Handler) writeAdvisoryError(w http.ResponseWriter, r *http.Request, err error) {
	logger := h.logger(r)
	advErr, ok := llm.AsAdvisoryError(err)
	if !ok {
		logger.Error("advisory call failed", zap.Error(err))
		h.writeAskInternal(w, err, "")
		return
	}

	switch advErr.Kind {
	case llm.KindBlockedPrompt:
		logger.Warn("advisory prompt blocked", zap.String("detail", advErr.Detail))
		h.writeAskError(w, http.StatusBadRequest, msgBlockedPrompt)
	case llm.KindBlockedResponse:
		logger.Warn("advisory response blocked", zap.String("detail", advErr.Detail))
		h.writeAskError(w, http.StatusBadRequest, msgBlockedResponse)
	case llm.KindProvider:
		logger.Error("advisory provider error", zap.Error(advErr))
		msg := msgProviderError
		if h.deps.Verbose {
			msg = "Advisory provider error: " + advErr.Detail
		}
		h.writeAskError(w, http.StatusInternalServerError, msg)
	case llm.KindNotConfigured:
		h.writeAskError(w, http.StatusServiceUnavailable, msgNotConfigured)
	default:
		logger.Error("unknown advisory error kind", zap.Stringer("kind", advErr.Kind), zap.Error(advErr))
		h.writeAskInternal(w, advErr, "")
	}
}

func (h *Handler) writeAskError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, askErrorResponse{Status: statusError, Error: msg})
}

// writeAskInternal reports an unexpected failure; detail and stack are only
// included in verbose mode.
func (h *Handler) writeAskInternal(w http.ResponseWriter, err error, stack string) {
	resp := askErrorResponse{Status: statusError, Error: msgAskFailed}
	if h.deps.Verbose {
		resp.Error = msgAskFailed + ": " + err.Error()
		if stack == "" {
			stack = string(debug.Stack())
		}
		resp.Traceback = stack
	}
	writeJSON(w, http.StatusInternalServerError, resp)
}
