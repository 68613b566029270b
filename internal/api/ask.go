package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"salesagent/internal/agent"
	"salesagent/internal/log"
)

// MaxQuestionLength bounds the question body so a single request cannot
// blow up the prompt sent to the model.
const MaxQuestionLength = 4000

// Agent is the surface of the orchestrator the HTTP layer needs.
type Agent interface {
	Run(ctx context.Context, sessionKey, userText string, onDelta func(string)) (*agent.Turn, error)
	Reset(sessionKey string)
}

// ToolCatalogue lists the registered tools for the /api/tools endpoint.
type ToolCatalogue interface {
	ToolInfo() []ToolInfo
}

// ToolInfo describes one registered tool.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AskHandler handles question-answering endpoints.
//
// Endpoints:
//   - POST   /api/ask           - Synchronous question (JSON request/response)
//   - POST   /api/ask/stream    - Streaming question (SSE - Server-Sent Events)
//   - DELETE /api/sessions/{id} - Clear one session's history
//   - GET    /api/tools         - List registered tools
type AskHandler struct {
	agent  Agent
	tools  ToolCatalogue
	logger log.Logger
}

// NewAskHandler creates an ask handler bound to the given agent. A nil
// logger falls back to slog.Default, so every handler method may log
// without a nil check.
func NewAskHandler(ag Agent, tools ToolCatalogue, logger log.Logger) *AskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AskHandler{agent: ag, tools: tools, logger: logger}
}

// RegisterRoutes registers ask routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.agent == nil {
		h.logger.Warn("AskHandler: agent is nil, ask endpoints not registered")
		return
	}
	mux.HandleFunc("POST /api/ask", h.ask)
	mux.HandleFunc("POST /api/ask/stream", h.askStream)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.resetSession)
	mux.HandleFunc("GET /api/tools", h.listTools)
}

// AskRequest is the request body for /api/ask and /api/ask/stream.
// SessionID is optional; a fresh one is generated when absent.
type AskRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// AskResponse is the response body for /api/ask.
type AskResponse struct {
	SessionID string   `json:"session_id"`
	Answer    string   `json:"answer"`
	State     string   `json:"state"`
	Rounds    int      `json:"rounds"`
	ToolsUsed []string `json:"tools_used"`
}

func (h *AskHandler) parseAsk(r *http.Request) (AskRequest, error) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("invalid request body: %w", err)
	}
	if req.Question == "" {
		return req, errors.New("question is required")
	}
	if len(req.Question) > MaxQuestionLength {
		return req, fmt.Errorf("question too long (max %d characters)", MaxQuestionLength)
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}
	return req, nil
}

// ask handles the synchronous endpoint.
func (h *AskHandler) ask(w http.ResponseWriter, r *http.Request) {
	req, err := h.parseAsk(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	turn, err := h.agent.Run(r.Context(), req.SessionID, req.Question, nil)
	if err != nil {
		h.logger.Error("ask failed", "error", err, "session_id", req.SessionID)
		writeError(w, http.StatusBadGateway, "agent_error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, AskResponse{
		SessionID: req.SessionID,
		Answer:    turn.Answer,
		State:     string(turn.State),
		Rounds:    turn.Rounds,
		ToolsUsed: toolNames(turn),
	})
}

func toolNames(turn *agent.Turn) []string {
	names := make([]string, 0, len(turn.ToolResults))
	for _, res := range turn.ToolResults {
		names = append(names, res.ToolName)
	}
	return names
}

// resetSession clears the conversation history of one session.
func (h *AskHandler) resetSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "session id is required")
		return
	}
	h.agent.Reset(id)
	writeJSON(w, http.StatusOK, map[string]string{"session_id": id, "status": "cleared"})
}

// listTools returns the registered tool catalogue.
func (h *AskHandler) listTools(w http.ResponseWriter, _ *http.Request) {
	var infos []ToolInfo
	if h.tools != nil {
		infos = h.tools.ToolInfo()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tools": infos,
		"total": len(infos),
	})
}

// The SSE payloads below mirror the synchronous response, split into
// the stream's three event types.

// SSEChunkData is the data for "chunk" events.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Rounds    int    `json:"rounds"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// askStream handles the SSE streaming endpoint.
//
// Event types:
//   - chunk: partial assistant text {"text": "..."}
//   - done:  final turn outcome {"answer": "...", "session_id": "...", ...}
//   - error: failure {"code": "...", "message": "..."}
//
// Chunks carry text from every model round, so the client may see
// intermediate reasoning before tool calls as well as the final answer.
func (h *AskHandler) askStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	req, err := h.parseAsk(r)
	if err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", err.Error())
		return
	}

	ctx := r.Context()
	h.logger.Info("SSE stream started", "session_id", req.SessionID)

	onDelta := func(text string) {
		select {
		case <-ctx.Done():
			return
		default:
		}
		if text != "" {
			h.writeSSEChunk(w, flusher, text)
		}
	}

	turn, err := h.agent.Run(ctx, req.SessionID, req.Question, onDelta)
	if err != nil {
		h.logger.Error("stream failed", "error", err, "session_id", req.SessionID)
		h.writeSSEError(w, flusher, "AGENT_ERROR", err.Error())
		return
	}

	h.writeSSEDone(w, flusher, req.SessionID, turn)
	h.logger.Info("SSE stream completed",
		"session_id", req.SessionID,
		"rounds", turn.Rounds,
		"answer_len", len(turn.Answer))
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *AskHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *AskHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, sessionID string, turn *agent.Turn) {
	data, _ := json.Marshal(SSEDoneData{
		Answer:    turn.Answer,
		SessionID: sessionID,
		State:     string(turn.State),
		Rounds:    turn.Rounds,
	})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *AskHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
