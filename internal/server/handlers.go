package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"voice-qa-service/internal/conversation"
	"voice-qa-service/internal/exchange"
	"voice-qa-service/internal/ingest"
)

// maxRequestBody caps how much of a request body the API will read.
const maxRequestBody = 64 << 20

// decodeJSON reads and decodes a JSON request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return conversation.NewError(conversation.ErrorValidation, "failed to read request body", err)
	}
	if len(body) == 0 {
		return conversation.NewError(conversation.ErrorValidation, "request body is empty", nil)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return conversation.NewError(conversation.ErrorValidation, "request body is not valid JSON", err)
	}

	return nil
}

// recordView shapes a stored record for API responses.
func recordView(rec *conversation.QARecord) map[string]interface{} {
	view := map[string]interface{}{
		"id":         rec.ID.Hex(),
		"chatid":     rec.ConversationID,
		"question":   rec.Question,
		"answer":     rec.Answer,
		"state":      string(rec.EffectiveState()),
		"created_at": rec.CreatedAt,
		"updated_at": rec.UpdatedAt,
	}
	if rec.FailureReason != "" {
		view["failure_reason"] = rec.FailureReason
	}

	return view
}

// handleRecord implements POST /api/record
func (h *HTTPServer) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		AudioData string `json:"audio_data"`
		ChatID    string `json:"chatid"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.gateway.Submit(r.Context(), ingest.SubmitRequest{
		ConversationID: req.ChatID,
		AudioData:      req.AudioData,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Recording accepted for processing",
		"chatid":  result.ConversationID,
	})
}

// handleProcessingNotification implements POST /api/processing_notification
func (h *HTTPServer) handleProcessingNotification(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ChatID string `json:"chatid"`
		Query  string `json:"query"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	if err := h.coordinator.AcceptQuestion(req.ChatID, req.Query); err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Processing notification received",
		slog.String("chatid", req.ChatID),
	)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"acknowledged": true,
		"chatid":       req.ChatID,
	})
}

// handleSaveAnswer implements POST /api/save_answer
func (h *HTTPServer) handleSaveAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		ChatID   string `json:"chatid"`
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	docID, err := h.coordinator.FinalizeAnswer(r.Context(), exchange.Finalization{
		ConversationID: req.ChatID,
		Question:       req.Question,
		Answer:         req.Answer,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"doc_id":  docID,
	})
}

// handleQueryStatus implements GET /api/query_status/{chatid}
func (h *HTTPServer) handleQueryStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conversationID := strings.TrimSpace(r.URL.Path[len("/api/query_status/"):])
	if conversationID == "" {
		h.writeError(w, conversation.NewError(conversation.ErrorValidation, "chatid is required", nil))
		return
	}

	view, err := h.coordinator.QueryStatus(r.Context(), conversationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":   true,
		"chatid":    conversationID,
		"has_query": view.HasQuery,
	}
	if view.HasQuery {
		response["question"] = view.Question
		response["source"] = view.Source
	}

	h.writeJSON(w, http.StatusOK, response)
}

// handleAnswerStatus implements GET /api/answer_status/{chatid}
func (h *HTTPServer) handleAnswerStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conversationID := strings.TrimSpace(r.URL.Path[len("/api/answer_status/"):])
	if conversationID == "" {
		h.writeError(w, conversation.NewError(conversation.ErrorValidation, "chatid is required", nil))
		return
	}

	view, err := h.coordinator.AnswerStatus(r.Context(), conversationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := map[string]interface{}{
		"success":       true,
		"chatid":        conversationID,
		"has_answer":    view.HasAnswer,
		"is_processing": view.IsProcessing,
	}
	if view.Question != "" {
		response["question"] = view.Question
	}
	if view.HasAnswer {
		response["answer"] = view.Answer
	}

	h.writeJSON(w, http.StatusOK, response)
}

// handleResults implements GET /results
func (h *HTTPServer) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	records, err := h.coordinator.AllRecords(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, resultsResponse(records))
}

// handleResultsDetail implements GET /results/{chatid}
func (h *HTTPServer) handleResultsDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	conversationID := strings.TrimSpace(r.URL.Path[len("/results/"):])
	if conversationID == "" {
		h.writeError(w, conversation.NewError(conversation.ErrorValidation, "chatid is required", nil))
		return
	}

	records, err := h.coordinator.History(r.Context(), conversationID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response := resultsResponse(records)
	response["chatid"] = conversationID

	h.writeJSON(w, http.StatusOK, response)
}

// resultsResponse shapes a record list for /results endpoints.
func resultsResponse(records []conversation.QARecord) map[string]interface{} {
	results := make([]map[string]interface{}, 0, len(records))
	for i := range records {
		results = append(results, recordView(&records[i]))
	}

	return map[string]interface{}{
		"success": true,
		"count":   len(results),
		"results": results,
	}
}

// handleRecordDetail implements GET /api/records/{id}
func (h *HTTPServer) handleRecordDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recordID := strings.TrimSpace(r.URL.Path[len("/api/records/"):])
	if recordID == "" {
		h.writeError(w, conversation.NewError(conversation.ErrorValidation, "record id is required", nil))
		return
	}

	rec, err := h.coordinator.Record(r.Context(), recordID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"record":  recordView(rec),
	})
}

// handleClearHistory implements POST /api/clear_history
func (h *HTTPServer) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	deleted, err := h.coordinator.ClearHistory(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Info("Conversation history cleared",
		slog.Int64("deleted_count", deleted),
	)

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"deleted_count": deleted,
		"message":       fmt.Sprintf("Deleted %d records", deleted),
	})
}
