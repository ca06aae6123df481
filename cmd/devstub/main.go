package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

var processingDelay time.Duration

type transcribeResponse struct {
	Text        string    `json:"text"`
	Language    string    `json:"language"`
	Confidence  float32   `json:"confidence"`
	ProcessedAt time.Time `json:"processed_at"`
}

type extractRequest struct {
	Text string `json:"text"`
}

type extractResponse struct {
	IsQuery  bool   `json:"is_query"`
	Question string `json:"question"`
}

type resolveRequest struct {
	ChatID   string `json:"chatid"`
	Question string `json:"question"`
}

type resolveResponse struct {
	Answer string `json:"answer"`
}

func transcribeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	chatID := r.FormValue("chatid")
	format := r.FormValue("format")

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	log.Printf("🎤 TRANSCRIPTION REQUEST RECEIVED:")
	log.Printf("    Chat ID: %s", chatID)
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Format: %s", format)
	log.Printf("    Audio Size: %d bytes", len(audioData))

	// Simulate processing time
	time.Sleep(processingDelay)

	response := transcribeResponse{
		Text:        "What is the capital of France?",
		Language:    "en",
		Confidence:  0.95,
		ProcessedAt: time.Now(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSCRIPT SENT: '%s'", response.Text)
	log.Println("---")
}

func extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	log.Printf("🔍 EXTRACTION REQUEST RECEIVED: '%s'", req.Text)

	time.Sleep(processingDelay)

	var response extractResponse
	if text := strings.TrimSpace(req.Text); looksLikeQuestion(text) {
		response.IsQuery = true
		response.Question = text
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ EXTRACTION RESULT: is_query=%t", response.IsQuery)
	log.Println("---")
}

// looksLikeQuestion is a crude stand-in for the real extraction model.
func looksLikeQuestion(text string) bool {
	if text == "" {
		return false
	}
	if strings.HasSuffix(text, "?") {
		return true
	}

	lower := strings.ToLower(text)
	prefixes := []string{"what", "who", "when", "where", "why", "how", "which", "is ", "are ", "can ", "could ", "do ", "does "}
	for _, prefix := range prefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}

func resolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Error parsing request", http.StatusBadRequest)
		return
	}

	log.Printf("🧠 RESOLUTION REQUEST RECEIVED:")
	log.Printf("    Chat ID: %s", req.ChatID)
	log.Printf("    Question: %s", req.Question)

	time.Sleep(processingDelay)

	response := resolveResponse{Answer: cannedAnswer(req.Question)}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ ANSWER SENT: '%s'", response.Answer)
	log.Println("---")
}

func cannedAnswer(question string) string {
	lower := strings.ToLower(question)
	switch {
	case strings.Contains(lower, "capital of france"):
		return "The capital of France is Paris."
	case strings.Contains(lower, "mount everest"):
		return "Mount Everest is 8,849 meters tall."
	default:
		return fmt.Sprintf("This is a development answer to: %s", question)
	}
}

func main() {
	port := flag.Int("port", 9000, "Port to listen on")
	delay := flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per request")
	flag.Parse()

	processingDelay = *delay

	http.HandleFunc("/transcribe", transcribeHandler)
	http.HandleFunc("/extract_query", extractHandler)
	http.HandleFunc("/resolve", resolveHandler)

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("🚀 Dev Pipeline Server starting on %s", addr)
	log.Printf("📡 Transcription: http://localhost%s/transcribe", addr)
	log.Printf("📡 Extraction:    http://localhost%s/extract_query", addr)
	log.Printf("📡 Resolution:    http://localhost%s/resolve", addr)
	log.Println("💡 Point the endpoints in configs/config.yaml at these URLs")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
