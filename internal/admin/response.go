package admin

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"
)

// Response 统一响应结构
type Response struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// writeJSON 先编码到缓冲区，编码失败时仍能返回 500
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(data); err != nil {
		logger.Error("编码响应失败", "error", err)
		http.Error(w, `{"status":"error","error":"failed to encode response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) ok(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Status: "ok", Timestamp: s.now(), Data: data})
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, Response{Status: "error", Timestamp: s.now(), Error: msg})
}
