package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func captureOutput(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	Init(level)
	SetOutput(&buf)
	t.Cleanup(func() { Init("info") })
	return &buf
}

func TestSetOutputKeepsLevel(t *testing.T) {
	buf := captureOutput(t, "warn")

	Infof("[Test] hidden %d", 1)
	Warn().Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info line written at warn level: %s", out)
	}
	if !strings.Contains(out, `"message":"shown"`) {
		t.Errorf("warn line missing: %s", out)
	}
}

func TestWithModule(t *testing.T) {
	buf := captureOutput(t, "info")

	l := WithModule("contribution")
	l.Info().Msg("recorded")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line: %v (%s)", err, buf.String())
	}
	if entry["module"] != "contribution" {
		t.Errorf("module = %v, expected contribution", entry["module"])
	}
}

func TestGinLoggerRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureOutput(t, "info")

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	tests := []struct {
		name     string
		incoming string
	}{
		{"reuses client id", "req-42"},
		{"generates id", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			id := w.Header().Get(RequestIDHeader)
			if id == "" || w.Body.String() != id {
				t.Fatalf("request id header %q, body %q", id, w.Body.String())
			}
			if tt.incoming != "" && id != tt.incoming {
				t.Errorf("request id = %q, expected %q", id, tt.incoming)
			}
			if !strings.Contains(buf.String(), `"request_id":"`+id+`"`) {
				t.Errorf("log line missing request id: %s", buf.String())
			}
		})
	}
}
