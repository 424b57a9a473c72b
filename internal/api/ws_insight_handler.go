package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"habitloop/internal/auth"
	"habitloop/internal/config"
	"habitloop/internal/insight"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WebSocket connection wrapper with mutex for thread-safe writes
type safeWSConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *safeWSConn) WriteJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *safeWSConn) ReadMessage() (int, []byte, error) {
	return s.conn.ReadMessage()
}

func (s *safeWSConn) Close() error {
	return s.conn.Close()
}

type wsGeneratePrompt struct {
	JournalText string `json:"journalText"`
}

type wsStageEvent struct {
	Event string `json:"event"`
	Stage string `json:"stage"`
}

// WSInsightHandler runs the pipeline over a WebSocket, pushing stage
// transitions to the client while the generation is in flight. The token is
// taken from the Authorization header or a token query parameter because
// browsers cannot set headers on WebSocket upgrades.
func WSInsightHandler(cfg *config.Config, pipeline *insight.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing JWT"})
			return
		}
		token = strings.TrimPrefix(token, "Bearer ")
		claims, err := auth.ParseJWT(cfg.Server.JWTSecret, token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid JWT"})
			return
		}

		rawConn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Println("WebSocket upgrade failed:", err)
			return
		}
		conn := &safeWSConn{conn: rawConn}
		defer conn.Close()

		_, msg, err := conn.ReadMessage()
		if err != nil {
			conn.WriteJSON(map[string]string{"error": "invalid initial payload"})
			return
		}
		var req wsGeneratePrompt
		if err := json.Unmarshal(msg, &req); err != nil {
			conn.WriteJSON(map[string]string{"error": "invalid JSON"})
			return
		}
		req.JournalText = strings.TrimSpace(req.JournalText)
		if req.JournalText == "" || len(req.JournalText) > maxJournalChars {
			conn.WriteJSON(map[string]string{"error": "journalText is required"})
			return
		}

		record, err := pipeline.RunWithProgress(c.Request.Context(), claims.UserID, req.JournalText, func(stage string) {
			conn.WriteJSON(wsStageEvent{Event: "stage", Stage: stage})
		})
		if err != nil {
			_, msg := mapPipelineError(err)
			conn.WriteJSON(map[string]string{"error": msg})
			return
		}

		conn.WriteJSON(map[string]interface{}{"event": "result", "record": record})
	}
}
