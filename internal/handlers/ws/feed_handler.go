package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"reviewsync/internal/core/domain"
	"reviewsync/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// FeedServer streams replay frames to viewing clients over WebSocket. Each
// connection subscribes to one running replay; the connection closes when the
// replay ends or the client disconnects. Clients can send control messages to
// lift an indefinite pause or stop the replay.
type FeedServer struct {
	replayService ports.ReplayService

	pingInterval   time.Duration
	pongTimeout    time.Duration
	writeTimeout   time.Duration
	maxMessageSize int64

	logger *zap.SugaredLogger
}

type controlMessage struct {
	Type string `json:"type"`
}

func NewFeedServer(replayService ports.ReplayService, logger *zap.SugaredLogger) *FeedServer {
	return &FeedServer{
		replayService:  replayService,
		pingInterval:   30 * time.Second,
		pongTimeout:    60 * time.Second,
		writeTimeout:   10 * time.Second,
		maxMessageSize: 4 * 1024,
		logger:         logger,
	}
}

// SetPingInterval sets ping interval for feed connections
func (s *FeedServer) SetPingInterval(interval time.Duration) {
	s.pingInterval = interval
}

// SetPongTimeout sets pong timeout for feed connections
func (s *FeedServer) SetPongTimeout(timeout time.Duration) {
	s.pongTimeout = timeout
}

// SetWriteTimeout sets per-message write timeout for feed connections
func (s *FeedServer) SetWriteTimeout(timeout time.Duration) {
	s.writeTimeout = timeout
}

// SetMaxMessageSize caps inbound control message size in bytes
func (s *FeedServer) SetMaxMessageSize(size int64) {
	if size > 0 {
		s.maxMessageSize = size
	}
}

func (s *FeedServer) SetupRoutes(router *gin.Engine) {
	router.GET("/api/v1/sessions/:id/feed", s.HandleFeed)
}

func (s *FeedServer) HandleFeed(c *gin.Context) {
	sessionID := domain.SessionID(c.Param("id"))

	// Subscribe before upgrading so a missing replay is a plain HTTP 404
	// instead of an immediately-closed socket.
	frames, cancel, err := s.replayService.Subscribe(sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No replay running for this session"})
		return
	}
	defer cancel()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	s.logger.Infow("feed client connected", "session_id", sessionID)

	conn.SetReadLimit(s.maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
		return nil
	})

	// Reader goroutine: control messages and pong processing.
	controlChan := make(chan controlMessage, 4)
	errorChan := make(chan error, 1)
	go func() {
		for {
			var msg controlMessage
			if err := conn.ReadJSON(&msg); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.pongTimeout))
			controlChan <- msg
		}
	}()

	pingTicker := time.NewTicker(s.pingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				// Replay finished; tell the client why before closing.
				conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replay ended"))
				s.logger.Infow("feed closed, replay ended", "session_id", sessionID)
				return
			}
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				s.logger.Infow("error writing frame", "session_id", sessionID, "error", err)
				return
			}

		case msg := <-controlChan:
			if err := s.handleControl(sessionID, msg); err != nil {
				s.sendError(conn, err.Error())
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Infow("error sending ping", "session_id", sessionID, "error", err)
				return
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("error reading from feed client", "session_id", sessionID, "error", err)
			}
			s.logger.Infow("feed client disconnected", "session_id", sessionID)
			return
		}
	}
}

func (s *FeedServer) handleControl(sessionID domain.SessionID, msg controlMessage) error {
	switch msg.Type {
	case "resume":
		return s.replayService.ResumeReplay(sessionID)
	case "stop":
		return s.replayService.StopReplay(sessionID)
	default:
		return fmt.Errorf("unknown control message type: %s", msg.Type)
	}
}

func (s *FeedServer) sendError(conn *websocket.Conn, message string) {
	errorMsg := map[string]interface{}{
		"type":    "error",
		"message": message,
	}
	conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	conn.WriteJSON(errorMsg)
}

// HealthCheck reports feed endpoint liveness.
func (s *FeedServer) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
