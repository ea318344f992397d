// Package api exposes the engine's local HTTP surface: the websocket
// endpoint clients stream captions from, plus a few JSON endpoints for
// status, device discovery, and configuration.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nmtuan2007/echo-flux/internal/audio"
	"github.com/nmtuan2007/echo-flux/internal/config"
	"github.com/nmtuan2007/echo-flux/internal/engine"
	"github.com/nmtuan2007/echo-flux/internal/logging"
	"github.com/nmtuan2007/echo-flux/internal/ws"
)

const readDeadline = 60 * time.Second

// StatusProvider reports the pipeline state for /api/status.
type StatusProvider interface {
	CurrentStatus() engine.Status
}

// Server is the local HTTP and websocket front of the engine. It binds
// to loopback only; nothing here is meant to be reachable off-host.
type Server struct {
	router *gin.Engine
	hub    *ws.Hub
	status StatusProvider
	cfg    *config.Config
	log    *logrus.Entry
}

// NewServer wires routes around the hub, pipeline, and config store.
func NewServer(hub *ws.Hub, status StatusProvider, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Sec-WebSocket-Protocol", "Sec-WebSocket-Version", "Sec-WebSocket-Key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s := &Server{
		router: router,
		hub:    hub,
		status: status,
		cfg:    cfg,
		log:    logging.Get("api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/api/status", s.handleStatus)
	s.router.GET("/api/devices", s.handleDevices)
	s.router.GET("/api/config", s.handleGetConfig)
	s.router.POST("/api/config", s.handleSaveConfig)
}

// handleWebSocket upgrades the connection, registers it with the hub, and
// pumps inbound frames through the protocol dispatcher until close.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := ws.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithError(err).Error("websocket upgrade failed")
		return
	}

	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	id := s.hub.Add(conn)
	s.log.WithField("client", id).Info("websocket client connected")

	defer func() {
		s.hub.Remove(conn)
		s.log.WithField("client", id).Info("websocket client disconnected")
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ws.IsUnexpectedCloseError(err) {
				s.log.WithError(err).Warn("websocket closed unexpectedly")
			}
			return
		}
		s.hub.HandleMessage(conn, raw)
		conn.SetReadDeadline(time.Now().Add(readDeadline))
	}
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.status.CurrentStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":  st,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) handleDevices(c *gin.Context) {
	source := audio.SourceType(c.DefaultQuery("source", string(audio.SourceMicrophone)))
	devices, err := audio.ListDevices(source)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to list devices: %v", err)})
		return
	}
	if devices == nil {
		devices = []audio.Device{}
	}
	c.JSON(http.StatusOK, gin.H{"devices": devices})
}

func (s *Server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.cfg.All())
}

func (s *Server) handleSaveConfig(c *gin.Context) {
	var updates map[string]interface{}
	if err := c.BindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no settings provided"})
		return
	}

	for key, value := range updates {
		s.cfg.Set(key, value)
	}
	if err := s.cfg.Save(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("failed to save config: %v", err)})
		return
	}

	s.log.WithField("keys", len(updates)).Info("configuration updated")
	c.JSON(http.StatusOK, gin.H{"message": "configuration saved"})
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on the given loopback address until the listener fails.
func (s *Server) Run(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	s.log.WithField("addr", addr).Info("local API listening")
	return s.router.Run(addr)
}
