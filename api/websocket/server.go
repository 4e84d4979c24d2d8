package websocket

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vaultshield/pools/api/middleware"
)

// ServerConfig contains upgrade settings
type ServerConfig struct {
	AllowedOrigins []string `mapstructure:"allowed-origins"`
	MaxConnPerIP   int      `mapstructure:"max-conn-per-ip"`
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		AllowedOrigins: []string{"*"},
		MaxConnPerIP:   10,
	}
}

// Server upgrades HTTP requests to hub clients, enforcing a per-IP
// connection cap
type Server struct {
	hub      *Hub
	config   *ServerConfig
	upgrader websocket.Upgrader

	connectionsPerIP map[string]int
	ipMu             sync.Mutex
}

// NewServer creates a new WebSocket server in front of hub
func NewServer(hub *Hub, config *ServerConfig) *Server {
	if config == nil {
		config = DefaultServerConfig()
	}

	s := &Server{
		hub:              hub,
		config:           config,
		connectionsPerIP: make(map[string]int),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// ServeHTTP handles WebSocket upgrade requests
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ip := middleware.ClientIP(r)

	if !s.acquire(ip) {
		http.Error(w, "Too many connections from this IP", http.StatusTooManyRequests)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.release(ip)
		s.hub.logger.Debug("websocket upgrade failed", "ip", ip, "error", err)
		return
	}

	client := NewClient(s.hub, conn, uuid.New().String(), ip)
	client.onClose = func() { s.release(ip) }

	s.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// acquire reserves a connection slot for ip
func (s *Server) acquire(ip string) bool {
	s.ipMu.Lock()
	defer s.ipMu.Unlock()

	if s.config.MaxConnPerIP > 0 && s.connectionsPerIP[ip] >= s.config.MaxConnPerIP {
		return false
	}
	s.connectionsPerIP[ip]++
	return true
}

func (s *Server) release(ip string) {
	s.ipMu.Lock()
	defer s.ipMu.Unlock()

	s.connectionsPerIP[ip]--
	if s.connectionsPerIP[ip] <= 0 {
		delete(s.connectionsPerIP, ip)
	}
}

// GetHub returns the hub
func (s *Server) GetHub() *Hub {
	return s.hub
}
