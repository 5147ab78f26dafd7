package auth

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Context keys set by the middleware for downstream handlers.
const (
	ContextRoleKey   = "auth_role"
	ContextUserIDKey = "auth_user_id"
)

// Middleware provides gin middleware for JWT session validation.
type Middleware struct {
	tokens *TokenManager
}

// ErrorResponse represents an authentication error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewMiddleware creates middleware around a token manager.
func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// Require returns a middleware that accepts only sessions with the given
// role. It expects a "Bearer <token>" Authorization header and exposes
// the validated claims on the gin context.
func (m *Middleware) Require(role Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header is required"})
			c.Abort()
			return
		}
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization header must start with 'Bearer '"})
			c.Abort()
			return
		}

		claims, err := m.tokens.ValidateToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid or expired token"})
			c.Abort()
			return
		}
		if claims.Role != role {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "Insufficient permissions"})
			c.Abort()
			return
		}

		c.Set(ContextRoleKey, claims.Role)
		c.Set(ContextUserIDKey, claims.UserID)
		c.Next()
	}
}

// RateLimit returns a per-client-IP limiter middleware for the login
// endpoints: count requests per window, rejected with 429 beyond that.
// Stale client entries are dropped in the background.
func RateLimit(count int, window time.Duration) gin.HandlerFunc {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			mu.Lock()
			now := time.Now()
			for ip, c := range clients {
				if now.Sub(c.lastSeen) > 10*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip, _, err := net.SplitHostPort(c.Request.RemoteAddr)
		if err != nil {
			ip = c.Request.RemoteAddr
		}

		mu.Lock()
		cli, found := clients[ip]
		if !found {
			limit := rate.Limit(float64(count) / window.Seconds())
			cli = &client{limiter: rate.NewLimiter(limit, count)}
			clients[ip] = cli
		}
		cli.lastSeen = time.Now()
		limiter := cli.limiter
		mu.Unlock()

		if !limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}
