package middleware

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	SessionCookieName = "session_id"
	DefaultTimeout    = 24 * time.Hour
	sessionContextKey = "sessionID"
)

type Session struct {
	ID        string
	CreatedAt time.Time
	LastSeen  time.Time
}

type SessionManager struct {
	sessions map[string]*Session
	timeout  time.Duration
	mu       sync.RWMutex
}

// NewSessionManager 创建会话管理器，timeout<=0 时使用默认值
func NewSessionManager(timeout time.Duration) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
	}
}

// generateSessionID 生成随机会话 ID
func generateSessionID() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		h := sha256.New()
		h.Write([]byte(time.Now().String()))
		h.Write([]byte(os.Getenv("HOSTNAME")))
		h.Write([]byte(fmt.Sprintf("%d", os.Getpid())))
		return hex.EncodeToString(h.Sum(nil))
	}
	return hex.EncodeToString(b)
}

// GetOrCreateSession 获取或创建会话
func (sm *SessionManager) GetOrCreateSession(sessionID string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sessionID != "" {
		if session, exists := sm.sessions[sessionID]; exists {
			if time.Since(session.LastSeen) < sm.timeout {
				session.LastSeen = time.Now()
				return session
			}
			delete(sm.sessions, sessionID)
		}
	}

	newSession := &Session{
		ID:        generateSessionID(),
		CreatedAt: time.Now(),
		LastSeen:  time.Now(),
	}
	sm.sessions[newSession.ID] = newSession
	return newSession
}

// GetSession 获取会话（不创建新会话）
func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil, false
	}

	if time.Since(session.LastSeen) >= sm.timeout {
		delete(sm.sessions, sessionID)
		return nil, false
	}

	session.LastSeen = time.Now()
	return session, true
}

// DeleteSession 删除会话
func (sm *SessionManager) DeleteSession(sessionID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, sessionID)
}

// Count 当前会话数
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupExpired 删除过期会话，返回删除的数量
func (sm *SessionManager) CleanupExpired() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	now := time.Now()
	for id, session := range sm.sessions {
		if now.Sub(session.LastSeen) >= sm.timeout {
			delete(sm.sessions, id)
			removed++
		}
	}
	return removed
}

// RunCleanup 定期清理过期会话，直到 ctx 结束
func (sm *SessionManager) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupExpired()
		}
	}
}

// SessionMiddleware Gin 中间件：确保每个请求都有会话
func SessionMiddleware(sm *SessionManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID, _ := c.Cookie(SessionCookieName)
		session := sm.GetOrCreateSession(sessionID)

		if sessionID != session.ID {
			isSecure := c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https"
			c.SetCookie(
				SessionCookieName,
				session.ID,
				int(sm.timeout.Seconds()),
				"/",
				"",
				isSecure,
				true, // httpOnly
			)
		}

		c.Set(sessionContextKey, session.ID)
		c.Next()
	}
}

// GetSessionID 从上下文获取会话 ID
func GetSessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}
