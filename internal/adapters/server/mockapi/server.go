// Package mockapi serves an in-memory implementation of the mail backend REST
// contract for demos and integration tests.
package mockapi

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DefaultSecret signs mock tokens when Options.Secret is empty.
const DefaultSecret = "mailkan-mock-secret"

// Options configures a mock backend.
type Options struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time
	// Empty skips the seeded demo account and mailbox contents.
	Empty bool
}

// Server is the mock backend.
type Server struct {
	opts   Options
	engine *gin.Engine

	mu       sync.Mutex
	accounts map[string]*account
	refresh  map[string]string
	messages []*message
	columns  []*column
	labels   []label
	embedded map[string]bool

	failMoves atomic.Bool
}

// New constructs a mock backend with the demo data set loaded.
func New(opts Options) *Server {
	if strings.TrimSpace(opts.Secret) == "" {
		opts.Secret = DefaultSecret
	}
	if opts.AccessTTL <= 0 {
		opts.AccessTTL = 15 * time.Minute
	}
	if opts.RefreshTTL <= 0 {
		opts.RefreshTTL = 7 * 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		opts:     opts,
		accounts: map[string]*account{},
		refresh:  map[string]string{},
		embedded: map[string]bool{},
	}
	s.columns = defaultColumns()
	s.labels = defaultLabels()
	if !opts.Empty {
		s.seed(opts.Now())
	}
	s.engine = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route under /api.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// FailMoves makes every subsequent card move fail with a server error while enabled.
func (s *Server) FailMoves(enabled bool) {
	s.failMoves.Store(enabled)
}

// AddAccount registers a password account and returns its id.
func (s *Server) AddAccount(email, password, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addAccountLocked(email, password, name, "password").ID
}

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), cors())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api.GET("/offline", s.offlinePage)

	auth := api.Group("/auth")
	{
		auth.POST("/login", s.login)
		auth.POST("/signup", s.signup)
		auth.POST("/register", s.signup)
		auth.POST("/google", s.googleLogin)
		auth.POST("/refresh", s.refreshTokens)
		auth.GET("/me", s.authMiddleware(), s.me)
		auth.POST("/logout", s.authMiddleware(), s.logout)
	}

	protected := api.Group("")
	protected.Use(s.authMiddleware())
	{
		protected.GET("/mailboxes", s.listMailboxes)
		protected.GET("/mailboxes/:id/emails", s.listMailboxEmails)

		protected.GET("/emails/search", s.keywordSearch)
		protected.POST("/emails/send", s.sendEmail)
		protected.GET("/emails/:id", s.getEmail)
		protected.POST("/emails/:id/modify", s.modifyEmail)
		protected.POST("/emails/:id/reply", s.replyEmail)

		protected.GET("/kanban", s.board)
		protected.GET("/kanban/meta", s.boardMeta)
		protected.POST("/kanban/move", s.moveCard)
		protected.POST("/kanban/snooze", s.snoozeCard)
		protected.POST("/kanban/summarize", s.summarizeCard)
		protected.GET("/kanban/columns", s.listColumns)
		protected.POST("/kanban/columns", s.createColumn)
		protected.POST("/kanban/columns/reorder", s.reorderColumns)
		protected.PUT("/kanban/columns/:id", s.updateColumn)
		protected.DELETE("/kanban/columns/:id", s.deleteColumn)

		protected.GET("/gmail/labels", s.listLabels)

		protected.POST("/search/semantic", s.semanticSearch)
		protected.GET("/search/suggestions", s.suggestions)
		protected.POST("/search/generate-embeddings", s.generateEmbeddings)

		protected.GET("/statistics", s.statistics)
	}
	return r
}

func (s *Server) offlinePage(c *gin.Context) {
	c.String(http.StatusOK, "You are offline. Cached boards and messages stay readable; changes need a connection.")
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("mock request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}
		c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
