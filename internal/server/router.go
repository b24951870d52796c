package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/659954771/meal-app/internal/auth"
	"github.com/659954771/meal-app/internal/meals"
	"github.com/659954771/meal-app/internal/metrics"
	"github.com/659954771/meal-app/internal/people"
	"github.com/659954771/meal-app/internal/reports"
	"github.com/659954771/meal-app/internal/sheets"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const sessionContextKey = "meal_session"

var (
	errMissingPeopleService  = errors.New("people service dependency required")
	errMissingMealsService   = errors.New("meals service dependency required")
	errMissingReportsService = errors.New("reports service dependency required")
	errMissingImporter       = errors.New("workbook importer dependency required")
	errMissingSessionManager = errors.New("session manager dependency required")
	errMissingAdminGate      = errors.New("admin gate dependency required")
)

// Dependencies lists everything the HTTP surface is built from.
type Dependencies struct {
	People         *people.Service
	Meals          *meals.Service
	Reports        *reports.Service
	Importer       *sheets.Importer
	Sessions       *auth.SessionManager
	Admin          *auth.AdminGate
	Board          *BoardDispatcher
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	Clock          func() time.Time
	Logger         *zap.Logger
}

// NewHTTPHandler wires the routes of the meal service.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.People == nil {
		return nil, errMissingPeopleService
	}
	if deps.Meals == nil {
		return nil, errMissingMealsService
	}
	if deps.Reports == nil {
		return nil, errMissingReportsService
	}
	if deps.Importer == nil {
		return nil, errMissingImporter
	}
	if deps.Sessions == nil {
		return nil, errMissingSessionManager
	}
	if deps.Admin == nil {
		return nil, errMissingAdminGate
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	board := deps.Board
	if board == nil {
		board = NewBoardDispatcher()
	}

	handler := &httpHandler{
		people:    deps.People,
		meals:     deps.Meals,
		reports:   deps.Reports,
		importer:  deps.Importer,
		sessions:  deps.Sessions,
		admin:     deps.Admin,
		board:     board,
		metrics:   deps.Metrics,
		clock:     clock,
		logger:    logger,
		heartbeat: defaultHeartbeatInterval,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))
	if deps.Metrics != nil {
		router.Use(handler.observeRequest)
	}

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	router.POST("/session", handler.handleLogin)
	router.DELETE("/session", handler.handleLogout)
	router.POST("/people", handler.handleRegister)

	me := router.Group("/me")
	me.Use(handler.requireSession)
	me.GET("", handler.handleMe)
	me.GET("/meals", handler.handleMyMeals)
	me.POST("/meals/:meal", handler.handleRecordMeal)

	admin := router.Group("/admin")
	admin.Use(handler.requireAdmin)
	admin.GET("/daily", handler.handleDaily)
	admin.GET("/roster", handler.handleRoster)
	admin.GET("/late", handler.handleLateBoard)
	admin.GET("/monthly", handler.handleMonthly)
	admin.GET("/people", handler.handleListPeople)
	admin.PUT("/people/:phone/status", handler.handleSetLeaveState)
	admin.DELETE("/people/:phone", handler.handleRemovePerson)
	admin.GET("/actions", handler.handleAudit)
	admin.POST("/import", handler.handleImport)
	admin.GET("/export", handler.handleExport)
	admin.GET("/stream", handler.handleBoardStream)

	return router, nil
}

type httpHandler struct {
	people    *people.Service
	meals     *meals.Service
	reports   *reports.Service
	importer  *sheets.Importer
	sessions  *auth.SessionManager
	admin     *auth.AdminGate
	board     *BoardDispatcher
	metrics   *metrics.Metrics
	clock     func() time.Time
	logger    *zap.Logger
	heartbeat time.Duration
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Content-Type", auth.AdminHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func (h *httpHandler) observeRequest(c *gin.Context) {
	start := h.clock()
	c.Next()
	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	h.metrics.ObserveRequest(route, strconv.Itoa(c.Writer.Status()), start)
}

// requireSession loads the signed-in person once per request. A session whose person was
// removed is cleared and reported as needing registration.
func (h *httpHandler) requireSession(c *gin.Context) {
	claims, err := h.sessions.ValidateRequest(c.Request)
	if err != nil {
		if errors.Is(err, auth.ErrMissingSessionToken) || errors.Is(err, auth.ErrExpiredSessionToken) {
			h.logger.Debug("session missing or expired", zap.Error(err))
		} else {
			h.logger.Warn("session validation failed", zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	person, found, err := h.people.Get(c.Request.Context(), people.Identity(claims.Subject))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	if !found {
		h.clearSessionCookie(c)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "registration_required"})
		return
	}
	c.Set(sessionContextKey, meals.NewSession(person))
	c.Next()
}

func (h *httpHandler) requireAdmin(c *gin.Context) {
	if err := h.admin.Check(c.GetHeader(auth.AdminHeader)); err != nil {
		h.logger.Info("admin pin rejected", zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin_required"})
		return
	}
	c.Next()
}

func currentSession(c *gin.Context) (meals.Session, bool) {
	value, ok := c.Get(sessionContextKey)
	if !ok {
		return meals.Session{}, false
	}
	session, ok := value.(meals.Session)
	return session, ok
}

func (h *httpHandler) setSessionCookie(c *gin.Context, person people.Person) error {
	token, expiresAt, err := h.sessions.Issue(person.Phone, person.Name)
	if err != nil {
		return err
	}
	maxAge := int(expiresAt.Sub(h.clock()).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), token, maxAge, "/", "", false, true)
	return nil
}

func (h *httpHandler) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.sessions.CookieName(), "", -1, "/", "", false, true)
}

// requestDate reads a YYYY-MM-DD value, falling back to the date offered to people right now.
func (h *httpHandler) requestDate(raw string) (time.Time, error) {
	schedule := h.meals.Schedule()
	if raw == "" {
		return schedule.DefaultDate(h.clock()), nil
	}
	return meals.ParseDate(raw, schedule.Location())
}
