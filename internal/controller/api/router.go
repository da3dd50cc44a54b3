package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterOptions struct {
	RateLimitPerMin int
	RequestTimeout  time.Duration
	// TrustedProxies - IP/CIDR прокси, чьим X-Forwarded-For можно верить. Пусто - никому
	TrustedProxies []string
}

// NewRouter регистрирует маршруты API и общие middleware
func NewRouter(h *Handler, opts RouterOptions, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(opts.TrustedProxies); err != nil {
		logger.Error("Invalid trusted proxies, proxy headers are ignored", zap.Error(err))
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(logger))
	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", requestIDHeader},
		ExposeHeaders:   []string{requestIDHeader, "Content-Disposition"},
		MaxAge:          12 * time.Hour,
	}))
	router.Use(RateLimit(opts.RateLimitPerMin, logger))
	router.Use(Timeout(opts.RequestTimeout))

	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	appointments := router.Group("/appointments")
	{
		appointments.POST("", h.CreateAppointment)
		appointments.GET("", h.ListDay)
		appointments.GET("/week", h.ListWeek)
		appointments.GET("/week.ics", h.ExportWeek)
		appointments.GET("/:id", h.GetAppointment)
		appointments.DELETE("/:id", h.CancelAppointment)
		appointments.PATCH("/:id/reschedule", h.RescheduleAppointment)
		appointments.PATCH("/:id/notes", h.UpdateNotes)
	}

	router.GET("/slots", h.Slots)

	return router
}
