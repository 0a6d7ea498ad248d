package apphttp

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ChandanVasu/ShopGold-sub000/internal/http/handlers"
	"github.com/ChandanVasu/ShopGold-sub000/internal/http/middleware"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/settings"
)

func NewRouter(logger *slog.Logger, db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.ErrorHandler(logger),
	)

	// One shared client; outbound provider calls are single-attempt with a
	// bounded timeout.
	hc := &http.Client{Timeout: 15 * time.Second}

	store := orders.NewRepo(db)
	svc := payments.NewService(store, settings.NewEnv(), payments.NewRegistry(), hc)
	svc.SetLogger(logger)
	svc.SetCallbackRecorder(payments.NewCallbackLog(db))

	ph := handlers.NewPaymentHandler(logger, svc)
	wh := handlers.NewWebhookHandler(logger, svc)

	limiter := middleware.NewRateLimiter(5, 10)

	pay := r.Group("/payment", limiter.Handler())
	pay.POST("/:gateway", ph.Create)
	pay.PUT("/:gateway", ph.Verify)
	pay.POST("/:gateway/webhook", wh.Handle)

	return r
}
