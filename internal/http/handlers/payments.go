package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ChandanVasu/ShopGold-sub000/internal/http/middleware"
	"github.com/ChandanVasu/ShopGold-sub000/internal/http/validation"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/payments"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

type PaymentHandler struct {
	Logger  *slog.Logger
	Service *payments.Service
}

func NewPaymentHandler(logger *slog.Logger, svc *payments.Service) *PaymentHandler {
	return &PaymentHandler{Logger: logger, Service: svc}
}

type createPaymentInput struct {
	Amount   float64 `json:"amount" binding:"required,gt=0"`
	Currency string  `json:"currency" binding:"required,len=3"`
	Customer struct {
		Name  string `json:"name" binding:"required,max=255"`
		Email string `json:"email" binding:"required,email,max=255"`
		Phone string `json:"phone" binding:"required,min=5,max=32"`
	} `json:"customer" binding:"required"`
	ReturnURL string `json:"returnUrl" binding:"omitempty,url,max=1024"`
}

// POST /payment/:gateway
func (h *PaymentHandler) Create(c *gin.Context) {
	gw, ok := payments.ParseGateway(c.Param("gateway"))
	if !ok {
		middleware.Fail(c, apperr.InvalidErr("Unknown payment gateway.", nil))
		return
	}

	var in createPaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Validation failed.", validation.FromBindError(err, &in)))
		return
	}

	res, err := h.Service.CreateOrder(c.Request.Context(), payments.CreateOrderInput{
		Gateway:  gw,
		Amount:   in.Amount,
		Currency: in.Currency,
		Customer: payments.Customer{
			Name:  in.Customer.Name,
			Email: in.Customer.Email,
			Phone: in.Customer.Phone,
		},
		ReturnURL: in.ReturnURL,
	})
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"orderId":     res.OrderID,
		"sessionRef":  res.ExternalRef,
		"redirectUrl": res.RedirectURL,
		"token":       res.Token,
	})
}

type verifyPaymentInput struct {
	OrderID    string `json:"orderId" binding:"required,uuid"`
	SessionRef string `json:"sessionRef" binding:"omitempty,max=128"`
}

// PUT /payment/:gateway
func (h *PaymentHandler) Verify(c *gin.Context) {
	if _, ok := payments.ParseGateway(c.Param("gateway")); !ok {
		middleware.Fail(c, apperr.InvalidErr("Unknown payment gateway.", nil))
		return
	}

	var in verifyPaymentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Validation failed.", validation.FromBindError(err, &in)))
		return
	}

	o, err := h.Service.VerifyOrder(c.Request.Context(), in.OrderID, in.SessionRef)
	if err != nil {
		middleware.Fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order": orderJSON(o)})
}

func orderJSON(o orders.Order) gin.H {
	return gin.H{
		"id":          o.ID,
		"gateway":     o.Gateway,
		"externalRef": o.ExternalRef,
		"amount":      o.Amount,
		"currency":    o.Currency,
		"customer": gin.H{
			"name":  o.CustomerName,
			"email": o.CustomerEmail,
			"phone": o.CustomerPhone,
		},
		"status":       o.Status,
		"providerMeta": o.MetaMap(),
		"createdAt":    o.CreatedAt,
		"updatedAt":    o.UpdatedAt,
	}
}
