package payments

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ChandanVasu/ShopGold-sub000/internal/modules/orders"
	"github.com/ChandanVasu/ShopGold-sub000/internal/shared/apperr"
)

// Service is the payment orchestrator. Each operation fetches a fresh config
// snapshot, builds the adapter for it, and funnels every state change through
// the store's guarded transition.
type Service struct {
	store    orders.Store
	settings Settings
	registry *Registry
	hc       *http.Client
	audit    CallbackRecorder
	logger   *slog.Logger
}

func NewService(store orders.Store, settings Settings, registry *Registry, hc *http.Client) *Service {
	return &Service{
		store:    store,
		settings: settings,
		registry: registry,
		hc:       hc,
		logger:   slog.Default(),
	}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

func (s *Service) SetCallbackRecorder(r CallbackRecorder) { s.audit = r }

func (s *Service) adapter(ctx context.Context, gw Gateway) (Adapter, error) {
	cfg, err := s.settings.Gateway(ctx, gw)
	if err != nil {
		return nil, err
	}
	return s.registry.Adapter(gw, cfg, s.hc)
}

type CreateOrderInput struct {
	Gateway   Gateway
	Amount    float64
	Currency  string
	Customer  Customer
	ReturnURL string
}

type CreateOrderResult struct {
	OrderID     string
	ExternalRef string
	RedirectURL string
	Token       string
}

// CreateOrder opens a provider session first and persists the pending order
// only on success, so a create failure leaves no row behind.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	if in.Amount <= 0 {
		return CreateOrderResult{}, apperr.InvalidErr("Amount must be positive.", map[string]string{"amount": "must be positive"})
	}

	ad, err := s.adapter(ctx, in.Gateway)
	if err != nil {
		return CreateOrderResult{}, err
	}

	orderID := uuid.NewString()
	sess, err := ad.CreateSession(ctx, SessionRequest{
		OrderID:   orderID,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Customer:  in.Customer,
		ReturnURL: in.ReturnURL,
	})
	if err != nil {
		// Adapter errors pass through unchanged; nothing was persisted.
		return CreateOrderResult{}, err
	}

	now := time.Now()
	meta := map[string]any{}
	for k, v := range sess.Raw {
		meta[k] = v
	}
	if sess.Token != "" {
		meta["session_token"] = sess.Token
	}
	metaJSON, _ := json.Marshal(meta)

	o := orders.Order{
		ID:            orderID,
		Gateway:       string(in.Gateway),
		ExternalRef:   sess.ExternalRef,
		Amount:        in.Amount,
		Currency:      in.Currency,
		CustomerName:  in.Customer.Name,
		CustomerEmail: in.Customer.Email,
		CustomerPhone: in.Customer.Phone,
		Status:        orders.StatusPending,
		ProviderMeta:  datatypes.JSON(metaJSON),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, &o); err != nil {
		return CreateOrderResult{}, apperr.Wrap(err)
	}

	s.logger.InfoContext(ctx, "payment session created",
		"gateway", in.Gateway, "order_id", orderID, "external_ref", sess.ExternalRef)

	return CreateOrderResult{
		OrderID:     orderID,
		ExternalRef: sess.ExternalRef,
		RedirectURL: sess.RedirectURL,
		Token:       sess.Token,
	}, nil
}

// VerifyOrder is idempotent by construction: a terminal order returns as-is
// with zero upstream calls.
func (s *Service) VerifyOrder(ctx context.Context, orderID, sessionRef string) (orders.Order, error) {
	o, err := s.store.ByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return orders.Order{}, apperr.NotFoundErr("Order not found.")
		}
		return orders.Order{}, apperr.Wrap(err)
	}

	if sessionRef != "" && sessionRef != o.ExternalRef {
		return orders.Order{}, apperr.InvalidErr("Session reference does not match the order.", nil)
	}

	if o.Terminal() {
		return o, nil
	}

	ad, err := s.adapter(ctx, Gateway(o.Gateway))
	if err != nil {
		return orders.Order{}, err
	}

	out, err := ad.Verify(ctx, o.ExternalRef)
	if err != nil {
		return orders.Order{}, err
	}
	if !out.Terminal() {
		// Intermediate provider state; the order stays pending.
		return o, nil
	}

	final, applied, err := s.store.Finalize(ctx, o.ID, out.Status, out.Meta())
	if err != nil {
		return orders.Order{}, apperr.Wrap(err)
	}
	s.logger.InfoContext(ctx, "order verified",
		"gateway", o.Gateway, "order_id", o.ID, "status", final.Status, "applied", applied)
	return final, nil
}

// HandleCallback authenticates the payload before anything else touches the
// store, then applies the same guarded transition as VerifyOrder. Internal
// failures after authentication are logged and acknowledged, never surfaced:
// providers retry on error responses.
func (s *Service) HandleCallback(ctx context.Context, gw Gateway, body []byte, headers http.Header) (Ack, error) {
	ad, err := s.adapter(ctx, gw)
	if err != nil {
		return Ack{}, err
	}

	out, err := ad.ParseCallback(body, headers)
	if err != nil {
		return Ack{}, err
	}

	if out.ExternalRef == "" {
		s.logger.WarnContext(ctx, "callback without external reference", "gateway", gw)
		s.record(ctx, gw, out, body, false)
		return ad.Ack(false), nil
	}

	o, err := s.store.ByExternalRef(ctx, string(gw), out.ExternalRef)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.WarnContext(ctx, "callback for unknown order",
				"gateway", gw, "external_ref", out.ExternalRef)
			s.record(ctx, gw, out, body, false)
			return ad.Ack(false), nil
		}
		s.logger.ErrorContext(ctx, "callback order lookup failed",
			"gateway", gw, "external_ref", out.ExternalRef, "err", err)
		return ad.Ack(false), nil
	}

	if !out.Terminal() {
		s.logger.InfoContext(ctx, "callback reported intermediate state",
			"gateway", gw, "external_ref", out.ExternalRef)
		s.record(ctx, gw, out, body, false)
		return ad.Ack(false), nil
	}

	_, applied, err := s.store.Finalize(ctx, o.ID, out.Status, out.Meta())
	if err != nil {
		s.logger.ErrorContext(ctx, "callback transition failed",
			"gateway", gw, "order_id", o.ID, "err", err)
		s.record(ctx, gw, out, body, false)
		return ad.Ack(false), nil
	}

	s.logger.InfoContext(ctx, "callback processed",
		"gateway", gw, "order_id", o.ID, "status", out.Status, "applied", applied)
	s.record(ctx, gw, out, body, applied)
	return ad.Ack(applied), nil
}

func (s *Service) record(ctx context.Context, gw Gateway, out Outcome, body []byte, applied bool) {
	if s.audit == nil {
		return
	}
	payload := body
	if !json.Valid(payload) {
		// form-encoded callbacks (payu) still land in the JSON column
		payload, _ = json.Marshal(string(body))
	}
	ev := CallbackEvent{
		ID:            uuid.NewString(),
		Gateway:       string(gw),
		ExternalRef:   out.ExternalRef,
		OutcomeStatus: out.Status,
		Applied:       applied,
		PayloadJSON:   datatypes.JSON(payload),
		ReceivedAt:    time.Now(),
	}
	if err := s.audit.Record(ctx, ev); err != nil {
		// best-effort
		s.logger.WarnContext(ctx, "callback audit write failed", "gateway", gw, "err", err)
	}
}
