package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const (
	orderIDPrefix  = "ord_"
	refundIDPrefix = "ref_"

	orderNumberCounter = "orders"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderInvalidState indicates an invalid status transition was attempted.
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	// ErrOrderConflict indicates optimistic concurrency conflicts or duplicates.
	ErrOrderConflict = errors.New("order: conflict")
	// ErrOrderNotCancellable indicates the cancellation guard rejected the order.
	ErrOrderNotCancellable = errors.New("order: not cancellable")
	// ErrReturnNotEligible indicates the order does not qualify for a return.
	ErrReturnNotEligible = errors.New("order: return not eligible")
	// ErrReturnWindowExpired indicates the return window has elapsed.
	ErrReturnWindowExpired = errors.New("order: return window expired")
	// ErrReturnAlreadyRequested indicates a return is already in flight.
	ErrReturnAlreadyRequested = errors.New("order: return already requested")
	// ErrReturnNotCancellable indicates the return can no longer be withdrawn.
	ErrReturnNotCancellable = errors.New("order: return not cancellable")
	// ErrBankDetailsRequired indicates a COD return was filed without refund
	// bank details.
	ErrBankDetailsRequired = errors.New("order: bank details required")
	// ErrRefundNotAllowed indicates the order is not in a refundable state.
	ErrRefundNotAllowed = errors.New("order: refund not allowed")
	// ErrRefundNotFound indicates the refund entry could not be located.
	ErrRefundNotFound = errors.New("order: refund not found")
)

var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusConfirmed, domain.OrderStatusCancelled, domain.OrderStatusFailed},
	domain.OrderStatusConfirmed:  {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
	domain.OrderStatusDelivered:  {domain.OrderStatusReturned},
	domain.OrderStatusReturned:   {domain.OrderStatusRefunded},
}

var cancellableStatuses = []domain.OrderStatus{
	domain.OrderStatusPending,
	domain.OrderStatusConfirmed,
}

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Counters    repositories.CounterRepository
	UnitOfWork  repositories.UnitOfWork
	Clock       func() time.Time
	IDGenerator func() string
	Events      OrderEventPublisher
	Logger      func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders     repositories.OrderRepository
	counters   repositories.CounterRepository
	unitOfWork repositories.UnitOfWork
	clock      func() time.Time
	newID      func() string
	events     OrderEventPublisher
	logger     func(context.Context, string, map[string]any)
}

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Counters == nil {
		return nil, errors.New("order service: counter repository is required")
	}

	unit := deps.UnitOfWork
	if unit == nil {
		unit = noopUnitOfWork{}
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return ulid.Make().String()
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:     deps.Orders,
		counters:   deps.Counters,
		unitOfWork: unit,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		events: deps.Events,
		logger: logger,
	}, nil
}

func (s *orderService) CreateFromCart(ctx context.Context, cmd CreateOrderFromCartCommand) (Order, error) {
	if len(cmd.Cart.Items) == 0 {
		return Order{}, fmt.Errorf("%w: cart must contain at least one item", ErrOrderInvalidInput)
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		userID = strings.TrimSpace(cmd.Cart.UserID)
	}
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrOrderInvalidInput)
	}
	email := strings.TrimSpace(cmd.Email)
	if email == "" {
		return Order{}, fmt.Errorf("%w: email is required", ErrOrderInvalidInput)
	}
	currency := strings.TrimSpace(cmd.Cart.Currency)
	if currency == "" {
		return Order{}, fmt.Errorf("%w: cart currency is required", ErrOrderInvalidInput)
	}
	switch cmd.PaymentMethod {
	case domain.PaymentMethodCard, domain.PaymentMethodCOD:
	default:
		return Order{}, fmt.Errorf("%w: unsupported payment method %q", ErrOrderInvalidInput, cmd.PaymentMethod)
	}

	now := s.now()

	order := Order{
		ID:              s.nextOrderID(),
		UserID:          userID,
		Email:           email,
		Status:          domain.OrderStatusPending,
		Currency:        currency,
		Totals:          buildOrderTotals(cmd.Cart),
		CouponCode:      cloneStringPtr(cmd.Cart.CouponCode),
		Items:           buildOrderItems(cmd.Cart.Items),
		PaymentMethod:   cmd.PaymentMethod,
		PaymentIntentID: cloneStringPtr(cmd.PaymentIntentID),
		ShippingAddress: cloneAddress(&cmd.ShippingAddress),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if cmd.OrderNumber != nil && strings.TrimSpace(*cmd.OrderNumber) != "" {
		order.OrderNumber = strings.TrimSpace(*cmd.OrderNumber)
	}

	if order.OrderNumber == "" {
		number, err := s.generateOrderNumber(ctx, now)
		if err != nil {
			return Order{}, err
		}
		order.OrderNumber = number
	}

	err := s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Insert(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:        OrderEventCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Email:       order.Email,
		Status:      order.Status,
		Currency:    order.Currency,
		OccurredAt:  now,
	})

	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	page, err := s.orders.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Order]{}, s.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}
	return order, nil
}

func (s *orderService) TransitionStatus(ctx context.Context, cmd OrderStatusTransitionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.TargetStatus == "" {
		return Order{}, fmt.Errorf("%w: target status is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if cmd.ExpectedStatus != nil && order.Status != *cmd.ExpectedStatus {
		return Order{}, fmt.Errorf("%w: expected status %q but was %q", ErrOrderConflict, *cmd.ExpectedStatus, order.Status)
	}

	now := s.now()
	prevStatus := order.Status

	if err := applyStatusTransition(&order, cmd.TargetStatus, now); err != nil {
		return Order{}, err
	}

	if cmd.TargetStatus == domain.OrderStatusShipped && cmd.Tracking != nil {
		tracking := *cmd.Tracking
		order.Tracking = &tracking
	}
	if reason := strings.TrimSpace(cmd.Reason); reason != "" && cmd.TargetStatus == domain.OrderStatusFailed {
		order.CancelReason = optionalString(reason)
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	eventType := OrderEventStatusChanged
	switch order.Status {
	case domain.OrderStatusConfirmed:
		eventType = OrderEventConfirmed
	case domain.OrderStatusFailed:
		eventType = OrderEventFailed
	}
	if prevStatus != order.Status {
		s.publishEvent(ctx, OrderEvent{
			Type:        eventType,
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      order.UserID,
			Email:       order.Email,
			Status:      order.Status,
			Currency:    order.Currency,
			Reason:      strings.TrimSpace(cmd.Reason),
			OccurredAt:  now,
		})
	}

	return order, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if !CanCancelOrder(order) {
		return Order{}, fmt.Errorf("%w: order status %q", ErrOrderNotCancellable, order.Status)
	}

	now := s.now()
	reason := strings.TrimSpace(cmd.Reason)

	order.CancelReason = optionalString(reason)

	if err := applyStatusTransition(&order, domain.OrderStatusCancelled, now); err != nil {
		return Order{}, err
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:        OrderEventCancelled,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Email:       order.Email,
		Status:      order.Status,
		Currency:    order.Currency,
		Reason:      reason,
		OccurredAt:  now,
	})

	return order, nil
}

func (s *orderService) RequestReturn(ctx context.Context, cmd RequestReturnCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		return Order{}, fmt.Errorf("%w: return reason is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if userID := strings.TrimSpace(cmd.UserID); userID != "" && order.UserID != userID {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderNotFound, orderID)
	}

	now := s.now()
	if err := checkReturnEligibility(order, now); err != nil {
		return Order{}, err
	}

	if order.PaymentMethod == domain.PaymentMethodCOD && cmd.BankDetails == nil {
		return Order{}, fmt.Errorf("%w: cod refunds need destination bank details", ErrBankDetailsRequired)
	}

	itemIDs, err := resolveReturnItems(order, cmd.ItemIDs)
	if err != nil {
		return Order{}, err
	}

	ret := &domain.OrderReturn{
		Status:      domain.ReturnStatusRequested,
		Reason:      strings.TrimSpace(cmd.Reason),
		Notes:       strings.TrimSpace(cmd.Notes),
		ItemIDs:     itemIDs,
		RequestedAt: now,
	}
	if cmd.BankDetails != nil {
		details := *cmd.BankDetails
		ret.BankDetails = &details
	}
	order.Return = ret
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:         OrderEventReturnRequested,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		Email:        order.Email,
		Status:       order.Status,
		ReturnStatus: string(domain.ReturnStatusRequested),
		Currency:     order.Currency,
		Reason:       ret.Reason,
		OccurredAt:   now,
	})

	return order, nil
}

func (s *orderService) CancelReturn(ctx context.Context, cmd CancelReturnCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if userID := strings.TrimSpace(cmd.UserID); userID != "" && order.UserID != userID {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderNotFound, orderID)
	}

	if order.Return == nil || order.Return.Status != domain.ReturnStatusRequested {
		return Order{}, fmt.Errorf("%w: only requested returns can be withdrawn", ErrReturnNotCancellable)
	}

	now := s.now()
	order.Return.Status = domain.ReturnStatusCancelled
	order.Return.CancelledAt = &now
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:         OrderEventReturnCancelled,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		Email:        order.Email,
		Status:       order.Status,
		ReturnStatus: string(domain.ReturnStatusCancelled),
		Currency:     order.Currency,
		OccurredAt:   now,
	})

	return order, nil
}

func (s *orderService) ResolveReturn(ctx context.Context, cmd ResolveReturnCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if order.Return == nil {
		return Order{}, fmt.Errorf("%w: no return on order %s", ErrReturnNotEligible, orderID)
	}

	now := s.now()
	eventType := OrderEventStatusChanged

	switch cmd.Action {
	case ReturnResolutionApprove:
		if order.Return.Status != domain.ReturnStatusRequested {
			return Order{}, fmt.Errorf("%w: return status %q cannot be approved", ErrOrderInvalidState, order.Return.Status)
		}
		order.Return.Status = domain.ReturnStatusApproved
		order.Return.ApprovedAt = &now
		eventType = OrderEventReturnApproved
	case ReturnResolutionReject:
		if order.Return.Status != domain.ReturnStatusRequested {
			return Order{}, fmt.Errorf("%w: return status %q cannot be rejected", ErrOrderInvalidState, order.Return.Status)
		}
		order.Return.Status = domain.ReturnStatusRejected
		order.Return.RejectedAt = &now
		eventType = OrderEventReturnRejected
	case ReturnResolutionComplete:
		if order.Return.Status != domain.ReturnStatusApproved {
			return Order{}, fmt.Errorf("%w: return status %q cannot be completed", ErrOrderInvalidState, order.Return.Status)
		}
		order.Return.Status = domain.ReturnStatusCompleted
		order.Return.CompletedAt = &now
		if err := applyStatusTransition(&order, domain.OrderStatusReturned, now); err != nil {
			return Order{}, err
		}
		eventType = OrderEventReturnCompleted
	default:
		return Order{}, fmt.Errorf("%w: unknown return action %q", ErrOrderInvalidInput, cmd.Action)
	}

	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		order.Return.Notes = notes
	}
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.publishEvent(ctx, OrderEvent{
		Type:         eventType,
		OrderID:      order.ID,
		OrderNumber:  order.OrderNumber,
		UserID:       order.UserID,
		Email:        order.Email,
		Status:       order.Status,
		ReturnStatus: string(order.Return.Status),
		Currency:     order.Currency,
		OccurredAt:   now,
	})

	return order, nil
}

func (s *orderService) RecordRefund(ctx context.Context, cmd RecordRefundCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if cmd.Amount <= 0 {
		return Order{}, fmt.Errorf("%w: refund amount must be positive", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	if order.Status != domain.OrderStatusReturned && order.Status != domain.OrderStatusCancelled {
		return Order{}, fmt.Errorf("%w: order status %q", ErrRefundNotAllowed, order.Status)
	}
	if cmd.Amount > remainingRefundable(order) {
		return Order{}, fmt.Errorf("%w: amount exceeds refundable balance", ErrRefundNotAllowed)
	}

	now := s.now()
	refund := domain.Refund{
		ID:        refundIDPrefix + s.newID(),
		Amount:    cmd.Amount,
		Currency:  order.Currency,
		Status:    domain.RefundStatusPending,
		Reason:    strings.TrimSpace(cmd.Reason),
		CreatedAt: now,
	}
	order.Refunds = append(order.Refunds, refund)
	order.UpdatedAt = now

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	return order, nil
}

func (s *orderService) SettleRefund(ctx context.Context, cmd SettleRefundCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	refundID := strings.TrimSpace(cmd.RefundID)
	if orderID == "" || refundID == "" {
		return Order{}, fmt.Errorf("%w: order id and refund id are required", ErrOrderInvalidInput)
	}
	switch cmd.Status {
	case domain.RefundStatusSucceeded, domain.RefundStatusFailed:
	default:
		return Order{}, fmt.Errorf("%w: refunds settle to succeeded or failed", ErrOrderInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.mapRepositoryError(err)
	}

	idx := slices.IndexFunc(order.Refunds, func(r domain.Refund) bool { return r.ID == refundID })
	if idx < 0 {
		return Order{}, fmt.Errorf("%w: refund %s", ErrRefundNotFound, refundID)
	}
	if order.Refunds[idx].Status != domain.RefundStatusPending {
		return Order{}, fmt.Errorf("%w: refund %s already settled", ErrOrderConflict, refundID)
	}

	now := s.now()
	processedAt := cmd.ProcessedAt
	if processedAt.IsZero() {
		processedAt = now
	}
	order.Refunds[idx].Status = cmd.Status
	order.Refunds[idx].ProcessedAt = &processedAt
	if cmd.StripeRefundID != nil {
		order.Refunds[idx].StripeRefundID = cloneStringPtr(cmd.StripeRefundID)
	}
	order.UpdatedAt = now

	if cmd.Status == domain.RefundStatusSucceeded && order.Status == domain.OrderStatusReturned {
		if err := applyStatusTransition(&order, domain.OrderStatusRefunded, now); err != nil {
			return Order{}, err
		}
	}

	err = s.runInTx(ctx, func(txCtx context.Context) error {
		if err := s.orders.Update(txCtx, order); err != nil {
			return s.mapRepositoryError(err)
		}
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	if cmd.Status == domain.RefundStatusSucceeded {
		s.publishEvent(ctx, OrderEvent{
			Type:         OrderEventRefundProcessed,
			OrderID:      order.ID,
			OrderNumber:  order.OrderNumber,
			UserID:       order.UserID,
			Email:        order.Email,
			Status:       order.Status,
			RefundAmount: order.Refunds[idx].Amount,
			Currency:     order.Currency,
			OccurredAt:   now,
		})
	}

	return order, nil
}

// CanCancelOrder reports whether the cancellation guard passes: the order is
// still pending or confirmed and no return has been approved or completed.
func CanCancelOrder(order Order) bool {
	if !slices.Contains(cancellableStatuses, order.Status) {
		return false
	}
	if order.Return != nil {
		switch order.Return.Status {
		case domain.ReturnStatusApproved, domain.ReturnStatusCompleted:
			return false
		}
	}
	return true
}

// ReturnableItems filters order items whose product return policy permits a
// return. A zero window means the default applies.
func ReturnableItems(order Order) []OrderItem {
	items := make([]OrderItem, 0, len(order.Items))
	for _, item := range order.Items {
		if item.ReturnPolicy.Returnable {
			items = append(items, item)
		}
	}
	return items
}

// ReturnWindowDays resolves the effective window for the order: the maximum
// window across returnable items, each defaulting when unset.
func ReturnWindowDays(order Order) int {
	window := 0
	for _, item := range ReturnableItems(order) {
		days := item.ReturnPolicy.ReturnWindowDays
		if days <= 0 {
			days = domain.DefaultReturnWindowDays
		}
		if days > window {
			window = days
		}
	}
	return window
}

// CanRequestReturn reports whether the return guard passes at the given time.
func CanRequestReturn(order Order, now time.Time) bool {
	return checkReturnEligibility(order, now) == nil
}

func checkReturnEligibility(order Order, now time.Time) error {
	if order.Status != domain.OrderStatusDelivered {
		return fmt.Errorf("%w: order status %q", ErrReturnNotEligible, order.Status)
	}
	if order.DeliveredAt == nil {
		return fmt.Errorf("%w: delivery timestamp missing", ErrReturnNotEligible)
	}
	if order.Return != nil && order.Return.Status != domain.ReturnStatusCancelled {
		return fmt.Errorf("%w: return status %q", ErrReturnAlreadyRequested, order.Return.Status)
	}
	window := ReturnWindowDays(order)
	if window == 0 {
		return fmt.Errorf("%w: no returnable items", ErrReturnNotEligible)
	}
	if daysSince(*order.DeliveredAt, now) > window {
		return fmt.Errorf("%w: delivered %s, window %d days", ErrReturnWindowExpired, order.DeliveredAt.Format(time.RFC3339), window)
	}
	return nil
}

func resolveReturnItems(order Order, requested []string) ([]string, error) {
	returnable := ReturnableItems(order)
	if len(requested) == 0 {
		ids := make([]string, 0, len(returnable))
		for _, item := range returnable {
			ids = append(ids, item.ID)
		}
		return ids, nil
	}
	byID := make(map[string]bool, len(returnable))
	for _, item := range returnable {
		byID[item.ID] = true
	}
	ids := make([]string, 0, len(requested))
	for _, raw := range requested {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if !byID[id] {
			return nil, fmt.Errorf("%w: item %s is not returnable", ErrReturnNotEligible, id)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no returnable items selected", ErrOrderInvalidInput)
	}
	return ids, nil
}

func remainingRefundable(order Order) int64 {
	remaining := order.Totals.Total
	for _, refund := range order.Refunds {
		if refund.Status == domain.RefundStatusFailed {
			continue
		}
		remaining -= refund.Amount
	}
	if remaining < 0 {
		return 0
	}
	return remaining
}

func daysSince(from, now time.Time) int {
	if now.Before(from) {
		return 0
	}
	return int(now.Sub(from) / (24 * time.Hour))
}

func applyStatusTransition(order *Order, target domain.OrderStatus, now time.Time) error {
	current := order.Status

	if current == target {
		order.UpdatedAt = now
		return nil
	}

	if !canTransition(current, target) {
		return fmt.Errorf("%w: %s to %s", ErrOrderInvalidState, current, target)
	}

	order.Status = target
	order.UpdatedAt = now
	updateTimestamps(order, target, now)

	return nil
}

// updateTimestamps sets each milestone exactly once; repeated transitions do
// not rewrite history.
func updateTimestamps(order *Order, status domain.OrderStatus, now time.Time) {
	switch status {
	case domain.OrderStatusConfirmed:
		if order.ConfirmedAt == nil {
			order.ConfirmedAt = &now
		}
	case domain.OrderStatusProcessing:
		if order.ProcessingStartedAt == nil {
			order.ProcessingStartedAt = &now
		}
	case domain.OrderStatusShipped:
		if order.ShippedAt == nil {
			order.ShippedAt = &now
		}
	case domain.OrderStatusDelivered:
		if order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
	case domain.OrderStatusCancelled:
		if order.CancelledAt == nil {
			order.CancelledAt = &now
		}
	case domain.OrderStatusReturned:
		if order.ReturnedAt == nil {
			order.ReturnedAt = &now
		}
	case domain.OrderStatusRefunded:
		if order.RefundedAt == nil {
			order.RefundedAt = &now
		}
	case domain.OrderStatusFailed:
		if order.FailedAt == nil {
			order.FailedAt = &now
		}
	}
}

func (s *orderService) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrOrderNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrOrderConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("order: repository unavailable: %w", err)
		}
	}

	return err
}

func (s *orderService) generateOrderNumber(ctx context.Context, now time.Time) (string, error) {
	seq, err := s.counters.Next(ctx, orderNumberCounter, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("GC-%04d-%06d", now.Year(), seq), nil
}

func (s *orderService) runInTx(ctx context.Context, fn func(context.Context) error) error {
	if s.unitOfWork == nil {
		return fn(ctx)
	}
	return s.unitOfWork.RunInTx(ctx, fn)
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func (s *orderService) publishEvent(ctx context.Context, event OrderEvent) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":   string(event.Type),
			"order":  event.OrderID,
			"error":  err.Error(),
			"status": string(event.Status),
		})
	}
}

type noopUnitOfWork struct{}

func (noopUnitOfWork) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func buildOrderTotals(cart Cart) OrderTotals {
	if cart.Estimate != nil {
		return OrderTotals{
			Subtotal:       cart.Estimate.Subtotal,
			ItemDiscount:   cart.Estimate.ItemDiscount,
			CouponDiscount: cart.Estimate.CouponDiscount,
			Shipping:       cart.Estimate.Shipping,
			Total:          cart.Estimate.Total,
		}
	}

	var subtotal int64
	for _, item := range cart.Items {
		subtotal += item.UnitPrice * int64(item.Quantity)
	}

	return OrderTotals{
		Subtotal: subtotal,
		Total:    subtotal,
	}
}

func buildOrderItems(items []CartItem) []OrderItem {
	lines := make([]OrderItem, 0, len(items))
	for _, item := range items {
		lines = append(lines, OrderItem{
			ID:           strings.TrimSpace(item.ID),
			ProductID:    strings.TrimSpace(item.ProductID),
			SKU:          strings.TrimSpace(item.SKU),
			Title:        item.Title,
			Image:        item.Image,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     item.UnitPrice * int64(item.Quantity),
			ReturnPolicy: item.ReturnPolicy,
		})
	}
	return lines
}

func cloneAddress(addr *Address) *Address {
	if addr == nil {
		return nil
	}
	cloned := *addr
	return &cloned
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	ref := *value
	return &ref
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	ref := v
	return &ref
}

func canTransition(current, target domain.OrderStatus) bool {
	if current == target {
		return true
	}
	next, ok := orderStateTransitions[current]
	if !ok {
		return false
	}
	return slices.Contains(next, target)
}
