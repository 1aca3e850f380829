package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
	"github.com/glowcart/api/internal/repositories"
)

const orderCollection = "orders"

type orderDocument struct {
	OrderNumber         string                `firestore:"orderNumber"`
	UserID              string                `firestore:"userId"`
	Email               string                `firestore:"email"`
	Status              string                `firestore:"status"`
	Currency            string                `firestore:"currency"`
	Totals              orderTotalsDocument   `firestore:"totals"`
	CouponCode          *string               `firestore:"couponCode,omitempty"`
	Items               []orderItemDocument   `firestore:"items"`
	PaymentMethod       string                `firestore:"paymentMethod"`
	PaymentIntentID     *string               `firestore:"paymentIntentId,omitempty"`
	ShippingAddress     *addressDocument      `firestore:"shippingAddress,omitempty"`
	Tracking            *trackingDocument     `firestore:"tracking,omitempty"`
	Return              *orderReturnDocument  `firestore:"return,omitempty"`
	Refunds             []orderRefundDocument `firestore:"refunds,omitempty"`
	CreatedAt           time.Time             `firestore:"createdAt"`
	UpdatedAt           time.Time             `firestore:"updatedAt"`
	ConfirmedAt         *time.Time            `firestore:"confirmedAt,omitempty"`
	ProcessingStartedAt *time.Time            `firestore:"processingStartedAt,omitempty"`
	ShippedAt           *time.Time            `firestore:"shippedAt,omitempty"`
	DeliveredAt         *time.Time            `firestore:"deliveredAt,omitempty"`
	CancelledAt         *time.Time            `firestore:"cancelledAt,omitempty"`
	ReturnedAt          *time.Time            `firestore:"returnedAt,omitempty"`
	RefundedAt          *time.Time            `firestore:"refundedAt,omitempty"`
	FailedAt            *time.Time            `firestore:"failedAt,omitempty"`
	CancelReason        *string               `firestore:"cancelReason,omitempty"`
}

type orderTotalsDocument struct {
	Subtotal       int64 `firestore:"subtotal"`
	ItemDiscount   int64 `firestore:"itemDiscount"`
	CouponDiscount int64 `firestore:"couponDiscount"`
	Shipping       int64 `firestore:"shipping"`
	Total          int64 `firestore:"total"`
}

type orderItemDocument struct {
	ID           string               `firestore:"id"`
	ProductID    string               `firestore:"productId"`
	SKU          string               `firestore:"sku"`
	Title        string               `firestore:"title"`
	Image        string               `firestore:"image,omitempty"`
	Quantity     int                  `firestore:"quantity"`
	UnitPrice    int64                `firestore:"unitPrice"`
	Subtotal     int64                `firestore:"subtotal"`
	ReturnPolicy returnPolicyDocument `firestore:"returnPolicy"`
}

type returnPolicyDocument struct {
	Returnable       bool `firestore:"returnable"`
	ReturnWindowDays int  `firestore:"returnWindowDays"`
}

type addressDocument struct {
	Recipient  string  `firestore:"recipient"`
	Line1      string  `firestore:"line1"`
	Line2      *string `firestore:"line2,omitempty"`
	City       string  `firestore:"city"`
	State      *string `firestore:"state,omitempty"`
	PostalCode string  `firestore:"postalCode"`
	Country    string  `firestore:"country"`
	Phone      *string `firestore:"phone,omitempty"`
}

type trackingDocument struct {
	Carrier string `firestore:"carrier"`
	Number  string `firestore:"number"`
	URL     string `firestore:"url,omitempty"`
}

type orderReturnDocument struct {
	Status      string               `firestore:"status"`
	Reason      string               `firestore:"reason"`
	Notes       string               `firestore:"notes,omitempty"`
	ItemIDs     []string             `firestore:"itemIds,omitempty"`
	BankDetails *bankDetailsDocument `firestore:"bankDetails,omitempty"`
	RequestedAt time.Time            `firestore:"requestedAt"`
	ApprovedAt  *time.Time           `firestore:"approvedAt,omitempty"`
	RejectedAt  *time.Time           `firestore:"rejectedAt,omitempty"`
	CompletedAt *time.Time           `firestore:"completedAt,omitempty"`
	CancelledAt *time.Time           `firestore:"cancelledAt,omitempty"`
}

type bankDetailsDocument struct {
	AccountHolder string `firestore:"accountHolder"`
	AccountNumber string `firestore:"accountNumber"`
	IFSC          string `firestore:"ifsc"`
	BankName      string `firestore:"bankName"`
}

type orderRefundDocument struct {
	ID             string     `firestore:"id"`
	Amount         int64      `firestore:"amount"`
	Currency       string     `firestore:"currency"`
	Status         string     `firestore:"status"`
	Reason         string     `firestore:"reason,omitempty"`
	StripeRefundID *string    `firestore:"stripeRefundId,omitempty"`
	ProcessedAt    *time.Time `firestore:"processedAt,omitempty"`
	CreatedAt      time.Time  `firestore:"createdAt"`
}

// OrderRepository persists orders in Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil),
		provider: provider,
	}, nil
}

func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	id, err := requireID("orders.insert", order.ID)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainOrder(order)); err != nil {
		return pfirestore.WrapError("orders.insert", err)
	}
	return nil
}

func (r *OrderRepository) Update(ctx context.Context, order domain.Order) error {
	id, err := requireID("orders.update", order.ID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	_, err = r.base.Set(ctx, id, fromDomainOrder(order))
	return err
}

func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	id, err := requireID("orders.get", orderID)
	if err != nil {
		return domain.Order{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return toDomainOrder(doc.ID, doc.Data), nil
}

func (r *OrderRepository) FindByPaymentIntent(ctx context.Context, intentID string) (domain.Order, error) {
	intent := strings.TrimSpace(intentID)
	if intent == "" {
		return domain.Order{}, notFoundError("orders.find_by_intent", "payment intent id is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("paymentIntentId", "==", intent).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, notFoundError("orders.find_by_intent", "no order for payment intent "+intent)
	}
	return toDomainOrder(docs[0].ID, docs[0].Data), nil
}

func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	startAfter, err := decodeCursor("orders.list", filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		if uid := strings.TrimSpace(filter.UserID); uid != "" {
			q = q.Where("userId", "==", uid)
		}
		if len(filter.Status) > 0 {
			q = q.Where("status", "in", filter.Status)
		}
		if filter.PaymentIntentID != nil {
			q = q.Where("paymentIntentId", "==", strings.TrimSpace(*filter.PaymentIntentID))
		}
		if filter.DateRange.From != nil {
			q = q.Where("createdAt", ">=", filter.DateRange.From.UTC())
		}
		if filter.DateRange.To != nil {
			q = q.Where("createdAt", "<=", filter.DateRange.To.UTC())
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, filter.Pagination.PageSize, build,
		toDomainOrder,
		func(id string, doc orderDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

func fromDomainOrder(order domain.Order) orderDocument {
	doc := orderDocument{
		OrderNumber:         strings.TrimSpace(order.OrderNumber),
		UserID:              strings.TrimSpace(order.UserID),
		Email:               strings.TrimSpace(order.Email),
		Status:              string(order.Status),
		Currency:            strings.ToUpper(strings.TrimSpace(order.Currency)),
		Totals:              orderTotalsDocument(order.Totals),
		CouponCode:          order.CouponCode,
		PaymentMethod:       string(order.PaymentMethod),
		PaymentIntentID:     order.PaymentIntentID,
		CreatedAt:           order.CreatedAt.UTC(),
		UpdatedAt:           order.UpdatedAt.UTC(),
		ConfirmedAt:         order.ConfirmedAt,
		ProcessingStartedAt: order.ProcessingStartedAt,
		ShippedAt:           order.ShippedAt,
		DeliveredAt:         order.DeliveredAt,
		CancelledAt:         order.CancelledAt,
		ReturnedAt:          order.ReturnedAt,
		RefundedAt:          order.RefundedAt,
		FailedAt:            order.FailedAt,
		CancelReason:        order.CancelReason,
	}
	for _, item := range order.Items {
		doc.Items = append(doc.Items, orderItemDocument{
			ID:           item.ID,
			ProductID:    item.ProductID,
			SKU:          item.SKU,
			Title:        item.Title,
			Image:        item.Image,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     item.Subtotal,
			ReturnPolicy: returnPolicyDocument(item.ReturnPolicy),
		})
	}
	if order.ShippingAddress != nil {
		addr := addressDocument(*order.ShippingAddress)
		doc.ShippingAddress = &addr
	}
	if order.Tracking != nil {
		tracking := trackingDocument(*order.Tracking)
		doc.Tracking = &tracking
	}
	if order.Return != nil {
		ret := orderReturnDocument{
			Status:      string(order.Return.Status),
			Reason:      order.Return.Reason,
			Notes:       order.Return.Notes,
			ItemIDs:     order.Return.ItemIDs,
			RequestedAt: order.Return.RequestedAt.UTC(),
			ApprovedAt:  order.Return.ApprovedAt,
			RejectedAt:  order.Return.RejectedAt,
			CompletedAt: order.Return.CompletedAt,
			CancelledAt: order.Return.CancelledAt,
		}
		if order.Return.BankDetails != nil {
			bank := bankDetailsDocument(*order.Return.BankDetails)
			ret.BankDetails = &bank
		}
		doc.Return = &ret
	}
	for _, refund := range order.Refunds {
		doc.Refunds = append(doc.Refunds, orderRefundDocument{
			ID:             refund.ID,
			Amount:         refund.Amount,
			Currency:       refund.Currency,
			Status:         string(refund.Status),
			Reason:         refund.Reason,
			StripeRefundID: refund.StripeRefundID,
			ProcessedAt:    refund.ProcessedAt,
			CreatedAt:      refund.CreatedAt.UTC(),
		})
	}
	return doc
}

func toDomainOrder(id string, doc orderDocument) domain.Order {
	order := domain.Order{
		ID:                  id,
		OrderNumber:         doc.OrderNumber,
		UserID:              doc.UserID,
		Email:               doc.Email,
		Status:              domain.OrderStatus(doc.Status),
		Currency:            doc.Currency,
		Totals:              domain.OrderTotals(doc.Totals),
		CouponCode:          doc.CouponCode,
		PaymentMethod:       domain.PaymentMethodKind(doc.PaymentMethod),
		PaymentIntentID:     doc.PaymentIntentID,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
		ConfirmedAt:         doc.ConfirmedAt,
		ProcessingStartedAt: doc.ProcessingStartedAt,
		ShippedAt:           doc.ShippedAt,
		DeliveredAt:         doc.DeliveredAt,
		CancelledAt:         doc.CancelledAt,
		ReturnedAt:          doc.ReturnedAt,
		RefundedAt:          doc.RefundedAt,
		FailedAt:            doc.FailedAt,
		CancelReason:        doc.CancelReason,
	}
	for _, item := range doc.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ID:           item.ID,
			ProductID:    item.ProductID,
			SKU:          item.SKU,
			Title:        item.Title,
			Image:        item.Image,
			Quantity:     item.Quantity,
			UnitPrice:    item.UnitPrice,
			Subtotal:     item.Subtotal,
			ReturnPolicy: domain.ReturnPolicy(item.ReturnPolicy),
		})
	}
	if doc.ShippingAddress != nil {
		addr := domain.Address(*doc.ShippingAddress)
		order.ShippingAddress = &addr
	}
	if doc.Tracking != nil {
		tracking := domain.Tracking(*doc.Tracking)
		order.Tracking = &tracking
	}
	if doc.Return != nil {
		ret := domain.OrderReturn{
			Status:      domain.ReturnStatus(doc.Return.Status),
			Reason:      doc.Return.Reason,
			Notes:       doc.Return.Notes,
			ItemIDs:     doc.Return.ItemIDs,
			RequestedAt: doc.Return.RequestedAt,
			ApprovedAt:  doc.Return.ApprovedAt,
			RejectedAt:  doc.Return.RejectedAt,
			CompletedAt: doc.Return.CompletedAt,
			CancelledAt: doc.Return.CancelledAt,
		}
		if doc.Return.BankDetails != nil {
			bank := domain.BankDetails(*doc.Return.BankDetails)
			ret.BankDetails = &bank
		}
		order.Return = &ret
	}
	for _, refund := range doc.Refunds {
		order.Refunds = append(order.Refunds, domain.Refund{
			ID:             refund.ID,
			Amount:         refund.Amount,
			Currency:       refund.Currency,
			Status:         domain.RefundStatus(refund.Status),
			Reason:         refund.Reason,
			StripeRefundID: refund.StripeRefundID,
			ProcessedAt:    refund.ProcessedAt,
			CreatedAt:      refund.CreatedAt,
		})
	}
	return order
}
