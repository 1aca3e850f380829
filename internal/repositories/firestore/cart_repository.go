package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/glowcart/api/internal/domain"
	pfirestore "github.com/glowcart/api/internal/platform/firestore"
)

const cartCollection = "carts"

// Carts are keyed by the owning user (or guest session) so each shopper has
// at most one cart document.
type cartDocument struct {
	UserID     string                `firestore:"userId,omitempty"`
	SessionID  string                `firestore:"sessionId,omitempty"`
	Currency   string                `firestore:"currency"`
	CouponCode *string               `firestore:"couponCode,omitempty"`
	Items      []cartItemDocument    `firestore:"items"`
	Estimate   *cartEstimateDocument `firestore:"estimate,omitempty"`
	UpdatedAt  time.Time             `firestore:"updatedAt"`
}

type cartItemDocument struct {
	ID           string                  `firestore:"id"`
	ProductID    string                  `firestore:"productId"`
	SKU          string                  `firestore:"sku"`
	Title        string                  `firestore:"title"`
	Image        string                  `firestore:"image,omitempty"`
	Quantity     int                     `firestore:"quantity"`
	UnitPrice    int64                   `firestore:"unitPrice"`
	Discount     *discountDocument       `firestore:"discount,omitempty"`
	Shipping     *shippingPolicyDocument `firestore:"shipping,omitempty"`
	ReturnPolicy returnPolicyDocument    `firestore:"returnPolicy"`
	AddedAt      time.Time               `firestore:"addedAt"`
	UpdatedAt    *time.Time              `firestore:"updatedAt,omitempty"`
}

type discountDocument struct {
	Type  string `firestore:"type"`
	Value int64  `firestore:"value"`
}

type shippingPolicyDocument struct {
	Charges                 int64 `firestore:"charges"`
	FreeShippingThreshold   int64 `firestore:"freeShippingThreshold"`
	FreeShippingMinQuantity int   `firestore:"freeShippingMinQuantity"`
}

type cartEstimateDocument struct {
	Subtotal       int64 `firestore:"subtotal"`
	ItemDiscount   int64 `firestore:"itemDiscount"`
	CouponDiscount int64 `firestore:"couponDiscount"`
	Shipping       int64 `firestore:"shipping"`
	Total          int64 `firestore:"total"`
}

// CartRepository persists shopping carts in Firestore.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil),
	}, nil
}

func (r *CartRepository) UpsertCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	id, err := requireID("carts.upsert", cartOwnerID(cart))
	if err != nil {
		return domain.Cart{}, err
	}
	doc := fromDomainCart(cart)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}
	if _, err := r.base.Set(ctx, id, doc); err != nil {
		return domain.Cart{}, err
	}
	return toDomainCart(id, doc), nil
}

func (r *CartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	id, err := requireID("carts.get", userID)
	if err != nil {
		return domain.Cart{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}
	return toDomainCart(doc.ID, doc.Data), nil
}

func (r *CartRepository) ReplaceItems(ctx context.Context, userID string, items []domain.CartItem) (domain.Cart, error) {
	id, err := requireID("carts.replace_items", userID)
	if err != nil {
		return domain.Cart{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Cart{}, err
	}

	updated := doc.Data
	updated.Items = nil
	for _, item := range items {
		updated.Items = append(updated.Items, fromDomainCartItem(item))
	}
	updated.Estimate = nil
	updated.UpdatedAt = time.Now().UTC()

	if _, err := r.base.Set(ctx, id, updated); err != nil {
		return domain.Cart{}, err
	}
	return toDomainCart(id, updated), nil
}

func (r *CartRepository) Delete(ctx context.Context, userID string) error {
	id, err := requireID("carts.delete", userID)
	if err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("carts.delete", err)
	}
	return nil
}

func cartOwnerID(cart domain.Cart) string {
	if id := strings.TrimSpace(cart.UserID); id != "" {
		return id
	}
	if id := strings.TrimSpace(cart.SessionID); id != "" {
		return id
	}
	return strings.TrimSpace(cart.ID)
}

func fromDomainCart(cart domain.Cart) cartDocument {
	doc := cartDocument{
		UserID:     strings.TrimSpace(cart.UserID),
		SessionID:  strings.TrimSpace(cart.SessionID),
		Currency:   strings.ToUpper(strings.TrimSpace(cart.Currency)),
		CouponCode: cart.CouponCode,
		UpdatedAt:  cart.UpdatedAt.UTC(),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, fromDomainCartItem(item))
	}
	if cart.Estimate != nil {
		est := cartEstimateDocument(*cart.Estimate)
		doc.Estimate = &est
	}
	return doc
}

func fromDomainCartItem(item domain.CartItem) cartItemDocument {
	doc := cartItemDocument{
		ID:           item.ID,
		ProductID:    item.ProductID,
		SKU:          item.SKU,
		Title:        item.Title,
		Image:        item.Image,
		Quantity:     item.Quantity,
		UnitPrice:    item.UnitPrice,
		ReturnPolicy: returnPolicyDocument(item.ReturnPolicy),
		AddedAt:      item.AddedAt.UTC(),
		UpdatedAt:    item.UpdatedAt,
	}
	if item.Discount != nil {
		doc.Discount = &discountDocument{Type: string(item.Discount.Type), Value: item.Discount.Value}
	}
	if item.Shipping != nil {
		shipping := shippingPolicyDocument(*item.Shipping)
		doc.Shipping = &shipping
	}
	return doc
}

func toDomainCart(id string, doc cartDocument) domain.Cart {
	cart := domain.Cart{
		ID:         id,
		UserID:     doc.UserID,
		SessionID:  doc.SessionID,
		Currency:   doc.Currency,
		CouponCode: doc.CouponCode,
		UpdatedAt:  doc.UpdatedAt,
	}
	for _, item := range doc.Items {
		cart.Items = append(cart.Items, toDomainCartItem(item))
	}
	if doc.Estimate != nil {
		est := domain.CartEstimate(*doc.Estimate)
		cart.Estimate = &est
	}
	return cart
}

func toDomainCartItem(doc cartItemDocument) domain.CartItem {
	item := domain.CartItem{
		ID:           doc.ID,
		ProductID:    doc.ProductID,
		SKU:          doc.SKU,
		Title:        doc.Title,
		Image:        doc.Image,
		Quantity:     doc.Quantity,
		UnitPrice:    doc.UnitPrice,
		ReturnPolicy: domain.ReturnPolicy(doc.ReturnPolicy),
		AddedAt:      doc.AddedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if doc.Discount != nil {
		item.Discount = &domain.Discount{Type: domain.DiscountType(doc.Discount.Type), Value: doc.Discount.Value}
	}
	if doc.Shipping != nil {
		shipping := domain.ShippingPolicy(*doc.Shipping)
		item.Shipping = &shipping
	}
	return item
}
