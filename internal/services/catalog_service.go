package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/glowcart/api/internal/domain"
	"github.com/glowcart/api/internal/repositories"
)

const productIDPrefix = "prod_"

var productSlugSanitizer = regexp.MustCompile(`[^a-z0-9]+`)

var (
	// ErrCatalogInvalidInput indicates the caller supplied invalid product data.
	ErrCatalogInvalidInput = errors.New("catalog service: invalid input")
	// ErrCatalogProductNotFound indicates no product matches the identifier.
	ErrCatalogProductNotFound = errors.New("catalog service: product not found")
	// ErrCatalogConflict indicates a slug or SKU collision.
	ErrCatalogConflict = errors.New("catalog service: conflict")
	// ErrCatalogUnavailable indicates the catalog backend cannot be reached.
	ErrCatalogUnavailable = errors.New("catalog service: unavailable")
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Products    repositories.ProductRepository
	Audit       AuditLogService
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	repo  repositories.ProductRepository
	audit AuditLogService
	clock func() time.Time
	newID func() string
}

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errors.New("catalog service: product repository is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}
	return &catalogService{
		repo:  deps.Products,
		audit: deps.Audit,
		clock: func() time.Time { return clock().UTC() },
		newID: idGen,
	}, nil
}

func (s *catalogService) ListProducts(ctx context.Context, filter ProductListFilter) (domain.CursorPage[Product], error) {
	page, err := s.repo.List(ctx, filter)
	if err != nil {
		return domain.CursorPage[Product]{}, s.translateRepoError(err)
	}
	return page, nil
}

func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (Product, error) {
	normalized := normalizeProductSlug(slug)
	if normalized == "" {
		return Product{}, fmt.Errorf("%w: slug is required", ErrCatalogInvalidInput)
	}

	product, err := s.repo.FindBySlug(ctx, normalized)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	id := strings.TrimSpace(productID)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

func (s *catalogService) CreateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	product, err := s.normalizeProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}

	now := s.clock()
	product.ID = productIDPrefix + s.newID()
	product.CreatedAt = now
	product.UpdatedAt = now

	if err := s.repo.Insert(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.recordAudit(ctx, cmd.ActorID, "catalog.product.created", product.ID)
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpsertProductCommand) (Product, error) {
	id := strings.TrimSpace(cmd.Product.ID)
	if id == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	product, err := s.normalizeProduct(cmd.Product)
	if err != nil {
		return Product{}, err
	}
	product.ID = existing.ID
	product.CreatedAt = existing.CreatedAt
	product.UpdatedAt = s.clock()

	if err := s.repo.Update(ctx, product); err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.recordAudit(ctx, cmd.ActorID, "catalog.product.updated", product.ID)
	return product, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	id := strings.TrimSpace(productID)
	if id == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

// normalizeProduct trims, lowercases the slug, validates money fields, and
// fills policy defaults so products never reach the storefront half-formed.
func (s *catalogService) normalizeProduct(product Product) (Product, error) {
	product.Title = strings.TrimSpace(product.Title)
	product.SKU = strings.ToUpper(strings.TrimSpace(product.SKU))
	product.Brand = strings.TrimSpace(product.Brand)
	product.Category = strings.TrimSpace(product.Category)
	product.Currency = strings.ToUpper(strings.TrimSpace(product.Currency))

	if product.Title == "" {
		return Product{}, fmt.Errorf("%w: title is required", ErrCatalogInvalidInput)
	}
	if product.SKU == "" {
		return Product{}, fmt.Errorf("%w: sku is required", ErrCatalogInvalidInput)
	}
	if product.Price < 0 {
		return Product{}, fmt.Errorf("%w: price is negative", ErrCatalogInvalidInput)
	}
	if product.Stock < 0 {
		return Product{}, fmt.Errorf("%w: stock is negative", ErrCatalogInvalidInput)
	}

	if product.Slug == "" {
		product.Slug = normalizeProductSlug(product.Title)
	} else {
		product.Slug = normalizeProductSlug(product.Slug)
	}
	if product.Slug == "" {
		return Product{}, fmt.Errorf("%w: slug is required", ErrCatalogInvalidInput)
	}

	switch product.Status {
	case domain.ProductStatusDraft, domain.ProductStatusActive, domain.ProductStatusArchived:
	case "":
		product.Status = domain.ProductStatusDraft
	default:
		return Product{}, fmt.Errorf("%w: unknown status %q", ErrCatalogInvalidInput, product.Status)
	}

	if product.Discount != nil {
		switch product.Discount.Type {
		case domain.DiscountTypePercentage:
			if product.Discount.Value < 0 || product.Discount.Value > 100 {
				return Product{}, fmt.Errorf("%w: percentage discount out of range", ErrCatalogInvalidInput)
			}
		case domain.DiscountTypeFixed:
			if product.Discount.Value < 0 {
				return Product{}, fmt.Errorf("%w: fixed discount is negative", ErrCatalogInvalidInput)
			}
		default:
			return Product{}, fmt.Errorf("%w: unknown discount type %q", ErrCatalogInvalidInput, product.Discount.Type)
		}
	}

	if product.Shipping != nil {
		if product.Shipping.Charges < 0 || product.Shipping.FreeShippingThreshold < 0 || product.Shipping.FreeShippingMinQuantity < 0 {
			return Product{}, fmt.Errorf("%w: shipping policy has negative values", ErrCatalogInvalidInput)
		}
	}

	// Products ship returnable with the default window unless explicitly
	// opted out.
	if product.ReturnPolicy.Returnable && product.ReturnPolicy.ReturnWindowDays <= 0 {
		product.ReturnPolicy.ReturnWindowDays = domain.DefaultReturnWindowDays
	}

	return product, nil
}

func (s *catalogService) recordAudit(ctx context.Context, actorID, action, entityID string) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditLogRecord{
		Actor:     actorID,
		ActorType: "staff",
		Action:    action,
		TargetRef: "product/" + entityID,
	})
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", ErrCatalogProductNotFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", ErrCatalogConflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
		}
	}
	return err
}

func normalizeProductSlug(raw string) string {
	slug := strings.ToLower(strings.TrimSpace(raw))
	slug = productSlugSanitizer.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
