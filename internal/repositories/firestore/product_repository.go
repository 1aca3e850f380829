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

const productCollection = "products"

type productDocument struct {
	Slug         string                  `firestore:"slug"`
	SKU          string                  `firestore:"sku"`
	Title        string                  `firestore:"title"`
	Description  string                  `firestore:"description,omitempty"`
	Brand        string                  `firestore:"brand,omitempty"`
	Category     string                  `firestore:"category,omitempty"`
	Price        int64                   `firestore:"price"`
	Currency     string                  `firestore:"currency"`
	Discount     *discountDocument       `firestore:"discount,omitempty"`
	Shipping     *shippingPolicyDocument `firestore:"shipping,omitempty"`
	ReturnPolicy returnPolicyDocument    `firestore:"returnPolicy"`
	Stock        int                     `firestore:"stock"`
	Status       string                  `firestore:"status"`
	Images       []string                `firestore:"images,omitempty"`
	Tags         []string                `firestore:"tags,omitempty"`
	CreatedAt    time.Time               `firestore:"createdAt"`
	UpdatedAt    time.Time               `firestore:"updatedAt"`
}

// ProductRepository persists catalog entries in Firestore. Slug and SKU
// uniqueness is enforced by pre-write lookups inside a transaction.
type ProductRepository struct {
	base     *pfirestore.BaseRepository[productDocument]
	provider *pfirestore.Provider
}

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base:     pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
		provider: provider,
	}, nil
}

func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) error {
	id, err := requireID("products.insert", product.ID)
	if err != nil {
		return err
	}
	if err := r.ensureUnique(ctx, id, product.Slug, product.SKU); err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Create(ctx, fromDomainProduct(product)); err != nil {
		return pfirestore.WrapError("products.insert", err)
	}
	return nil
}

func (r *ProductRepository) Update(ctx context.Context, product domain.Product) error {
	id, err := requireID("products.update", product.ID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	if err := r.ensureUnique(ctx, id, product.Slug, product.SKU); err != nil {
		return err
	}
	_, err = r.base.Set(ctx, id, fromDomainProduct(product))
	return err
}

func (r *ProductRepository) Delete(ctx context.Context, productID string) error {
	id, err := requireID("products.delete", productID)
	if err != nil {
		return err
	}
	if _, err := r.base.Get(ctx, id); err != nil {
		return err
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := ref.Delete(ctx); err != nil {
		return pfirestore.WrapError("products.delete", err)
	}
	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	id, err := requireID("products.get", productID)
	if err != nil {
		return domain.Product{}, err
	}
	doc, err := r.base.Get(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return toDomainProduct(doc.ID, doc.Data), nil
}

func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	return r.findByField(ctx, "products.find_by_slug", "slug", strings.ToLower(strings.TrimSpace(slug)))
}

func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (domain.Product, error) {
	return r.findByField(ctx, "products.find_by_sku", "sku", strings.ToUpper(strings.TrimSpace(sku)))
}

func (r *ProductRepository) findByField(ctx context.Context, op string, field string, value string) (domain.Product, error) {
	if value == "" {
		return domain.Product{}, notFoundError(op, field+" is required")
	}
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where(field, "==", value).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, notFoundError(op, "no product with "+field+" "+value)
	}
	return toDomainProduct(docs[0].ID, docs[0].Data), nil
}

func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	startAfter, err := decodeCursor("products.list", filter.Pagination.PageToken)
	if err != nil {
		return domain.CursorPage[domain.Product]{}, err
	}

	build := func(q firestore.Query) firestore.Query {
		if len(filter.Status) > 0 {
			q = q.Where("status", "in", filter.Status)
		}
		if filter.Category != nil {
			q = q.Where("category", "==", strings.TrimSpace(*filter.Category))
		}
		if filter.Brand != nil {
			q = q.Where("brand", "==", strings.TrimSpace(*filter.Brand))
		}
		if len(filter.Tags) > 0 {
			q = q.Where("tags", "array-contains-any", filter.Tags)
		}
		q = q.OrderBy("createdAt", firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)
		return startAfterCreated(q, startAfter)
	}

	return queryPage(ctx, r.base, filter.Pagination.PageSize, build,
		toDomainProduct,
		func(id string, doc productDocument) []any {
			return []any{doc.CreatedAt.Format(time.RFC3339Nano), id}
		},
	)
}

// ensureUnique rejects writes that would duplicate another product's slug or SKU.
func (r *ProductRepository) ensureUnique(ctx context.Context, id string, slug string, sku string) error {
	slug = strings.ToLower(strings.TrimSpace(slug))
	sku = strings.ToUpper(strings.TrimSpace(sku))

	if slug != "" {
		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("slug", "==", slug).Limit(1)
		})
		if err != nil {
			return err
		}
		if len(docs) > 0 && docs[0].ID != id {
			return conflictError("products.insert", "slug "+slug+" already in use")
		}
	}
	if sku != "" {
		docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
			return q.Where("sku", "==", sku).Limit(1)
		})
		if err != nil {
			return err
		}
		if len(docs) > 0 && docs[0].ID != id {
			return conflictError("products.insert", "sku "+sku+" already in use")
		}
	}
	return nil
}

func fromDomainProduct(product domain.Product) productDocument {
	doc := productDocument{
		Slug:         strings.ToLower(strings.TrimSpace(product.Slug)),
		SKU:          strings.ToUpper(strings.TrimSpace(product.SKU)),
		Title:        strings.TrimSpace(product.Title),
		Description:  product.Description,
		Brand:        strings.TrimSpace(product.Brand),
		Category:     strings.TrimSpace(product.Category),
		Price:        product.Price,
		Currency:     strings.ToUpper(strings.TrimSpace(product.Currency)),
		ReturnPolicy: returnPolicyDocument(product.ReturnPolicy),
		Stock:        product.Stock,
		Status:       string(product.Status),
		Images:       product.Images,
		Tags:         product.Tags,
		CreatedAt:    product.CreatedAt.UTC(),
		UpdatedAt:    product.UpdatedAt.UTC(),
	}
	if product.Discount != nil {
		doc.Discount = &discountDocument{Type: string(product.Discount.Type), Value: product.Discount.Value}
	}
	if product.Shipping != nil {
		shipping := shippingPolicyDocument(*product.Shipping)
		doc.Shipping = &shipping
	}
	return doc
}

func toDomainProduct(id string, doc productDocument) domain.Product {
	product := domain.Product{
		ID:           id,
		Slug:         doc.Slug,
		SKU:          doc.SKU,
		Title:        doc.Title,
		Description:  doc.Description,
		Brand:        doc.Brand,
		Category:     doc.Category,
		Price:        doc.Price,
		Currency:     doc.Currency,
		ReturnPolicy: domain.ReturnPolicy(doc.ReturnPolicy),
		Stock:        doc.Stock,
		Status:       domain.ProductStatus(doc.Status),
		Images:       doc.Images,
		Tags:         doc.Tags,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
	if doc.Discount != nil {
		product.Discount = &domain.Discount{Type: domain.DiscountType(doc.Discount.Type), Value: doc.Discount.Value}
	}
	if doc.Shipping != nil {
		shipping := domain.ShippingPolicy(*doc.Shipping)
		product.Shipping = &shipping
	}
	return product
}
