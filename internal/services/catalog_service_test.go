package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/glowcart/api/internal/domain"
)

func newTestCatalogService(t *testing.T, products *stubProductRepository) CatalogService {
	t.Helper()
	svc, err := NewCatalogService(CatalogServiceDeps{
		Products:    products,
		Clock:       func() time.Time { return time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC) },
		IDGenerator: func() string { return "01TESTULID" },
	})
	if err != nil {
		t.Fatalf("new catalog service: %v", err)
	}
	return svc
}

func TestCatalogServiceCreateProductNormalizes(t *testing.T) {
	var inserted domain.Product
	products := &stubProductRepository{
		insertFn: func(_ context.Context, product domain.Product) error {
			inserted = product
			return nil
		},
	}
	svc := newTestCatalogService(t, products)

	product, err := svc.CreateProduct(context.Background(), UpsertProductCommand{
		Product: Product{
			Title:        "  Vitamin C Serum  ",
			SKU:          " serum-30 ",
			Price:        129900,
			Currency:     "inr",
			Stock:        25,
			ReturnPolicy: domain.ReturnPolicy{Returnable: true},
		},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	if product.ID != "prod_01TESTULID" {
		t.Fatalf("unexpected id %s", product.ID)
	}
	if product.Slug != "vitamin-c-serum" {
		t.Fatalf("expected derived slug got %s", product.Slug)
	}
	if product.SKU != "SERUM-30" || product.Currency != "INR" {
		t.Fatalf("expected normalization got %+v", product)
	}
	if product.Status != domain.ProductStatusDraft {
		t.Fatalf("expected draft default got %s", product.Status)
	}
	if product.ReturnPolicy.ReturnWindowDays != domain.DefaultReturnWindowDays {
		t.Fatalf("expected default return window got %d", product.ReturnPolicy.ReturnWindowDays)
	}
	if inserted.ID != product.ID {
		t.Fatalf("expected persisted product got %+v", inserted)
	}
}

func TestCatalogServiceCreateProductValidation(t *testing.T) {
	svc := newTestCatalogService(t, &stubProductRepository{})

	cases := []struct {
		name    string
		product Product
	}{
		{"missing title", Product{SKU: "X", Price: 100}},
		{"missing sku", Product{Title: "A", Price: 100}},
		{"negative price", Product{Title: "A", SKU: "X", Price: -1}},
		{"oversized percentage", Product{
			Title: "A", SKU: "X", Price: 100,
			Discount: &domain.Discount{Type: domain.DiscountTypePercentage, Value: 101},
		}},
		{"negative shipping", Product{
			Title: "A", SKU: "X", Price: 100,
			Shipping: &domain.ShippingPolicy{Charges: -1},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateProduct(context.Background(), UpsertProductCommand{Product: tc.product})
			if !errors.Is(err, ErrCatalogInvalidInput) {
				t.Fatalf("expected invalid input got %v", err)
			}
		})
	}
}

func TestCatalogServiceCreateProductSlugConflict(t *testing.T) {
	products := &stubProductRepository{
		insertFn: func(context.Context, domain.Product) error {
			return fakeRepoError{msg: "slug taken", conflict: true}
		},
	}
	svc := newTestCatalogService(t, products)

	_, err := svc.CreateProduct(context.Background(), UpsertProductCommand{
		Product: Product{Title: "Serum", SKU: "S1", Price: 100},
	})
	if !errors.Is(err, ErrCatalogConflict) {
		t.Fatalf("expected conflict got %v", err)
	}
}

func TestCatalogServiceUpdatePreservesCreatedAt(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var updated domain.Product
	products := &stubProductRepository{
		findByIDFn: func(context.Context, string) (domain.Product, error) {
			return domain.Product{ID: "prod_1", Title: "Old", SKU: "S1", Price: 100, CreatedAt: createdAt}, nil
		},
		updateFn: func(_ context.Context, product domain.Product) error {
			updated = product
			return nil
		},
	}
	svc := newTestCatalogService(t, products)

	product, err := svc.UpdateProduct(context.Background(), UpsertProductCommand{
		Product: Product{ID: "prod_1", Title: "New Name", SKU: "S1", Price: 200, Status: domain.ProductStatusActive},
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}

	if !product.CreatedAt.Equal(createdAt) {
		t.Fatalf("expected CreatedAt preserved got %v", product.CreatedAt)
	}
	if updated.Title != "New Name" || updated.Status != domain.ProductStatusActive {
		t.Fatalf("unexpected update %+v", updated)
	}
}

func TestCatalogServiceGetBySlugNormalizes(t *testing.T) {
	products := &stubProductRepository{
		findBySlugFn: func(_ context.Context, slug string) (domain.Product, error) {
			if slug != "vitamin-c-serum" {
				t.Fatalf("expected normalized slug got %q", slug)
			}
			return domain.Product{ID: "prod_1", Slug: slug}, nil
		},
	}
	svc := newTestCatalogService(t, products)

	if _, err := svc.GetProductBySlug(context.Background(), " Vitamin C Serum "); err != nil {
		t.Fatalf("get by slug: %v", err)
	}
}

func TestCatalogServiceGetProductNotFound(t *testing.T) {
	svc := newTestCatalogService(t, &stubProductRepository{})

	_, err := svc.GetProduct(context.Background(), "prod_missing")
	if !errors.Is(err, ErrCatalogProductNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
}
