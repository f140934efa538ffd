package service

import (
	"context"

	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/fjod/cosmic-backend/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) List(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *ProductService) Get(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := domain.ParseRef(id)
	if err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, oid)
}

// Search returns products whose name or description contains query,
// ignoring case. An empty query matches everything.
func (s *ProductService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	if query == "" {
		return s.repo.ListProducts(ctx)
	}
	return s.repo.SearchProducts(ctx, query)
}

func (s *ProductService) Create(ctx context.Context, product *domain.Product) error {
	if err := checkProduct(product); err != nil {
		return err
	}
	product.ID = primitive.NilObjectID
	return s.repo.CreateProduct(ctx, product)
}

// Update replaces every field of the product with id.
func (s *ProductService) Update(ctx context.Context, id string, product *domain.Product) error {
	oid, err := domain.ParseRef(id)
	if err != nil {
		return err
	}
	if err := checkProduct(product); err != nil {
		return err
	}
	product.ID = oid
	return s.repo.UpdateProduct(ctx, product)
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, err := domain.ParseRef(id)
	if err != nil {
		return err
	}
	return s.repo.DeleteProduct(ctx, oid)
}

func checkProduct(p *domain.Product) error {
	if p.Price < 0 || p.Stock < 0 {
		return ErrInvalidProduct
	}
	return nil
}
