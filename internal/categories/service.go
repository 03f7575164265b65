package categories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recicar/marketplace-backend/internal/catalog"
	"github.com/recicar/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/recicar/marketplace-backend/pkg/errors"
	"github.com/recicar/marketplace-backend/pkg/pagination"
)

// Service exposes the public category tree and category browsing.
type Service interface {
	ListTree(ctx context.Context) ([]CategoryDTO, error)
	ListProductsBySlug(ctx context.Context, slug string, params pagination.Params) (*pagination.Page[catalog.ProductDTO], error)
}

// CategoryDTO is one node of the public category tree.
type CategoryDTO struct {
	ID          uuid.UUID     `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description *string       `json:"description,omitempty"`
	Children    []CategoryDTO `json:"children,omitempty"`
}

type service struct {
	repo *Repository
}

// NewService constructs a category service instance.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("category repository required")
	}
	return &service{repo: repo}, nil
}

// ListTree returns the full category tree rooted at the top-level nodes.
func (s *service) ListTree(ctx context.Context) ([]CategoryDTO, error) {
	cats, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}
	return buildTree(cats), nil
}

// ListProductsBySlug pages through the active products of the category and
// all of its descendants.
func (s *service) ListProductsBySlug(ctx context.Context, slug string, params pagination.Params) (*pagination.Page[catalog.ProductDTO], error) {
	root, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading category")
	}

	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing categories")
	}

	ids := subtreeIDs(all, root.ID)
	products, total, err := s.repo.ListProducts(ctx, ids, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "listing category products")
	}

	page := pagination.NewPage(catalog.ToProductDTOs(products), params, total)
	return &page, nil
}

// buildTree assembles the parent/child hierarchy from the flat category list.
func buildTree(cats []models.Category) []CategoryDTO {
	byParent := map[uuid.UUID][]models.Category{}
	var roots []models.Category
	for _, c := range cats {
		if c.ParentID == nil {
			roots = append(roots, c)
			continue
		}
		byParent[*c.ParentID] = append(byParent[*c.ParentID], c)
	}

	var build func(c models.Category) CategoryDTO
	build = func(c models.Category) CategoryDTO {
		node := CategoryDTO{
			ID:          c.ID,
			Name:        c.Name,
			Slug:        c.Slug,
			Description: c.Description,
		}
		for _, child := range byParent[c.ID] {
			node.Children = append(node.Children, build(child))
		}
		return node
	}

	out := make([]CategoryDTO, 0, len(roots))
	for _, root := range roots {
		out = append(out, build(root))
	}
	return out
}

// subtreeIDs returns the id of the root plus every descendant.
func subtreeIDs(cats []models.Category, rootID uuid.UUID) []uuid.UUID {
	byParent := map[uuid.UUID][]uuid.UUID{}
	for _, c := range cats {
		if c.ParentID != nil {
			byParent[*c.ParentID] = append(byParent[*c.ParentID], c.ID)
		}
	}

	ids := []uuid.UUID{rootID}
	queue := []uuid.UUID{rootID}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		for _, child := range byParent[next] {
			ids = append(ids, child)
			queue = append(queue, child)
		}
	}
	return ids
}
