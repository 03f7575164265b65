package categories

import (
	"testing"

	"github.com/google/uuid"

	"github.com/recicar/marketplace-backend/pkg/db/models"
)

func TestBuildTree(t *testing.T) {
	rootID := uuid.New()
	childID := uuid.New()
	grandID := uuid.New()

	cats := []models.Category{
		{ID: rootID, Name: "Engine", Slug: "engine"},
		{ID: childID, ParentID: &rootID, Name: "Filters", Slug: "filters"},
		{ID: grandID, ParentID: &childID, Name: "Oil Filters", Slug: "oil-filters"},
		{ID: uuid.New(), Name: "Brakes", Slug: "brakes"},
	}

	tree := buildTree(cats)
	if len(tree) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(tree))
	}

	var engine *CategoryDTO
	for i := range tree {
		if tree[i].Slug == "engine" {
			engine = &tree[i]
		}
	}
	if engine == nil {
		t.Fatal("engine root missing")
	}
	if len(engine.Children) != 1 || engine.Children[0].Slug != "filters" {
		t.Fatalf("unexpected children: %+v", engine.Children)
	}
	if len(engine.Children[0].Children) != 1 || engine.Children[0].Children[0].Slug != "oil-filters" {
		t.Fatalf("unexpected grandchildren: %+v", engine.Children[0].Children)
	}
}

func TestSubtreeIDs(t *testing.T) {
	rootID := uuid.New()
	childID := uuid.New()
	grandID := uuid.New()
	otherID := uuid.New()

	cats := []models.Category{
		{ID: rootID},
		{ID: childID, ParentID: &rootID},
		{ID: grandID, ParentID: &childID},
		{ID: otherID},
	}

	ids := subtreeIDs(cats, rootID)
	if len(ids) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(ids))
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[rootID] || !seen[childID] || !seen[grandID] {
		t.Fatal("subtree is missing a node")
	}
	if seen[otherID] {
		t.Fatal("unrelated category leaked into subtree")
	}
}
