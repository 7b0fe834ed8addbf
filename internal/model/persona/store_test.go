package persona_test

import (
	"testing"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/persona"
)

func TestCatalogKeepsSeedOrder(t *testing.T) {
	c := persona.NewCatalog(persona.Seed())
	list := c.List()
	if len(list) != 11 {
		t.Fatalf("expected 11 personas, got %d", len(list))
	}
	if list[0].ID != "nhor" || list[len(list)-1].ID != "boa_suja" {
		t.Fatalf("unexpected order: first=%s last=%s", list[0].ID, list[len(list)-1].ID)
	}
}

func TestCatalogDuplicateReplacesInPlace(t *testing.T) {
	c := persona.NewCatalog([]persona.Persona{
		{ID: "a", Name: "A"},
		{ID: "b", Name: "B"},
		{ID: "a", Name: "A2"},
	})
	list := c.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 personas, got %d", len(list))
	}
	if list[0].Name != "A2" {
		t.Fatalf("expected replaced entry first, got %s", list[0].Name)
	}
}

func TestLabelFor(t *testing.T) {
	c := persona.NewCatalog(persona.Seed())

	if got := persona.LabelFor(c, "seth"); got != "🛡 Seth" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := persona.LabelFor(c, "unknown"); got != "" {
		t.Fatalf("expected empty label for unknown persona, got %q", got)
	}
	if got := persona.LabelFor(nil, "seth"); got != "" {
		t.Fatalf("expected empty label for nil store, got %q", got)
	}
}
