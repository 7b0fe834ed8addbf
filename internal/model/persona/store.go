package persona

// Store exposes persona lookups for renderers and HTTP handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// Catalog is a read-only Store that keeps the seed order for listing.
type Catalog struct {
	order []Persona
	byID  map[string]Persona
}

// NewCatalog indexes the supplied personas. Later duplicates replace earlier ones.
func NewCatalog(items []Persona) *Catalog {
	c := &Catalog{byID: make(map[string]Persona, len(items))}
	for _, item := range items {
		if _, dup := c.byID[item.ID]; !dup {
			c.order = append(c.order, item)
		}
		c.byID[item.ID] = item
	}
	for i, item := range c.order {
		c.order[i] = c.byID[item.ID]
	}
	return c
}

// List returns the personas in seed order.
func (c *Catalog) List() []Persona {
	return append([]Persona(nil), c.order...)
}

// FindByID looks up a persona by identifier.
func (c *Catalog) FindByID(id string) (Persona, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// LabelFor returns the bubble heading for a persona id, or "" when unknown.
func LabelFor(s Store, id string) string {
	if s == nil || id == "" {
		return ""
	}
	p, ok := s.FindByID(id)
	if !ok {
		return ""
	}
	return p.Label()
}
