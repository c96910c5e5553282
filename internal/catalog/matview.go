package catalog

import (
	"sync"

	"colonnade/internal/plan"
	"colonnade/internal/storage"
)

// MaterializedView pairs a stored query definition with the table holding
// its last refresh. The backing table is published under the view's name
// in the ordinary table namespace, so scans resolve a view exactly like a
// table; Stale flips when a base table changes after the last refresh.
type MaterializedView struct {
	Schema     string
	Name       string
	Definition *plan.Node
	BaseTables []string
	Backing    *storage.Table
	Stale      bool
}

// viewKey is the registry key for a materialized view.
func viewKey(schema, name string) string { return schema + "." + name }

type viewRegistry struct {
	mu    sync.Mutex
	views map[string]*MaterializedView
}

func newViewRegistry() *viewRegistry {
	return &viewRegistry{views: make(map[string]*MaterializedView)}
}

// baseTablesOf collects the (schema-local) table names a definition
// scans, the dependency set that drives staleness tracking.
func baseTablesOf(schema string, n *plan.Node) []string {
	seen := map[string]bool{}
	var out []string
	var walk func(*plan.Node)
	walk = func(cur *plan.Node) {
		if cur == nil {
			return
		}
		if cur.Kind == plan.NodeScan && cur.Schema == schema && !seen[cur.Table] {
			seen[cur.Table] = true
			out = append(out, cur.Table)
		}
		for _, c := range cur.Children() {
			walk(c)
		}
	}
	walk(n)
	return out
}

// CreateMaterializedView registers a view: the definition goes into the
// view registry and the backing table is published under the view's name
// so readers scan it like any table.
func (c *Catalog) CreateMaterializedView(schema, name string, def *plan.Node, backing *storage.Table, ifNotExists bool) error {
	if err := c.CreateTable(schema, name, backing, ifNotExists); err != nil {
		return err
	}
	c.views.mu.Lock()
	defer c.views.mu.Unlock()
	key := viewKey(schema, name)
	if _, exists := c.views.views[key]; exists && ifNotExists {
		return nil
	}
	c.views.views[key] = &MaterializedView{
		Schema:     schema,
		Name:       name,
		Definition: def,
		BaseTables: baseTablesOf(schema, def),
		Backing:    backing,
	}
	return nil
}

// MaterializedView returns a snapshot of the named view's state.
func (c *Catalog) MaterializedView(schema, name string) (MaterializedView, error) {
	c.views.mu.Lock()
	defer c.views.mu.Unlock()
	v, ok := c.views.views[viewKey(schema, name)]
	if !ok {
		return MaterializedView{}, &ErrNotFound{Kind: "materialized view", Name: schema + "." + name}
	}
	return *v, nil
}

// RefreshMaterializedView swaps in a freshly materialized backing table
// and clears the view's staleness.
func (c *Catalog) RefreshMaterializedView(schema, name string, backing *storage.Table) error {
	c.views.mu.Lock()
	v, ok := c.views.views[viewKey(schema, name)]
	if !ok {
		c.views.mu.Unlock()
		return &ErrNotFound{Kind: "materialized view", Name: schema + "." + name}
	}
	v.Backing = backing
	v.Stale = false
	c.views.mu.Unlock()

	ns, err := c.namespaceFor(schema, false)
	if err != nil {
		return err
	}
	ns.writeMu.Lock()
	defer ns.writeMu.Unlock()
	cur := *ns.tables.Load()
	next := make(schemaSnapshot, len(cur))
	for k, h := range cur {
		next[k] = h
	}
	next[name] = &TableHandle{Schema: schema, Name: name, Table: backing}
	ns.tables.Store(&next)
	return nil
}

// DropMaterializedView removes the view from the registry and its
// backing handle from the table namespace.
func (c *Catalog) DropMaterializedView(schema, name string, ifExists bool) error {
	c.views.mu.Lock()
	_, ok := c.views.views[viewKey(schema, name)]
	if !ok {
		c.views.mu.Unlock()
		if ifExists {
			return nil
		}
		return &ErrNotFound{Kind: "materialized view", Name: schema + "." + name}
	}
	delete(c.views.views, viewKey(schema, name))
	c.views.mu.Unlock()
	return c.DropTable(schema, name, ifExists)
}

// MarkStaleDependents flips Stale on every view whose definition scans
// (schema, table), called after a write lands in that table.
func (c *Catalog) MarkStaleDependents(schema, table string) {
	c.views.mu.Lock()
	defer c.views.mu.Unlock()
	for _, v := range c.views.views {
		if v.Schema != schema {
			continue
		}
		for _, base := range v.BaseTables {
			if base == table {
				v.Stale = true
				break
			}
		}
	}
}
