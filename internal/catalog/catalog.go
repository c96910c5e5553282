// Package catalog implements schema/table metadata lookup: resolving
// (schema, table) names to storage handles, and single-writer DDL that
// publishes a new immutable snapshot readers can keep using after the
// writer moves on. Ownership runs strictly downward (the catalog owns
// schemas, schemas own tables) and child components hold names/ids,
// never back-pointers.
package catalog

import (
	"fmt"
	"sync"
	"sync/atomic"

	"colonnade/internal/storage"
)

// TableHandle is what resolve() hands back: a stable reference to a table's
// storage and schema. Readers holding a TableHandle from before a DDL
// change keep seeing that table's prior state (storage.Table itself is
// mutated in place by append, which is the one form of write this layer
// allows outside of DDL).
type TableHandle struct {
	Schema string
	Name   string
	Table  *storage.Table
}

// schemaSnapshot is the immutable table-name -> handle map published by a
// DDL writer. Each namespace's tables field holds an atomic pointer to the current
// snapshot so readers never block on a mutex.
type schemaSnapshot map[string]*TableHandle

// namespace is one schema (database) within the catalog: a name and an
// atomically-swapped table snapshot.
type namespace struct {
	name    string
	tables  atomic.Pointer[schemaSnapshot]
	writeMu sync.Mutex // serializes DDL writers for this schema
}

func newNamespace(name string) *namespace {
	ns := &namespace{name: name}
	empty := schemaSnapshot{}
	ns.tables.Store(&empty)
	return ns
}

// Catalog maps schema-name -> namespace -> table-name -> TableHandle.
// DDL (create/drop) is single-writer per schema and publishes a new
// immutable handle; readers holding older handles continue to see the
// prior state until they call Resolve again.
type Catalog struct {
	mu         sync.RWMutex
	namespaces map[string]*namespace
	views      *viewRegistry
}

// New builds an empty catalog.
func New() *Catalog {
	return &Catalog{namespaces: make(map[string]*namespace), views: newViewRegistry()}
}

// ErrNotFound is wrapped by Resolve/DropTable when the named schema or
// table does not exist.
type ErrNotFound struct{ Kind, Name string }

func (e *ErrNotFound) Error() string { return fmt.Sprintf("catalog: %s %q not found", e.Kind, e.Name) }

// ErrAlreadyExists is wrapped by CreateTable when the table exists and
// ifNotExists is false.
type ErrAlreadyExists struct{ Kind, Name string }

func (e *ErrAlreadyExists) Error() string {
	return fmt.Sprintf("catalog: %s %q already exists", e.Kind, e.Name)
}

func (c *Catalog) namespaceFor(schema string, create bool) (*namespace, error) {
	c.mu.RLock()
	ns, ok := c.namespaces[schema]
	c.mu.RUnlock()
	if ok {
		return ns, nil
	}
	if !create {
		return nil, &ErrNotFound{Kind: "schema", Name: schema}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if ns, ok := c.namespaces[schema]; ok {
		return ns, nil
	}
	ns = newNamespace(schema)
	c.namespaces[schema] = ns
	return ns, nil
}

// CreateSchema registers an empty schema namespace if it does not already
// exist.
func (c *Catalog) CreateSchema(schema string) error {
	_, err := c.namespaceFor(schema, true)
	return err
}

// Resolve looks up a table by (schema, name).
func (c *Catalog) Resolve(schema, name string) (*TableHandle, error) {
	ns, err := c.namespaceFor(schema, false)
	if err != nil {
		return nil, err
	}
	snap := *ns.tables.Load()
	h, ok := snap[name]
	if !ok {
		return nil, &ErrNotFound{Kind: "table", Name: schema + "." + name}
	}
	return h, nil
}

// CreateTable publishes a new table under (schema, name). If ifNotExists is
// true and the table already exists, CreateTable succeeds with no effect.
func (c *Catalog) CreateTable(schema, name string, tbl *storage.Table, ifNotExists bool) error {
	ns, err := c.namespaceFor(schema, true)
	if err != nil {
		return err
	}
	ns.writeMu.Lock()
	defer ns.writeMu.Unlock()

	cur := *ns.tables.Load()
	if _, exists := cur[name]; exists {
		if ifNotExists {
			return nil
		}
		return &ErrAlreadyExists{Kind: "table", Name: schema + "." + name}
	}
	next := make(schemaSnapshot, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	next[name] = &TableHandle{Schema: schema, Name: name, Table: tbl}
	ns.tables.Store(&next)
	return nil
}

// DropTable removes a table. If ifExists is true and the table does not
// exist, DropTable succeeds with no effect.
func (c *Catalog) DropTable(schema, name string, ifExists bool) error {
	ns, err := c.namespaceFor(schema, false)
	if err != nil {
		if ifExists {
			return nil
		}
		return err
	}
	ns.writeMu.Lock()
	defer ns.writeMu.Unlock()

	cur := *ns.tables.Load()
	if _, exists := cur[name]; !exists {
		if ifExists {
			return nil
		}
		return &ErrNotFound{Kind: "table", Name: schema + "." + name}
	}
	next := make(schemaSnapshot, len(cur))
	for k, v := range cur {
		if k != name {
			next[k] = v
		}
	}
	ns.tables.Store(&next)
	return nil
}

// ListTables returns the current snapshot's table names for schema.
func (c *Catalog) ListTables(schema string) ([]string, error) {
	ns, err := c.namespaceFor(schema, false)
	if err != nil {
		return nil, err
	}
	snap := *ns.tables.Load()
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	return names, nil
}
