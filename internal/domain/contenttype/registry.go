package contenttype

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Registry maps models and table names to stable content type identifiers.
// Rows are created on first use and cached for the lifetime of the process.
type Registry struct {
	db *gorm.DB

	mu      sync.RWMutex
	byID    map[int64]ContentType
	byTable map[string]ContentType
}

func NewRegistry(db *gorm.DB) *Registry {
	return &Registry{
		db:      db,
		byID:    make(map[int64]ContentType),
		byTable: make(map[string]ContentType),
	}
}

// IdentifierFor returns the content type id of a gorm model (pointer or value).
func (r *Registry) IdentifierFor(ctx context.Context, model any) (int64, error) {
	stmt := &gorm.Statement{DB: r.db}
	if err := stmt.Parse(model); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnknownModel, err)
	}
	if stmt.Schema == nil || stmt.Schema.Table == "" {
		return 0, ErrUnknownModel
	}

	ct, err := r.ensure(ctx, stmt.Schema.Table, stmt.Schema.Name)
	if err != nil {
		return 0, err
	}
	return ct.ID, nil
}

// ByTable returns the content type registered for a table, creating it if needed.
func (r *Registry) ByTable(ctx context.Context, table string) (ContentType, error) {
	table = strings.TrimSpace(table)
	if table == "" {
		return ContentType{}, ErrNotFound
	}
	return r.ensure(ctx, table, "")
}

// Lookup returns an already registered content type without creating one.
func (r *Registry) Lookup(ctx context.Context, table string) (ContentType, error) {
	if ct, ok := r.cachedTable(table); ok {
		return ct, nil
	}

	var ct ContentType
	err := r.db.WithContext(ctx).Where("db_table = ?", table).First(&ct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ContentType{}, ErrNotFound
	}
	if err != nil {
		return ContentType{}, err
	}
	r.remember(ct)
	return ct, nil
}

func (r *Registry) Get(ctx context.Context, id int64) (ContentType, error) {
	r.mu.RLock()
	ct, ok := r.byID[id]
	r.mu.RUnlock()
	if ok {
		return ct, nil
	}

	err := r.db.WithContext(ctx).First(&ct, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ContentType{}, ErrNotFound
	}
	if err != nil {
		return ContentType{}, err
	}
	r.remember(ct)
	return ct, nil
}

func (r *Registry) TableNameFor(ctx context.Context, id int64) (string, error) {
	ct, err := r.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return ct.DBTable, nil
}

func (r *Registry) ensure(ctx context.Context, table, model string) (ContentType, error) {
	if ct, ok := r.cachedTable(table); ok {
		return ct, nil
	}

	appLabel, modelName := splitTable(table)
	if model != "" {
		modelName = strings.ToLower(model)
	}

	candidate := ContentType{AppLabel: appLabel, Model: modelName, DBTable: table}
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&candidate).Error; err != nil {
		return ContentType{}, err
	}

	var ct ContentType
	if err := db.Where("db_table = ?", table).First(&ct).Error; err != nil {
		return ContentType{}, err
	}
	r.remember(ct)
	return ct, nil
}

func (r *Registry) cachedTable(table string) (ContentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ct, ok := r.byTable[table]
	return ct, ok
}

func (r *Registry) remember(ct ContentType) {
	r.mu.Lock()
	r.byID[ct.ID] = ct
	r.byTable[ct.DBTable] = ct
	r.mu.Unlock()
}

// splitTable derives app label and model from tables named "<app>_<model>".
func splitTable(table string) (string, string) {
	if i := strings.Index(table, "_"); i > 0 && i < len(table)-1 {
		return table[:i], table[i+1:]
	}
	return table, table
}

// IDForTable is ByTable reduced to the identifier.
func (r *Registry) IDForTable(ctx context.Context, table string) (int64, error) {
	ct, err := r.ByTable(ctx, table)
	if err != nil {
		return 0, err
	}
	return ct.ID, nil
}

// LookupID is Lookup reduced to the identifier.
func (r *Registry) LookupID(ctx context.Context, table string) (int64, error) {
	ct, err := r.Lookup(ctx, table)
	if err != nil {
		return 0, err
	}
	return ct.ID, nil
}
