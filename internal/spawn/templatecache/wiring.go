package templatecache

import (
	"context"
	"fmt"

	"github.com/pjanec/simhost/internal/lifecycle"
)

// LoadTemplate resolves disType's manifest from the cache and builds a
// lifecycle.TemplateEntry from it. The manifest only ever supplies the
// declarative half of a recipe (descriptor list, instance counts); apply
// stays a compiled function the caller supplies, since "how to stamp a
// component" is never something the manifest format can express.
func LoadTemplate(ctx context.Context, c *Cache, disType uint32, apply lifecycle.ApplyFunc) (lifecycle.TemplateEntry, error) {
	m, ok, err := c.GetByDisType(ctx, disType)
	if err != nil {
		return lifecycle.TemplateEntry{}, fmt.Errorf("templatecache: load template for dis_type %d: %w", disType, err)
	}
	if !ok {
		return lifecycle.TemplateEntry{}, &lifecycle.ErrMissingTemplate{DisType: disType}
	}
	counts := m.InstanceCounts
	return lifecycle.TemplateEntry{
		DisType:     m.DisType,
		Descriptors: m.Descriptors,
		InstanceCounter: func(_ uint32, descriptorType uint32) int {
			if n, ok := counts[descriptorType]; ok {
				return n
			}
			return 1
		},
		Apply: apply,
	}, nil
}

// RegisterFromManifest is the common one-shot wiring: resolve disType's
// manifest and register the resulting recipe on db in one call.
func RegisterFromManifest(ctx context.Context, c *Cache, db *lifecycle.TemplateDatabase, disType uint32, apply lifecycle.ApplyFunc) error {
	entry, err := LoadTemplate(ctx, c, disType, apply)
	if err != nil {
		return err
	}
	db.Register(entry)
	return nil
}
