package typeinfo

import (
	"reflect"
	"strconv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Config is the snapshot of options descriptors are built under.
type Config struct {
	Naming Naming
	Logger *zap.Logger
}

// Cache memoizes descriptors built from a Provider. It is safe for
// concurrent use.
type Cache struct {
	provider Provider
	cfg      Config
	log      *zap.Logger

	entries sync.Map // reflect.Type -> *entry
	derived sync.Map // derivedKey -> *derivedEntry
	group   singleflight.Group

	gen    atomic.Uint64
	builds atomic.Int64
}

type entry struct {
	t    reflect.Type
	desc *Descriptor
	err  error
}

// NewCache returns an empty cache over p.
func NewCache(p Provider, cfg Config) *Cache {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{provider: p, cfg: cfg, log: log}
}

// Config returns the configuration the cache builds under.
func (c *Cache) Config() Config { return c.cfg }

// Builds returns how many descriptors have been constructed, successful or
// not, since the cache was created.
func (c *Cache) Builds() int64 { return c.builds.Load() }

// Resolve returns the descriptor for t. The first lookup builds it; later
// lookups return the same descriptor, or the same error value when the build
// failed.
func (c *Cache) Resolve(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, &UnsupportedTypeError{Reason: "nil type"}
	}
	if v, ok := c.entries.Load(t); ok {
		e := v.(*entry)
		return e.desc, e.err
	}
	gen := c.gen.Load()
	key := strconv.FormatUint(gen, 10) + ":" + t.PkgPath() + ":" + t.String()
	v, _, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.entries.Load(t); ok {
			return v, nil
		}
		return c.commit(gen, c.build(t)), nil
	})
	e := v.(*entry)
	if e.t != t {
		// Distinct types can share a name; build outside the group.
		e = c.commit(gen, c.build(t))
	}
	return e.desc, e.err
}

// commit publishes e unless the cache was cleared while it was being built.
func (c *Cache) commit(gen uint64, e *entry) *entry {
	if c.gen.Load() != gen {
		return e
	}
	actual, _ := c.entries.LoadOrStore(e.t, e)
	return actual.(*entry)
}

func (c *Cache) build(t reflect.Type) (e *entry) {
	c.builds.Add(1)
	e = &entry{t: t}
	defer func() {
		if r := recover(); r != nil {
			e.desc, e.err = nil, &PanicError{Type: t, Value: r}
		}
		if e.err != nil {
			c.log.Debug("typeinfo: descriptor build failed", zap.Stringer("type", t), zap.Error(e.err))
			return
		}
		c.log.Debug("typeinfo: descriptor built",
			zap.Stringer("type", t),
			zap.Stringer("kind", e.desc.Kind),
			zap.Int("members", len(e.desc.Members)))
	}()
	ct, err := c.provider.Contract(t)
	if err != nil {
		e.err = err
		return e
	}
	e.desc, e.err = newDescriptor(t, ct, c.cfg.Naming)
	return e
}

// Clear drops every cached descriptor and derived resolution. Descriptors
// already handed out stay valid.
func (c *Cache) Clear() {
	c.gen.Add(1)
	n := 0
	c.entries.Range(func(k, _ any) bool {
		c.entries.Delete(k)
		n++
		return true
	})
	c.derived.Range(func(k, _ any) bool {
		c.derived.Delete(k)
		return true
	})
	c.log.Info("typeinfo: cache cleared", zap.Int("entries", n))
}
