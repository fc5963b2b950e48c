package typeinfo

import (
	"reflect"
	"sort"
)

// Derived is the mapping chosen for a runtime value of a nominal type.
type Derived struct {
	// Desc describes the value after Upcast has been applied.
	Desc *Descriptor
	// ID is the discriminator to write; empty when the value is written
	// without one.
	ID string
	// Upcast converts the runtime value to Desc's type; nil means identity.
	Upcast func(v any) any
	// Mapped is false when no registered mapping matched and the result is a
	// fallback.
	Mapped bool
}

type derivedKey struct {
	nominal reflect.Type
	runtime reflect.Type
}

type derivedEntry struct {
	res Derived
	err error
}

// ResolveDerived picks the mapping used to write a value whose runtime type
// differs from its nominal type. The exact mapping wins; otherwise the
// nominal type's unknown-derived handling decides between failing, falling
// back to the nominal type and searching the nearest mapped ancestor. Results
// and failures are cached per (nominal, runtime) pair.
func (c *Cache) ResolveDerived(nominal *Descriptor, runtime reflect.Type) (Derived, error) {
	key := derivedKey{nominal.Type, runtime}
	if v, ok := c.derived.Load(key); ok {
		de := v.(*derivedEntry)
		return de.res, de.err
	}
	gen := c.gen.Load()
	de := c.resolveDerived(nominal, runtime)
	if c.gen.Load() == gen {
		v, _ := c.derived.LoadOrStore(key, de)
		de = v.(*derivedEntry)
	}
	return de.res, de.err
}

func (c *Cache) resolveDerived(nominal *Descriptor, rt reflect.Type) *derivedEntry {
	p := nominal.Poly
	if p == nil {
		return c.runtimeEntry(rt, "", false)
	}
	if id, ok := p.byType[rt]; ok {
		return c.runtimeEntry(rt, id, true)
	}
	switch p.Unknown {
	case FallBackToBase:
		return c.fallBack(nominal, rt)
	case FallBackToNearestAncestor:
		if de := c.nearestBase(nominal, rt); de != nil {
			return de
		}
		if de := c.nearestInterface(nominal, rt); de != nil {
			return de
		}
		return c.fallBack(nominal, rt)
	}
	return &derivedEntry{err: &UnknownDerivedError{Nominal: nominal.Type, Runtime: rt}}
}

func (c *Cache) runtimeEntry(rt reflect.Type, id string, mapped bool) *derivedEntry {
	d, err := c.Resolve(rt)
	if err != nil {
		return &derivedEntry{err: err}
	}
	return &derivedEntry{res: Derived{Desc: d, ID: id, Mapped: mapped}}
}

// fallBack writes the value as the nominal type: interfaces dispatch on the
// runtime contract without a discriminator, concrete nominal types need a
// declared base path to upcast through.
func (c *Cache) fallBack(nominal *Descriptor, rt reflect.Type) *derivedEntry {
	if nominal.Interface() {
		return c.runtimeEntry(rt, "", false)
	}
	var found *derivedEntry
	c.walkBases(rt, func(b reflect.Type, up func(any) any, _ int) bool {
		if b == nominal.Type {
			found = &derivedEntry{res: Derived{Desc: nominal, Upcast: up}}
			return true
		}
		return false
	})
	if found == nil {
		return &derivedEntry{err: &UnknownDerivedError{Nominal: nominal.Type, Runtime: rt}}
	}
	return found
}

type baseCandidate struct {
	t  reflect.Type
	id string
	up func(any) any
}

// nearestBase collects the mapped bases at the smallest distance from rt
// and drops those that another candidate derives from. One survivor
// resolves; several are ambiguous.
func (c *Cache) nearestBase(nominal *Descriptor, rt reflect.Type) *derivedEntry {
	var cands []baseCandidate
	level := -1
	c.walkBases(rt, func(b reflect.Type, up func(any) any, depth int) bool {
		if level >= 0 && depth > level {
			return true
		}
		id, ok := nominal.Poly.byType[b]
		if !ok {
			return false
		}
		level = depth
		cands = append(cands, baseCandidate{t: b, id: id, up: up})
		return false
	})

	var minimal []baseCandidate
	for i, x := range cands {
		general := false
		for j, o := range cands {
			if i != j && c.derivesFrom(o.t, x.t) && !c.derivesFrom(x.t, o.t) {
				general = true
				break
			}
		}
		if !general {
			minimal = append(minimal, x)
		}
	}
	switch len(minimal) {
	case 0:
		return nil
	case 1:
		m := minimal[0]
		d, err := c.Resolve(m.t)
		if err != nil {
			return &derivedEntry{err: err}
		}
		return &derivedEntry{res: Derived{Desc: d, ID: m.id, Upcast: m.up, Mapped: true}}
	}
	types := make([]reflect.Type, len(minimal))
	for i, m := range minimal {
		types[i] = m.t
	}
	return ambiguous(nominal, rt, types)
}

// derivesFrom reports whether base is among the declared ancestors of t.
func (c *Cache) derivesFrom(t, base reflect.Type) bool {
	found := false
	c.walkBases(t, func(b reflect.Type, _ func(any) any, _ int) bool {
		found = b == base
		return found
	})
	return found
}

// walkBases visits the declared bases of rt breadth first, nearest first,
// with the composed upcast from rt and the distance from rt (1 for direct
// bases). visit returns true to stop.
func (c *Cache) walkBases(rt reflect.Type, visit func(t reflect.Type, up func(any) any, depth int) bool) {
	h, ok := c.provider.(Hierarchy)
	if !ok {
		return
	}
	type step struct {
		t     reflect.Type
		up    func(any) any
		depth int
	}
	seen := map[reflect.Type]bool{rt: true}
	queue := []step{{t: rt}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, b := range h.Bases(cur.t) {
			if seen[b.Type] {
				continue
			}
			seen[b.Type] = true
			next := step{t: b.Type, up: compose(cur.up, b.Upcast), depth: cur.depth + 1}
			if visit(next.t, next.up, next.depth) {
				return
			}
			queue = append(queue, next)
		}
	}
}

func compose(first, then func(any) any) func(any) any {
	if first == nil {
		return then
	}
	if then == nil {
		return first
	}
	return func(v any) any { return then(first(v)) }
}

// nearestInterface looks for derived mappings of interface types that rt
// implements and keeps the most specific ones: a candidate is dropped when
// another candidate implements it. One survivor resolves; several are
// ambiguous.
func (c *Cache) nearestInterface(nominal *Descriptor, rt reflect.Type) *derivedEntry {
	var cands []DerivedType
	for _, dt := range nominal.Poly.derived {
		if dt.Type.Kind() == reflect.Interface && rt.Implements(dt.Type) {
			cands = append(cands, dt)
		}
	}
	minimal := mostSpecific(cands)
	switch len(minimal) {
	case 0:
		return nil
	case 1:
		return c.runtimeEntry(rt, minimal[0].ID, true)
	}
	types := make([]reflect.Type, len(minimal))
	for i, m := range minimal {
		types[i] = m.Type
	}
	return ambiguous(nominal, rt, types)
}

func ambiguous(nominal *Descriptor, rt reflect.Type, types []reflect.Type) *derivedEntry {
	sort.Slice(types, func(i, j int) bool { return types[i].String() < types[j].String() })
	return &derivedEntry{err: &AmbiguousMappingError{Nominal: nominal.Type, Runtime: rt, Candidates: types}}
}

func mostSpecific(cands []DerivedType) []DerivedType {
	var out []DerivedType
	for i, c := range cands {
		general := false
		for j, o := range cands {
			if i != j && o.Type.Implements(c.Type) && !c.Type.Implements(o.Type) {
				general = true
				break
			}
		}
		if !general {
			out = append(out, c)
		}
	}
	return out
}
