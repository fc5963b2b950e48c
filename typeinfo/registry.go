package typeinfo

import (
	"reflect"
	"sort"
	"sync"
)

// Registry is a Provider and Hierarchy populated by explicit registration.
// NewRegistry returns one that already knows the builtin types.
type Registry struct {
	mu        sync.RWMutex
	contracts map[reflect.Type]*Contract
	bases     map[reflect.Type][]Base
}

// NewRegistry returns a registry with the builtin contracts installed.
func NewRegistry() *Registry {
	r := &Registry{
		contracts: make(map[reflect.Type]*Contract),
		bases:     make(map[reflect.Type][]Base),
	}
	registerBuiltins(r)
	return r
}

// Contract implements Provider.
func (r *Registry) Contract(t reflect.Type) (*Contract, error) {
	r.mu.RLock()
	c, ok := r.contracts[t]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnsupportedTypeError{Type: t, Err: ErrNoContract}
	}
	return c, nil
}

// Bases implements Hierarchy.
func (r *Registry) Bases(t reflect.Type) []Base {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.bases[t]
}

// Register installs c for t, replacing any earlier contract. Caches built
// over the registry keep serving the old contract until cleared.
func (r *Registry) Register(t reflect.Type, c *Contract) {
	r.mu.Lock()
	r.contracts[t] = c
	r.mu.Unlock()
}

// ObjectPart is a Member or an Option passed to RegisterObject.
type ObjectPart interface {
	applyObject(c *Contract)
}

func (m Member) applyObject(c *Contract) { c.Members = append(c.Members, m) }

// Option adjusts a contract at registration time.
type Option func(c *Contract)

func (o Option) applyObject(c *Contract) { o(c) }

// WithPolymorphism attaches derived type mappings to the registered type.
func WithPolymorphism(p Polymorphism) Option {
	return func(c *Contract) {
		pp := p
		pp.Derived = append([]DerivedType(nil), p.Derived...)
		c.Polymorphism = &pp
	}
}

// MemberOption adjusts a single member.
type MemberOption func(m *Member)

// Required marks the member as mandatory on read.
func Required() MemberOption { return func(m *Member) { m.Required = true } }

// OmitNil skips the member on write when its value is nil.
func OmitNil() MemberOption { return func(m *Member) { m.OmitNil = true } }

// WireName fixes the wire name, bypassing the naming policy.
func WireName(name string) MemberOption { return func(m *Member) { m.WireName = name } }

// Field declares a read/write member of *T.
func Field[T, F any](name string, get func(*T) F, set func(*T, F), opts ...MemberOption) Member {
	m := Member{
		Name: name,
		Type: reflect.TypeOf((*F)(nil)).Elem(),
		Get:  func(obj any) any { return get(obj.(*T)) },
		Set:  func(obj any, v any) { set(obj.(*T), as[F](v)) },
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// Getter declares a read-only member of *T. It is written but skipped on
// read.
func Getter[T, F any](name string, get func(*T) F, opts ...MemberOption) Member {
	m := Member{
		Name: name,
		Type: reflect.TypeOf((*F)(nil)).Elem(),
		Get:  func(obj any) any { return get(obj.(*T)) },
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

// RegisterObject registers *T as an object built from the given members.
func RegisterObject[T any](r *Registry, parts ...ObjectPart) {
	c := &Contract{
		Kind:  KindObject,
		New:   func() any { return new(T) },
		IsNil: func(v any) bool { p, _ := v.(*T); return p == nil },
	}
	for _, p := range parts {
		p.applyObject(c)
	}
	r.Register(reflect.TypeOf((**T)(nil)).Elem(), c)
}

// RegisterSlice registers []E as a collection.
func RegisterSlice[E any](r *Registry, opts ...Option) {
	c := &Contract{
		Kind:          KindCollection,
		Elem:          reflect.TypeOf((*E)(nil)).Elem(),
		IsNil:         func(v any) bool { s, _ := v.([]E); return s == nil },
		NewCollection: func(n int) any { return make([]E, 0, n) },
		Len:           func(v any) int { return len(v.([]E)) },
		Index:         func(v any, i int) any { return v.([]E)[i] },
		Append:        func(v any, e any) any { return append(v.([]E), as[E](e)) },
	}
	apply(c, opts)
	r.Register(reflect.TypeOf((*[]E)(nil)).Elem(), c)
}

// RegisterMap registers map[string]V as a dictionary.
func RegisterMap[V any](r *Registry, opts ...Option) {
	c := &Contract{
		Kind:          KindDictionary,
		Elem:          reflect.TypeOf((*V)(nil)).Elem(),
		IsNil:         func(v any) bool { m, _ := v.(map[string]V); return m == nil },
		NewDictionary: func() any { return make(map[string]V) },
		Keys: func(v any) []string {
			m := v.(map[string]V)
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			return keys
		},
		Lookup: func(v any, k string) (any, bool) {
			e, ok := v.(map[string]V)[k]
			return e, ok
		},
		Store: func(v any, k string, e any) { v.(map[string]V)[k] = as[V](e) },
	}
	apply(c, opts)
	r.Register(reflect.TypeOf((*map[string]V)(nil)).Elem(), c)
}

// RegisterPrimitive registers T as a scalar with the given conversions.
func RegisterPrimitive[T any](r *Registry, enc func(T) (Scalar, error), dec func(Scalar) (T, error)) {
	r.Register(reflect.TypeOf((*T)(nil)).Elem(), primitive(enc, dec))
}

func primitive[T any](enc func(T) (Scalar, error), dec func(Scalar) (T, error)) *Contract {
	return &Contract{
		Kind:   KindPrimitive,
		Encode: func(v any) (Scalar, error) { return enc(v.(T)) },
		Decode: func(s Scalar) (any, error) {
			v, err := dec(s)
			if err != nil {
				return nil, err
			}
			return v, nil
		},
	}
}

// RegisterInterface registers the interface type I. Values are written by
// their runtime type; reading requires a polymorphism option naming the
// concrete types.
func RegisterInterface[I any](r *Registry, opts ...Option) {
	c := &Contract{Kind: KindDynamic}
	apply(c, opts)
	r.Register(reflect.TypeOf((*I)(nil)).Elem(), c)
}

// DeclareBase records B as a base of T. upcast views a T as its B part.
func DeclareBase[T, B any](r *Registry, upcast func(T) B) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b := Base{
		Type:   reflect.TypeOf((*B)(nil)).Elem(),
		Upcast: func(v any) any { return upcast(v.(T)) },
	}
	r.mu.Lock()
	r.bases[t] = append(r.bases[t], b)
	r.mu.Unlock()
}

func apply(c *Contract, opts []Option) {
	for _, o := range opts {
		o(c)
	}
}

// as converts a decoded value to F; nil becomes the zero value.
func as[F any](v any) F {
	if v == nil {
		var zero F
		return zero
	}
	return v.(F)
}
