package typeinfo

import (
	"fmt"
	"reflect"
)

// Descriptor is the immutable, resolved form of a Contract.
type Descriptor struct {
	Type     reflect.Type
	Kind     Kind
	Contract *Contract
	// Members carry their final wire names.
	Members       []Member
	RequiredCount int
	Poly          *PolyInfo

	byName   map[string]int
	required []int
}

// Member returns the index of the member with the given wire name.
func (d *Descriptor) Member(name string) (int, bool) {
	i, ok := d.byName[name]
	return i, ok
}

// RequiredIndex returns the bit position of member i in a required set, or
// -1 when the member is optional.
func (d *Descriptor) RequiredIndex(i int) int {
	if d.required == nil {
		return -1
	}
	return d.required[i]
}

// RequiredMember returns the member owning required bit ri.
func (d *Descriptor) RequiredMember(ri int) *Member {
	for i, r := range d.required {
		if r == ri {
			return &d.Members[i]
		}
	}
	return nil
}

// IsNil reports whether v is the nil value of the described type.
func (d *Descriptor) IsNil(v any) bool {
	if v == nil {
		return true
	}
	return d.Contract.IsNil != nil && d.Contract.IsNil(v)
}

// Interface reports whether the described type is an interface type.
func (d *Descriptor) Interface() bool {
	return d.Type.Kind() == reflect.Interface
}

// PolyInfo is the resolved polymorphism of a nominal type.
type PolyInfo struct {
	Discriminator string
	Unknown       UnknownDerivedHandling

	derived []DerivedType
	byID    map[string]reflect.Type
	byType  map[reflect.Type]string
}

// TypeOf returns the type registered for a discriminator id.
func (p *PolyInfo) TypeOf(id string) (reflect.Type, bool) {
	t, ok := p.byID[id]
	return t, ok
}

// IDOf returns the discriminator id registered for t.
func (p *PolyInfo) IDOf(t reflect.Type) (string, bool) {
	id, ok := p.byType[t]
	return id, ok
}

func newDescriptor(t reflect.Type, c *Contract, naming Naming) (*Descriptor, error) {
	if c == nil {
		return nil, &UnsupportedTypeError{Type: t, Err: ErrNoContract}
	}
	d := &Descriptor{Type: t, Kind: c.Kind, Contract: c}
	if err := validate(t, c); err != nil {
		return nil, err
	}
	if c.Kind == KindObject {
		d.Members = make([]Member, len(c.Members))
		d.byName = make(map[string]int, len(c.Members))
		d.required = make([]int, len(c.Members))
		for i, m := range c.Members {
			if m.WireName == "" {
				m.WireName = naming.Apply(m.Name)
			}
			if _, dup := d.byName[m.WireName]; dup {
				return nil, invalid(t, fmt.Sprintf("duplicate member name %q", m.WireName))
			}
			d.byName[m.WireName] = i
			d.required[i] = -1
			if m.Required {
				d.required[i] = d.RequiredCount
				d.RequiredCount++
			}
			d.Members[i] = m
		}
	}
	if c.Polymorphism != nil {
		p, err := newPolyInfo(t, c.Polymorphism)
		if err != nil {
			return nil, err
		}
		d.Poly = p
	}
	return d, nil
}

func newPolyInfo(t reflect.Type, p *Polymorphism) (*PolyInfo, error) {
	pi := &PolyInfo{
		Discriminator: p.Discriminator,
		Unknown:       p.UnknownDerived,
		derived:       p.Derived,
		byID:          make(map[string]reflect.Type, len(p.Derived)),
		byType:        make(map[reflect.Type]string, len(p.Derived)),
	}
	if pi.Discriminator == "" {
		pi.Discriminator = DefaultDiscriminator
	}
	for _, dt := range p.Derived {
		switch {
		case dt.Type == nil || dt.ID == "":
			return nil, invalid(t, "derived type needs a type and an id")
		case dt.Type.Kind() != reflect.Interface && t.Kind() == reflect.Interface && !dt.Type.Implements(t):
			return nil, invalid(t, dt.Type.String()+" does not implement it")
		}
		if _, dup := pi.byID[dt.ID]; dup {
			return nil, invalid(t, fmt.Sprintf("duplicate discriminator id %q", dt.ID))
		}
		if _, dup := pi.byType[dt.Type]; dup {
			return nil, invalid(t, "derived type "+dt.Type.String()+" registered twice")
		}
		pi.byID[dt.ID] = dt.Type
		pi.byType[dt.Type] = dt.ID
	}
	return pi, nil
}

func validate(t reflect.Type, c *Contract) error {
	switch c.Kind {
	case KindPrimitive:
		if c.Encode == nil || c.Decode == nil {
			return invalid(t, "primitive needs Encode and Decode")
		}
	case KindObject:
		if c.New == nil {
			return invalid(t, "object needs New")
		}
		for _, m := range c.Members {
			if m.Name == "" && m.WireName == "" {
				return invalid(t, "member without a name")
			}
			if m.Type == nil || m.Get == nil {
				return invalid(t, "member "+m.Name+" needs a type and a getter")
			}
		}
	case KindCollection:
		if c.Elem == nil || c.NewCollection == nil || c.Len == nil || c.Index == nil || c.Append == nil {
			return invalid(t, "incomplete collection contract")
		}
	case KindDictionary:
		if c.Elem == nil || c.NewDictionary == nil || c.Keys == nil || c.Lookup == nil || c.Store == nil {
			return invalid(t, "incomplete dictionary contract")
		}
	case KindDynamic:
	default:
		return invalid(t, "unknown kind")
	}
	return nil
}

func invalid(t reflect.Type, reason string) error {
	return &UnsupportedTypeError{Type: t, Reason: reason}
}
