// Package typeinfo resolves and caches the per-type metadata the
// serializer needs to walk an object graph.
//
// Types are described by a Provider, usually a Registry populated with
// explicit registrations. The Cache turns those contracts into immutable
// Descriptors, memoizes them and resolves runtime types of polymorphic
// values to the nearest registered mapping.
package typeinfo

import "reflect"

// Kind is the conversion strategy of a type.
type Kind uint8

const (
	KindPrimitive Kind = iota + 1
	KindObject
	KindCollection
	KindDictionary
	// KindDynamic types are dispatched on the runtime type of the value
	// (any, interfaces).
	KindDynamic
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindObject:
		return "object"
	case KindCollection:
		return "collection"
	case KindDictionary:
		return "dictionary"
	case KindDynamic:
		return "dynamic"
	}
	return "invalid"
}

// ScalarKind identifies the JSON token class of a Scalar.
type ScalarKind uint8

const (
	ScalarString ScalarKind = iota + 1
	ScalarNumber
	ScalarBool
	ScalarNull
)

func (k ScalarKind) String() string {
	switch k {
	case ScalarString:
		return "string"
	case ScalarNumber:
		return "number"
	case ScalarBool:
		return "bool"
	case ScalarNull:
		return "null"
	}
	return "invalid"
}

// Scalar is the boundary between primitive values and the token stream.
// Text holds the decoded string or the literal number text.
type Scalar struct {
	Kind ScalarKind
	Text string
	Bool bool
}

// Member describes one serializable member of an object type.
type Member struct {
	// Name is the declared member name; WireName, when set, overrides the
	// name produced by the naming policy.
	Name     string
	WireName string
	Type     reflect.Type
	Required bool
	OmitNil  bool
	Get      func(obj any) any
	// Set is nil for read-only members.
	Set func(obj any, v any)
}

// Contract is what a Provider knows about a type. Only the hooks of the
// contract's Kind need to be set.
type Contract struct {
	Kind  Kind
	IsNil func(v any) bool

	// Object.
	New     func() any
	Members []Member

	// Collection element type or dictionary value type.
	Elem reflect.Type

	NewCollection func(capHint int) any
	Len           func(c any) int
	Index         func(c any, i int) any
	Append        func(c any, elem any) any

	NewDictionary func() any
	// Keys returns the keys in the order they are written.
	Keys          func(m any) []string
	Lookup        func(m any, key string) (any, bool)
	Store         func(m any, key string, v any)

	Encode func(v any) (Scalar, error)
	Decode func(s Scalar) (any, error)

	Polymorphism *Polymorphism
}

// UnknownDerivedHandling selects what happens when a runtime type has no
// derived mapping of its own.
type UnknownDerivedHandling uint8

const (
	FailSerialization UnknownDerivedHandling = iota
	FallBackToBase
	FallBackToNearestAncestor
)

// DefaultDiscriminator is the metadata property naming the derived type.
const DefaultDiscriminator = "$type"

// DerivedType maps a type to the discriminator id written for it.
type DerivedType struct {
	Type reflect.Type
	ID   string
}

// Polymorphism describes the derived types a nominal type may hold.
type Polymorphism struct {
	Discriminator  string
	Derived        []DerivedType
	UnknownDerived UnknownDerivedHandling
}

// Derive returns the mapping of T to id.
func Derive[T any](id string) DerivedType {
	return DerivedType{Type: reflect.TypeOf((*T)(nil)).Elem(), ID: id}
}

// Provider supplies contracts for types. Implementations must be safe for
// concurrent use.
type Provider interface {
	Contract(t reflect.Type) (*Contract, error)
}

// Base is one declared base of a type with the conversion that views a
// value of the derived type as the base.
type Base struct {
	Type   reflect.Type
	Upcast func(v any) any
}

// Hierarchy is optionally implemented by providers that know declared base
// types. Bases returns the direct bases of t, nearest first.
type Hierarchy interface {
	Bases(t reflect.Type) []Base
}
