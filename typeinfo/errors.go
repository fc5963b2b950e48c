package typeinfo

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ErrNoContract is wrapped by UnsupportedTypeError when a provider knows
// nothing about a type.
var ErrNoContract = errors.New("typeinfo: no contract registered")

// UnsupportedTypeError reports a type that cannot be serialized.
type UnsupportedTypeError struct {
	Type   reflect.Type
	Reason string
	Err    error
}

func (e *UnsupportedTypeError) Error() string {
	msg := "typeinfo: unsupported type " + typeName(e.Type)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *UnsupportedTypeError) Unwrap() error { return e.Err }

// AmbiguousMappingError is returned when a runtime type resolves to more than
// one unrelated polymorphic mapping.
type AmbiguousMappingError struct {
	Nominal    reflect.Type
	Runtime    reflect.Type
	Candidates []reflect.Type
}

func (e *AmbiguousMappingError) Error() string {
	names := make([]string, len(e.Candidates))
	for i, c := range e.Candidates {
		names[i] = typeName(c)
	}
	return fmt.Sprintf("typeinfo: runtime type %s of %s matches unrelated mappings %s",
		typeName(e.Runtime), typeName(e.Nominal), strings.Join(names, ", "))
}

// UnknownDerivedError is returned when a runtime type has no mapping and the
// nominal type does not allow falling back.
type UnknownDerivedError struct {
	Nominal reflect.Type
	Runtime reflect.Type
}

func (e *UnknownDerivedError) Error() string {
	return fmt.Sprintf("typeinfo: runtime type %s is not a registered derived type of %s",
		typeName(e.Runtime), typeName(e.Nominal))
}

// MismatchError is returned by primitive decoders when a scalar does not
// fit the target type.
type MismatchError struct {
	Type reflect.Type
	Got  ScalarKind
	Err  error
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("typeinfo: cannot decode %s into %s", e.Got, typeName(e.Type))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MismatchError) Unwrap() error { return e.Err }

// PanicError captures a panic raised while building a descriptor.
type PanicError struct {
	Type  reflect.Type
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("typeinfo: building %s panicked: %v", typeName(e.Type), e.Value)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
