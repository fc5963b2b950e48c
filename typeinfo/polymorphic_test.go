package typeinfo

import (
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Pet interface{ PetName() string }

type Barker interface {
	Pet
	Bark() string
}

type Walker interface {
	Pet
	Walk() string
}

type BarkWalker interface {
	Barker
	Walker
}

type Animal struct{ Name string }

func (a *Animal) PetName() string { return a.Name }

type Dog struct {
	Animal
	Breed string
}

type Puppy struct {
	Dog
	Age int
}

type Robot struct{ Model string }

func (r *Robot) PetName() string { return r.Model }
func (r *Robot) Bark() string    { return "beep" }
func (r *Robot) Walk() string    { return "roll" }

type Cat struct{ Lives int }

func (c *Cat) PetName() string { return "cat" }

func petRegistry(poly Polymorphism) *Registry {
	r := NewRegistry()
	RegisterObject[Animal](r,
		Field("Name", func(a *Animal) string { return a.Name }, func(a *Animal, v string) { a.Name = v }))
	RegisterObject[Dog](r,
		Field("Name", func(d *Dog) string { return d.Name }, func(d *Dog, v string) { d.Name = v }),
		Field("Breed", func(d *Dog) string { return d.Breed }, func(d *Dog, v string) { d.Breed = v }))
	RegisterObject[Puppy](r,
		Field("Age", func(p *Puppy) int { return p.Age }, func(p *Puppy, v int) { p.Age = v }))
	RegisterObject[Robot](r,
		Field("Model", func(x *Robot) string { return x.Model }, func(x *Robot, v string) { x.Model = v }))
	RegisterObject[Cat](r)
	DeclareBase(r, func(d *Dog) *Animal { return &d.Animal })
	DeclareBase(r, func(p *Puppy) *Dog { return &p.Dog })
	RegisterInterface[Pet](r, WithPolymorphism(poly))
	return r
}

func resolvePet(t *testing.T, c *Cache) *Descriptor {
	t.Helper()
	d, err := c.Resolve(reflect.TypeOf((*Pet)(nil)).Elem())
	require.NoError(t, err)
	require.NotNil(t, d.Poly)
	return d
}

func TestResolveDerivedExact(t *testing.T) {
	c := NewCache(petRegistry(Polymorphism{
		Derived: []DerivedType{Derive[*Animal]("animal"), Derive[*Dog]("dog")},
	}), Config{})
	pet := resolvePet(t, c)
	assert.Equal(t, DefaultDiscriminator, pet.Poly.Discriminator)

	got, err := c.ResolveDerived(pet, reflect.TypeOf((**Dog)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, "dog", got.ID)
	assert.True(t, got.Mapped)
	assert.Equal(t, reflect.TypeOf((**Dog)(nil)).Elem(), got.Desc.Type)
	assert.Nil(t, got.Upcast)

	tt, ok := pet.Poly.TypeOf("animal")
	require.True(t, ok)
	assert.Equal(t, reflect.TypeOf((**Animal)(nil)).Elem(), tt)
}

func TestResolveDerivedFailsWithoutFallback(t *testing.T) {
	c := NewCache(petRegistry(Polymorphism{
		Derived: []DerivedType{Derive[*Animal]("animal")},
	}), Config{})
	_, err := c.ResolveDerived(resolvePet(t, c), reflect.TypeOf((**Cat)(nil)).Elem())
	var ue *UnknownDerivedError
	require.ErrorAs(t, err, &ue)
}

func TestResolveDerivedNearestBase(t *testing.T) {
	c := NewCache(petRegistry(Polymorphism{
		Derived:        []DerivedType{Derive[*Animal]("animal")},
		UnknownDerived: FallBackToNearestAncestor,
	}), Config{})
	pet := resolvePet(t, c)

	got, err := c.ResolveDerived(pet, reflect.TypeOf((**Puppy)(nil)).Elem())
	require.NoError(t, err, spew.Sdump(got))
	assert.Equal(t, "animal", got.ID)
	assert.Equal(t, reflect.TypeOf((**Animal)(nil)).Elem(), got.Desc.Type)

	p := &Puppy{Dog: Dog{Animal: Animal{Name: "rex"}}}
	up := got.Upcast(p)
	assert.Same(t, &p.Animal, up)
}

func TestResolveDerivedAmbiguityIsDeterministic(t *testing.T) {
	c := NewCache(petRegistry(Polymorphism{
		Derived: []DerivedType{
			Derive[*Animal]("animal"),
			Derive[Barker]("barker"),
			Derive[Walker]("walker"),
		},
		UnknownDerived: FallBackToNearestAncestor,
	}), Config{})
	pet := resolvePet(t, c)

	_, err1 := c.ResolveDerived(pet, reflect.TypeOf((**Robot)(nil)).Elem())
	var ae *AmbiguousMappingError
	require.ErrorAs(t, err1, &ae)
	assert.Equal(t, []reflect.Type{reflect.TypeOf((*Barker)(nil)).Elem(), reflect.TypeOf((*Walker)(nil)).Elem()}, ae.Candidates)

	builds := c.Builds()
	_, err2 := c.ResolveDerived(pet, reflect.TypeOf((**Robot)(nil)).Elem())
	assert.Same(t, err1, err2)
	assert.Equal(t, builds, c.Builds())
}

func TestResolveDerivedPicksMostSpecificInterface(t *testing.T) {
	c := NewCache(petRegistry(Polymorphism{
		Derived: []DerivedType{
			Derive[Barker]("barker"),
			Derive[Walker]("walker"),
			Derive[BarkWalker]("barkwalker"),
		},
		UnknownDerived: FallBackToNearestAncestor,
	}), Config{})

	got, err := c.ResolveDerived(resolvePet(t, c), reflect.TypeOf((**Robot)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, "barkwalker", got.ID)
	assert.Equal(t, reflect.TypeOf((**Robot)(nil)).Elem(), got.Desc.Type)
}

func TestResolveDerivedFallBackToBase(t *testing.T) {
	c := NewCache(petRegistry(Polymorphism{
		Derived:        []DerivedType{Derive[*Dog]("dog")},
		UnknownDerived: FallBackToBase,
	}), Config{})
	got, err := c.ResolveDerived(resolvePet(t, c), reflect.TypeOf((**Cat)(nil)).Elem())
	require.NoError(t, err)
	assert.Empty(t, got.ID)
	assert.False(t, got.Mapped)
	assert.Equal(t, reflect.TypeOf((**Cat)(nil)).Elem(), got.Desc.Type)
}

func TestPolymorphismValidation(t *testing.T) {
	c := NewCache(petRegistry(Polymorphism{
		Derived: []DerivedType{Derive[*Dog]("x"), Derive[*Cat]("x")},
	}), Config{})
	_, err := c.Resolve(reflect.TypeOf((*Pet)(nil)).Elem())
	var ue *UnsupportedTypeError
	require.ErrorAs(t, err, &ue)
}

type Swimmer struct{ Fins int }

func (s *Swimmer) PetName() string { return "swimmer" }

type Frog struct {
	Animal
	Swimmer
}

func (f *Frog) PetName() string { return f.Name }

type Mutt struct{ Dog }

func TestResolveDerivedAmbiguousBasesAtSameDistance(t *testing.T) {
	r := petRegistry(Polymorphism{
		Derived: []DerivedType{
			Derive[*Animal]("animal"),
			Derive[*Swimmer]("swimmer"),
		},
		UnknownDerived: FallBackToNearestAncestor,
	})
	RegisterObject[Swimmer](r,
		Field("Fins", func(s *Swimmer) int { return s.Fins }, func(s *Swimmer, v int) { s.Fins = v }))
	RegisterObject[Frog](r)
	DeclareBase(r, func(f *Frog) *Animal { return &f.Animal })
	DeclareBase(r, func(f *Frog) *Swimmer { return &f.Swimmer })
	c := NewCache(r, Config{})
	pet := resolvePet(t, c)

	got, err1 := c.ResolveDerived(pet, reflect.TypeOf((**Frog)(nil)).Elem())
	var ae *AmbiguousMappingError
	require.ErrorAs(t, err1, &ae, spew.Sdump(got))
	assert.Equal(t, []reflect.Type{reflect.TypeOf((**Animal)(nil)).Elem(), reflect.TypeOf((**Swimmer)(nil)).Elem()}, ae.Candidates)

	_, err2 := c.ResolveDerived(pet, reflect.TypeOf((**Frog)(nil)).Elem())
	assert.Same(t, err1, err2)
}

func TestResolveDerivedNearestBaseDropsMoreGeneral(t *testing.T) {
	r := petRegistry(Polymorphism{
		Derived: []DerivedType{
			Derive[*Animal]("animal"),
			Derive[*Dog]("dog"),
		},
		UnknownDerived: FallBackToNearestAncestor,
	})
	RegisterObject[Mutt](r)
	// Both are direct bases; Dog derives from Animal and wins.
	DeclareBase(r, func(m *Mutt) *Animal { return &m.Animal })
	DeclareBase(r, func(m *Mutt) *Dog { return &m.Dog })
	c := NewCache(r, Config{})

	got, err := c.ResolveDerived(resolvePet(t, c), reflect.TypeOf((**Mutt)(nil)).Elem())
	require.NoError(t, err)
	assert.Equal(t, "dog", got.ID)
	m := &Mutt{}
	assert.Same(t, &m.Dog, got.Upcast(m))
}
