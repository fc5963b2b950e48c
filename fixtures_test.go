package jsonflow

import (
	"math"
	"time"

	"github.com/reoring/jsonflow/typeinfo"
)

type Customer struct{ Name string }

type Order struct {
	ID       string
	Qty      int
	Price    float64
	Tags     []string
	Meta     map[string]any
	Customer *Customer
	Created  time.Time
}

type Root struct{ Outer *Outer }
type Outer struct{ Inner *Inner }
type Inner struct {
	Value    string
	Optional int
}

type Node struct {
	Name     string
	Next     *Node
	Children []*Node
}

type Shape interface{ Area() float64 }

type Circle struct{ R float64 }

func (c *Circle) Area() float64 { return math.Pi * c.R * c.R }

type Square struct{ Side float64 }

func (s *Square) Area() float64 { return s.Side * s.Side }

type Triangle struct{ Base, Height float64 }

func (t *Triangle) Area() float64 { return t.Base * t.Height / 2 }

type Drawing struct {
	Shapes []Shape
	Main   Shape
}

type Item struct{ N int }

func testRegistry() *typeinfo.Registry {
	r := typeinfo.NewRegistry()
	typeinfo.RegisterSlice[string](r)
	typeinfo.RegisterObject[Customer](r,
		typeinfo.Field("Name", func(c *Customer) string { return c.Name }, func(c *Customer, v string) { c.Name = v }))
	typeinfo.RegisterObject[Order](r,
		typeinfo.Field("ID", func(o *Order) string { return o.ID }, func(o *Order, v string) { o.ID = v }, typeinfo.Required()),
		typeinfo.Field("Qty", func(o *Order) int { return o.Qty }, func(o *Order, v int) { o.Qty = v }),
		typeinfo.Field("Price", func(o *Order) float64 { return o.Price }, func(o *Order, v float64) { o.Price = v }),
		typeinfo.Field("Tags", func(o *Order) []string { return o.Tags }, func(o *Order, v []string) { o.Tags = v }, typeinfo.OmitNil()),
		typeinfo.Field("Meta", func(o *Order) map[string]any { return o.Meta }, func(o *Order, v map[string]any) { o.Meta = v }, typeinfo.OmitNil()),
		typeinfo.Field("Customer", func(o *Order) *Customer { return o.Customer }, func(o *Order, v *Customer) { o.Customer = v }, typeinfo.OmitNil()),
		typeinfo.Field("Created", func(o *Order) time.Time { return o.Created }, func(o *Order, v time.Time) { o.Created = v }),
	)

	typeinfo.RegisterObject[Root](r,
		typeinfo.Field("Outer", func(x *Root) *Outer { return x.Outer }, func(x *Root, v *Outer) { x.Outer = v }))
	typeinfo.RegisterObject[Outer](r,
		typeinfo.Field("Inner", func(x *Outer) *Inner { return x.Inner }, func(x *Outer, v *Inner) { x.Inner = v }))
	typeinfo.RegisterObject[Inner](r,
		typeinfo.Field("Value", func(x *Inner) string { return x.Value }, func(x *Inner, v string) { x.Value = v }, typeinfo.Required()),
		typeinfo.Field("Optional", func(x *Inner) int { return x.Optional }, func(x *Inner, v int) { x.Optional = v }))

	typeinfo.RegisterObject[Node](r,
		typeinfo.Field("Name", func(n *Node) string { return n.Name }, func(n *Node, v string) { n.Name = v }),
		typeinfo.Field("Next", func(n *Node) *Node { return n.Next }, func(n *Node, v *Node) { n.Next = v }, typeinfo.OmitNil()),
		typeinfo.Field("Children", func(n *Node) []*Node { return n.Children }, func(n *Node, v []*Node) { n.Children = v }, typeinfo.OmitNil()))
	typeinfo.RegisterSlice[*Node](r)

	typeinfo.RegisterObject[Circle](r,
		typeinfo.Field("R", func(c *Circle) float64 { return c.R }, func(c *Circle, v float64) { c.R = v }))
	typeinfo.RegisterObject[Square](r,
		typeinfo.Field("Side", func(s *Square) float64 { return s.Side }, func(s *Square, v float64) { s.Side = v }))
	typeinfo.RegisterObject[Triangle](r,
		typeinfo.Field("Base", func(t *Triangle) float64 { return t.Base }, func(t *Triangle, v float64) { t.Base = v }),
		typeinfo.Field("Height", func(t *Triangle) float64 { return t.Height }, func(t *Triangle, v float64) { t.Height = v }))
	typeinfo.RegisterInterface[Shape](r, typeinfo.WithPolymorphism(typeinfo.Polymorphism{
		Derived: []typeinfo.DerivedType{
			typeinfo.Derive[*Circle]("circle"),
			typeinfo.Derive[*Square]("square"),
		},
	}))
	typeinfo.RegisterSlice[Shape](r)
	typeinfo.RegisterObject[Drawing](r,
		typeinfo.Field("Shapes", func(d *Drawing) []Shape { return d.Shapes }, func(d *Drawing, v []Shape) { d.Shapes = v }),
		typeinfo.Field("Main", func(d *Drawing) Shape { return d.Main }, func(d *Drawing, v Shape) { d.Main = v }))

	typeinfo.RegisterObject[Item](r,
		typeinfo.Field("N", func(i *Item) int { return i.N }, func(i *Item, v int) { i.N = v }))
	typeinfo.RegisterSlice[*Item](r)
	typeinfo.RegisterSlice[int](r)
	return r
}

func sampleOrder() *Order {
	return &Order{
		ID:       "o-1",
		Qty:      2,
		Price:    9.5,
		Tags:     []string{"a", "b"},
		Meta:     map[string]any{"n": 1, "k": "v"},
		Customer: &Customer{Name: "ann"},
		Created:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

const sampleOrderJSON = `{"ID":"o-1","Qty":2,"Price":9.5,"Tags":["a","b"],"Meta":{"k":"v","n":1},"Customer":{"Name":"ann"},"Created":"2024-01-02T03:04:05Z"}`
