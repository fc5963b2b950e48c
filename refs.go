package jsonflow

import "strconv"

// Metadata property names used by reference preservation.
const (
	idProperty  = "$id"
	refProperty = "$ref"
)

// writeRefs tracks object identity while writing. ids is only used when
// references are preserved; active holds the objects on the current
// ancestor chain.
type writeRefs struct {
	ids    map[any]string
	active map[any]struct{}
	next   int
}

func (r *writeRefs) reset() {
	clear(r.ids)
	clear(r.active)
	r.next = 0
}

// lookup returns the id already assigned to v.
func (r *writeRefs) lookup(v any) (string, bool) {
	id, ok := r.ids[v]
	return id, ok
}

// assign gives v the next id.
func (r *writeRefs) assign(v any) string {
	if r.ids == nil {
		r.ids = make(map[any]string)
	}
	r.next++
	id := strconv.Itoa(r.next)
	r.ids[v] = id
	return id
}

// enter marks v as being written. It reports false when v is already on
// the ancestor chain.
func (r *writeRefs) enter(v any) bool {
	if _, ok := r.active[v]; ok {
		return false
	}
	if r.active == nil {
		r.active = make(map[any]struct{})
	}
	r.active[v] = struct{}{}
	return true
}

func (r *writeRefs) onChain(v any) bool {
	_, ok := r.active[v]
	return ok
}

func (r *writeRefs) leave(v any) { delete(r.active, v) }

// readRefs maps $id values to the instances created for them.
type readRefs struct {
	byID map[string]any
}

func (r *readRefs) reset() { clear(r.byID) }

// register records v under id; it reports false when id is taken.
func (r *readRefs) register(id string, v any) bool {
	if _, dup := r.byID[id]; dup {
		return false
	}
	if r.byID == nil {
		r.byID = make(map[string]any)
	}
	r.byID[id] = v
	return true
}

func (r *readRefs) resolve(id string) (any, bool) {
	v, ok := r.byID[id]
	return v, ok
}
