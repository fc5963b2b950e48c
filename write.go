package jsonflow

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/reoring/jsonflow/internal/engine"
	"github.com/reoring/jsonflow/typeinfo"
)

// writeState drives one top-level write. Each call to run either completes
// the value or stops at a flush point with the stack suspended; the next
// call re-descends through the parked frames and continues where it left
// off.
type writeState struct {
	s  *Serializer
	st Stack
	w  *engine.Writer
	// threshold is the buffered byte count that triggers a suspension; 0
	// never suspends.
	threshold int
	refs      writeRefs
}

func (ws *writeState) init(s *Serializer, w *engine.Writer, d *typeinfo.Descriptor, v any, threshold int) {
	ws.s, ws.w, ws.threshold = s, w, threshold
	ws.refs.reset()
	ws.st.Init(d, v)
}

// run writes until the value is complete (true) or a flush point is
// reached (false).
func (ws *writeState) run() (bool, error) {
	if ws.st.State() == StateCompleted {
		return false, newIssue(CodeInvalidState, "$", "write already completed", nil)
	}
	return ws.writeChild()
}

func (ws *writeState) writeChild() (bool, error) {
	ws.st.Push()
	ok, err := ws.writeFrame()
	if err != nil {
		return false, err
	}
	ws.st.Pop(ok)
	return ok, nil
}

func (ws *writeState) writeFrame() (bool, error) {
	f := &ws.st.Current
	var d *typeinfo.Descriptor
	switch {
	case f.poly == polySuspended:
		d = ws.st.ResumePolymorphic()
	case f.stage == stageStart && f.poly == polyNone:
		var err error
		if d, err = ws.dispatch(f); err != nil {
			return false, err
		}
	default:
		d = f.desc()
	}
	ok, err := ws.writeKind(d)
	if err == nil && f.poly == polyEntered {
		ws.st.ExitPolymorphic(ok)
	}
	return ok, err
}

// dispatch switches the frame to the runtime type's descriptor when the
// nominal type is dynamic or polymorphic and the value is of another type.
func (ws *writeState) dispatch(f *Frame) (*typeinfo.Descriptor, error) {
	d := f.nominal
	if f.value == nil || (d.Kind != typeinfo.KindDynamic && d.Poly == nil) {
		return d, nil
	}
	rt := reflect.TypeOf(f.value)
	if rt == d.Type {
		return d, nil
	}
	der, err := ws.s.cache.ResolveDerived(d, rt)
	if err != nil {
		return nil, ws.fail(err)
	}
	if der.Upcast != nil {
		f.value = der.Upcast(f.value)
	}
	f.typeID = der.ID
	ws.st.EnterPolymorphic(der.Desc)
	return der.Desc, nil
}

func (ws *writeState) writeKind(d *typeinfo.Descriptor) (bool, error) {
	f := &ws.st.Current
	if f.stage == stageStart && d.IsNil(f.value) {
		ws.w.Null()
		return true, nil
	}
	switch d.Kind {
	case typeinfo.KindPrimitive:
		return ws.writePrimitive(d)
	case typeinfo.KindObject:
		return ws.writeObject(d)
	case typeinfo.KindCollection:
		return ws.writeCollection(d)
	case typeinfo.KindDictionary:
		return ws.writeDictionary(d)
	}
	return false, ws.issue(CodeUnsupportedType, fmt.Sprintf("cannot write %s", d.Type))
}

func (ws *writeState) writePrimitive(d *typeinfo.Descriptor) (bool, error) {
	sc, err := d.Contract.Encode(ws.st.Current.value)
	if err != nil {
		return false, ws.fail(err)
	}
	switch sc.Kind {
	case typeinfo.ScalarString:
		ws.w.String(sc.Text)
	case typeinfo.ScalarNumber:
		ws.w.Number(sc.Text)
	case typeinfo.ScalarBool:
		ws.w.Bool(sc.Bool)
	case typeinfo.ScalarNull:
		ws.w.Null()
	default:
		return false, ws.issue(CodeUnsupportedType, fmt.Sprintf("%s encoded an invalid scalar", d.Type))
	}
	return true, nil
}

func (ws *writeState) writeObject(d *typeinfo.Descriptor) (bool, error) {
	f := &ws.st.Current
	if f.stage == stageStart {
		if done, err := ws.beginObject(f, d); done || err != nil {
			return done, err
		}
	}
	for f.index < len(d.Members) {
		if !f.childPending {
			if suspend, err := ws.flushPoint(); suspend || err != nil {
				return false, err
			}
			m := &d.Members[f.index]
			cd, err := ws.s.cache.Resolve(m.Type)
			if err != nil {
				return false, ws.fail(err)
			}
			v := m.Get(f.value)
			if m.OmitNil && cd.IsNil(v) {
				f.index++
				continue
			}
			ws.w.Name(m.WireName)
			f.name, f.segment = m.WireName, segName
			f.childDesc, f.childValue, f.childPending = cd, v, true
		}
		if ok, err := ws.writeChild(); !ok || err != nil {
			return false, err
		}
		f.childDesc, f.childValue, f.childPending = nil, nil, false
		f.index++
	}
	ws.w.EndObject()
	if tracked(d) {
		ws.refs.leave(f.value)
	}
	return true, nil
}

// beginObject handles reference metadata and opens the object. done is true
// when the value was fully written as a reference or null.
func (ws *writeState) beginObject(f *Frame, d *typeinfo.Descriptor) (done bool, err error) {
	if tracked(d) {
		switch ws.s.opts.References {
		case ReferencePreserve:
			if id, ok := ws.refs.lookup(f.value); ok {
				ws.w.BeginObject()
				ws.w.Name(refProperty)
				ws.w.String(id)
				ws.w.EndObject()
				return true, nil
			}
			f.refID = ws.refs.assign(f.value)
		case ReferenceIgnoreCycles:
			if ws.refs.onChain(f.value) {
				ws.w.Null()
				return true, nil
			}
		default:
			if ws.refs.onChain(f.value) {
				return false, ws.issue(CodeReferenceCycle, fmt.Sprintf("cycle through %s", d.Type))
			}
		}
		ws.refs.enter(f.value)
	}
	if err := ws.checkDepth(); err != nil {
		return false, err
	}
	ws.w.BeginObject()
	if f.refID != "" {
		ws.w.Name(idProperty)
		ws.w.String(f.refID)
	}
	if f.typeID != "" {
		ws.w.Name(f.nominal.Poly.Discriminator)
		ws.w.String(f.typeID)
	}
	f.stage, f.index = stageProps, 0
	return false, nil
}

func (ws *writeState) writeCollection(d *typeinfo.Descriptor) (bool, error) {
	f := &ws.st.Current
	c := d.Contract
	if f.stage == stageStart {
		if done, err := ws.enterContainer(d); done || err != nil {
			return done, err
		}
		if err := ws.checkDepth(); err != nil {
			return false, err
		}
		ws.w.BeginArray()
		f.stage, f.index, f.segment = stageElems, 0, segIndex
	}
	ed, err := ws.s.cache.Resolve(c.Elem)
	if err != nil {
		return false, ws.fail(err)
	}
	for n := c.Len(f.value); f.index < n; {
		if !f.childPending {
			if suspend, err := ws.flushPoint(); suspend || err != nil {
				return false, err
			}
			f.childDesc, f.childValue, f.childPending = ed, c.Index(f.value, f.index), true
		}
		if ok, err := ws.writeChild(); !ok || err != nil {
			return false, err
		}
		f.childDesc, f.childValue, f.childPending = nil, nil, false
		f.index++
	}
	ws.w.EndArray()
	ws.leaveContainer()
	return true, nil
}

func (ws *writeState) writeDictionary(d *typeinfo.Descriptor) (bool, error) {
	f := &ws.st.Current
	c := d.Contract
	if f.stage == stageStart {
		if done, err := ws.enterContainer(d); done || err != nil {
			return done, err
		}
		if err := ws.checkDepth(); err != nil {
			return false, err
		}
		f.keys = c.Keys(f.value)
		ws.w.BeginObject()
		f.stage, f.index, f.segment = stageProps, 0, segName
	}
	ed, err := ws.s.cache.Resolve(c.Elem)
	if err != nil {
		return false, ws.fail(err)
	}
	for f.index < len(f.keys) {
		if !f.childPending {
			if suspend, err := ws.flushPoint(); suspend || err != nil {
				return false, err
			}
			k := f.keys[f.index]
			v, _ := c.Lookup(f.value, k)
			ws.w.Name(k)
			f.name = k
			f.childDesc, f.childValue, f.childPending = ed, v, true
		}
		if ok, err := ws.writeChild(); !ok || err != nil {
			return false, err
		}
		f.childDesc, f.childValue, f.childPending = nil, nil, false
		f.index++
	}
	ws.w.EndObject()
	f.keys = nil
	ws.leaveContainer()
	return true, nil
}

// enterContainer puts the current map or slice on the ancestor chain. A
// container that is already there is a cycle: written as null when cycles
// are ignored, an error otherwise. $id is only written for pointers, so
// preserved references do not cover containers.
func (ws *writeState) enterContainer(d *typeinfo.Descriptor) (done bool, err error) {
	key, ok := containerIdentity(ws.st.Current.value)
	if !ok {
		return false, nil
	}
	if ws.refs.onChain(key) {
		if ws.s.opts.References == ReferenceIgnoreCycles {
			ws.w.Null()
			return true, nil
		}
		return false, ws.issue(CodeReferenceCycle, fmt.Sprintf("cycle through %s", d.Type))
	}
	ws.refs.enter(key)
	return false, nil
}

func (ws *writeState) leaveContainer() {
	if key, ok := containerIdentity(ws.st.Current.value); ok {
		ws.refs.leave(key)
	}
}

// containerKey identifies a map or slice by its backing storage. Slices
// also carry their length since a prefix shares the array.
type containerKey struct {
	p unsafe.Pointer
	n int
}

func containerIdentity(v any) (containerKey, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return containerKey{p: rv.UnsafePointer()}, true
	case reflect.Slice:
		if rv.Len() == 0 {
			return containerKey{}, false
		}
		return containerKey{p: rv.UnsafePointer(), n: rv.Len()}, true
	}
	return containerKey{}, false
}

// flushPoint reports whether the write should suspend before the next
// member or element.
func (ws *writeState) flushPoint() (bool, error) {
	if err := ws.w.Err(); err != nil {
		return false, ws.fail(err)
	}
	return ws.threshold > 0 && ws.w.Buffered() >= ws.threshold, nil
}

func (ws *writeState) checkDepth() error {
	if ws.st.Depth() > ws.s.opts.MaxDepth {
		return ws.issue(CodeDepthExceeded, fmt.Sprintf("depth %d exceeds maximum %d", ws.st.Depth(), ws.s.opts.MaxDepth))
	}
	return nil
}

func (ws *writeState) fail(err error) error { return toIssues(err, ws.st.Path(), nil) }

func (ws *writeState) issue(code, msg string) error {
	return newIssue(code, ws.st.Path(), msg, nil)
}

// tracked reports whether values of d have an identity worth tracking.
func tracked(d *typeinfo.Descriptor) bool {
	return d.Type.Kind() == reflect.Pointer
}
