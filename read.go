package jsonflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"

	"github.com/reoring/jsonflow/internal/engine"
	"github.com/reoring/jsonflow/textcodec"
	"github.com/reoring/jsonflow/typeinfo"
)

var (
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	anySliceType = reflect.TypeOf((*[]any)(nil)).Elem()
	anyMapType   = reflect.TypeOf((*map[string]any)(nil)).Elem()
)

// readState drives one top-level read. Tokens are pulled from src; when the
// source runs dry the traversal suspends and the next run replays the stack
// down to the frame that was waiting.
type readState struct {
	s   *Serializer
	st  Stack
	src engine.TokenSource
	// pending is a token that was consumed to choose a converter and is
	// handed to the next reader.
	pending    engine.Token
	hasPending bool
	last       engine.Token
	refs       readRefs
	result     any
}

func (rs *readState) init(s *Serializer, src engine.TokenSource, d *typeinfo.Descriptor) {
	rs.s, rs.src = s, src
	rs.hasPending = false
	rs.last = engine.Token{Offset: -1}
	rs.result = nil
	rs.refs.reset()
	rs.st.Init(d, nil)
}

// run reads until the value is complete (true) or the source needs more
// input (false).
func (rs *readState) run() (bool, error) {
	if rs.st.State() == StateCompleted {
		return false, newIssue(CodeInvalidState, "$", "read already completed", nil)
	}
	v, ok, err := rs.readChild()
	if ok {
		rs.result = v
	}
	return ok, err
}

func (rs *readState) readChild() (any, bool, error) {
	rs.st.Push()
	ok, err := rs.readFrame()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		rs.st.Pop(false)
		return nil, false, nil
	}
	v := rs.st.Current.value
	rs.st.Pop(true)
	return v, true, nil
}

func (rs *readState) readFrame() (bool, error) {
	f := &rs.st.Current
	d := f.desc()
	if f.poly == polySuspended {
		d = rs.st.ResumePolymorphic()
	}
	ok, err := rs.readKind(d)
	if err == nil && f.poly == polyEntered {
		rs.st.ExitPolymorphic(ok)
	}
	return ok, err
}

func (rs *readState) readKind(d *typeinfo.Descriptor) (bool, error) {
	switch d.Kind {
	case typeinfo.KindPrimitive:
		return rs.readPrimitive(d)
	case typeinfo.KindObject:
		return rs.readObject()
	case typeinfo.KindCollection:
		return rs.readCollection(d)
	case typeinfo.KindDictionary:
		return rs.readDictionary(d)
	case typeinfo.KindDynamic:
		if d.Poly != nil {
			return rs.readObject()
		}
		if d.Type == anyType {
			return rs.readDynamic()
		}
	}
	return false, rs.issue(CodeUnsupportedType, fmt.Sprintf("cannot read %s", d.Type), nil)
}

// next returns the next token. ok is false with a nil error when the source
// needs more input.
func (rs *readState) next() (tok engine.Token, ok bool, err error) {
	if rs.hasPending {
		rs.hasPending = false
		return rs.pending, true, nil
	}
	tok, err = rs.src.NextToken()
	switch {
	case err == nil:
		rs.last = tok
		return tok, true, nil
	case errors.Is(err, engine.ErrNeedMore):
		return tok, false, nil
	case err == io.EOF:
		return tok, false, rs.issue(CodeMalformedInput, "unexpected end of input", &rs.last)
	}
	return tok, false, rs.fail(err, &rs.last)
}

func (rs *readState) readPrimitive(d *typeinfo.Descriptor) (bool, error) {
	tok, ok, err := rs.next()
	if !ok {
		return false, err
	}
	f := &rs.st.Current
	var sc typeinfo.Scalar
	switch tok.Kind {
	case engine.KindNull:
		f.value = nil
		return true, nil
	case engine.KindString:
		text, err := rs.text(&tok)
		if err != nil {
			return false, err
		}
		sc = typeinfo.Scalar{Kind: typeinfo.ScalarString, Text: text}
	case engine.KindNumber:
		sc = typeinfo.Scalar{Kind: typeinfo.ScalarNumber, Text: string(tok.Raw)}
	case engine.KindBool:
		sc = typeinfo.Scalar{Kind: typeinfo.ScalarBool, Bool: tok.Bool}
	default:
		return false, rs.unexpected(&tok, d)
	}
	v, err := d.Contract.Decode(sc)
	if err != nil {
		return false, rs.fail(err, &tok)
	}
	f.value = v
	return true, nil
}

// readObject reads an object or a polymorphic interface value. Metadata
// properties are only recognized before the first regular property.
func (rs *readState) readObject() (bool, error) {
	f := &rs.st.Current
	for {
		d := f.desc()
		switch f.stage {
		case stageStart:
			tok, ok, err := rs.next()
			if !ok {
				return false, err
			}
			if tok.Kind == engine.KindNull {
				f.value = nil
				return true, nil
			}
			if tok.Kind != engine.KindBeginObject {
				return false, rs.unexpected(&tok, d)
			}
			if err := rs.checkDepth(&tok); err != nil {
				return false, err
			}
			resetMembers(f, d)
			f.segment = segName
			f.stage = stageProps

		case stageProps:
			tok, ok, err := rs.next()
			if !ok {
				return false, err
			}
			if tok.Kind == engine.KindEndObject {
				return rs.endObject(f, &tok)
			}
			name, err := rs.text(&tok)
			if err != nil {
				return false, err
			}
			f.name = name
			if !f.regular {
				if st, meta := rs.metadata(f, name); meta {
					f.stage = st
					continue
				}
				f.regular = true
			}
			if err := rs.ensureInstance(f, &tok); err != nil {
				return false, err
			}
			i, found := d.Member(name)
			if !found {
				if rs.s.opts.UnknownMembers == DisallowUnknown {
					return false, rs.mismatch(&tok, "unknown property %q for %s", name, d.Type)
				}
				f.stage, f.skip = stageSkip, 0
				continue
			}
			if f.seen.has(i) && rs.s.opts.Duplicates == DisallowDuplicates {
				return false, rs.mismatch(&tok, "duplicate property %q", name)
			}
			f.seen.set(i)
			m := &d.Members[i]
			if m.Set == nil {
				f.stage, f.skip = stageSkip, 0
				continue
			}
			cd, err := rs.s.cache.Resolve(m.Type)
			if err != nil {
				return false, rs.fail(err, &tok)
			}
			f.index, f.childDesc = i, cd
			f.stage = stageMember

		case stageMember:
			v, ok, err := rs.readChild()
			if !ok {
				return false, err
			}
			d.Members[f.index].Set(f.value, v)
			if ri := d.RequiredIndex(f.index); ri >= 0 {
				f.required.set(ri)
			}
			f.childDesc = nil
			f.stage = stageProps

		case stageSkip:
			if ok, err := rs.skipValue(f); !ok {
				return false, err
			}
			f.stage = stageProps

		case stageMetaID:
			id, ok, err := rs.metaString(idProperty)
			if !ok {
				return false, err
			}
			f.refID = id
			f.stage = stageProps

		case stageMetaType:
			id, ok, err := rs.metaString(f.nominal.Poly.Discriminator)
			if !ok {
				return false, err
			}
			if err := rs.enterDerived(f, id); err != nil {
				return false, err
			}
			f.stage = stageProps

		case stageMetaRef:
			if f.refID != "" || f.typeID != "" {
				return false, rs.mismatch(&rs.last, "%s must be the only property", refProperty)
			}
			id, ok, err := rs.metaString(refProperty)
			if !ok {
				return false, err
			}
			v, found := rs.refs.resolve(id)
			if !found {
				return false, rs.mismatch(&rs.last, "unknown reference %q", id)
			}
			if t := reflect.TypeOf(v); !t.AssignableTo(f.nominal.Type) {
				return false, rs.mismatch(&rs.last, "reference %q is a %s, not %s", id, t, f.nominal.Type)
			}
			f.value = v
			f.stage = stageRefEnd

		case stageRefEnd:
			tok, ok, err := rs.next()
			if !ok {
				return false, err
			}
			if tok.Kind != engine.KindEndObject {
				return false, rs.mismatch(&tok, "%s must be the only property", refProperty)
			}
			return true, nil

		default:
			return false, rs.issue(CodeInvalidState, fmt.Sprintf("object reader in stage %d", f.stage), nil)
		}
	}
}

// metadata reports whether name is a metadata property in the current mode
// and the stage reading its value.
func (rs *readState) metadata(f *Frame, name string) (stage, bool) {
	if rs.s.opts.References == ReferencePreserve {
		switch name {
		case idProperty:
			return stageMetaID, true
		case refProperty:
			return stageMetaRef, true
		}
	}
	if p := f.nominal.Poly; p != nil && name == p.Discriminator && f.typeID == "" {
		return stageMetaType, true
	}
	return stageStart, false
}

func (rs *readState) metaString(name string) (string, bool, error) {
	tok, ok, err := rs.next()
	if !ok {
		return "", false, err
	}
	if tok.Kind != engine.KindString {
		return "", false, rs.mismatch(&tok, "%s must be a string, got %s", name, tok.Kind)
	}
	s, err := rs.text(&tok)
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

// enterDerived switches the frame to the type named by a discriminator id.
func (rs *readState) enterDerived(f *Frame, id string) error {
	t, ok := f.nominal.Poly.TypeOf(id)
	if !ok {
		return rs.mismatch(&rs.last, "unknown %s %q for %s", f.nominal.Poly.Discriminator, id, f.nominal.Type)
	}
	dd, err := rs.s.cache.Resolve(t)
	if err != nil {
		return rs.fail(err, &rs.last)
	}
	if dd.Kind != typeinfo.KindObject || dd.Contract.New == nil {
		return rs.issue(CodeUnsupportedType, fmt.Sprintf("%s %q names %s, which cannot be constructed", f.nominal.Poly.Discriminator, id, t), &rs.last)
	}
	f.typeID = id
	if dd != f.nominal {
		rs.st.EnterPolymorphic(dd)
		resetMembers(f, dd)
	}
	return nil
}

// ensureInstance creates the object once its concrete type is known.
func (rs *readState) ensureInstance(f *Frame, tok *engine.Token) error {
	if f.value != nil {
		return nil
	}
	d := f.desc()
	if d.Contract.New == nil {
		if p := f.nominal.Poly; p != nil {
			return rs.mismatch(tok, "missing %s for %s", p.Discriminator, d.Type)
		}
		return rs.issue(CodeUnsupportedType, fmt.Sprintf("cannot construct %s", d.Type), tok)
	}
	f.value = d.Contract.New()
	if f.refID != "" && !rs.refs.register(f.refID, f.value) {
		return rs.mismatch(tok, "duplicate %s %q", idProperty, f.refID)
	}
	return nil
}

func (rs *readState) endObject(f *Frame, tok *engine.Token) (bool, error) {
	if err := rs.ensureInstance(f, tok); err != nil {
		return false, err
	}
	if !f.required.full() {
		d := f.desc()
		m := d.RequiredMember(f.required.firstMissing())
		return false, rs.mismatch(tok, "missing required property %q of %s", m.WireName, d.Type)
	}
	return true, nil
}

// skipValue consumes one value of any shape. f.skip holds the container
// depth across suspensions.
func (rs *readState) skipValue(f *Frame) (bool, error) {
	for {
		tok, ok, err := rs.next()
		if !ok {
			return false, err
		}
		switch tok.Kind {
		case engine.KindBeginObject, engine.KindBeginArray:
			f.skip++
			if rs.st.Depth()+f.skip > rs.s.opts.MaxDepth {
				return false, rs.issue(CodeDepthExceeded, fmt.Sprintf("depth exceeds maximum %d", rs.s.opts.MaxDepth), &tok)
			}
		case engine.KindEndObject, engine.KindEndArray:
			f.skip--
		}
		if f.skip == 0 {
			return true, nil
		}
	}
}

func (rs *readState) readCollection(d *typeinfo.Descriptor) (bool, error) {
	f := &rs.st.Current
	c := d.Contract
	for {
		switch f.stage {
		case stageStart:
			tok, ok, err := rs.next()
			if !ok {
				return false, err
			}
			if tok.Kind == engine.KindNull {
				f.value = nil
				return true, nil
			}
			if tok.Kind != engine.KindBeginArray {
				return false, rs.unexpected(&tok, d)
			}
			if err := rs.checkDepth(&tok); err != nil {
				return false, err
			}
			f.value = c.NewCollection(0)
			f.stage, f.index, f.segment = stageElems, 0, segIndex

		case stageElems:
			tok, ok, err := rs.next()
			if !ok {
				return false, err
			}
			if tok.Kind == engine.KindEndArray {
				return true, nil
			}
			ed, err := rs.s.cache.Resolve(c.Elem)
			if err != nil {
				return false, rs.fail(err, &tok)
			}
			rs.pending, rs.hasPending = tok, true
			f.childDesc = ed
			f.stage = stageElem

		case stageElem:
			v, ok, err := rs.readChild()
			if !ok {
				return false, err
			}
			f.value = c.Append(f.value, v)
			f.childDesc = nil
			f.index++
			f.stage = stageElems

		default:
			return false, rs.issue(CodeInvalidState, fmt.Sprintf("collection reader in stage %d", f.stage), nil)
		}
	}
}

func (rs *readState) readDictionary(d *typeinfo.Descriptor) (bool, error) {
	f := &rs.st.Current
	c := d.Contract
	for {
		switch f.stage {
		case stageStart:
			tok, ok, err := rs.next()
			if !ok {
				return false, err
			}
			if tok.Kind == engine.KindNull {
				f.value = nil
				return true, nil
			}
			if tok.Kind != engine.KindBeginObject {
				return false, rs.unexpected(&tok, d)
			}
			if err := rs.checkDepth(&tok); err != nil {
				return false, err
			}
			f.value = c.NewDictionary()
			f.stage, f.segment = stageProps, segName

		case stageProps:
			tok, ok, err := rs.next()
			if !ok {
				return false, err
			}
			if tok.Kind == engine.KindEndObject {
				return true, nil
			}
			key, err := rs.text(&tok)
			if err != nil {
				return false, err
			}
			if _, dup := c.Lookup(f.value, key); dup && rs.s.opts.Duplicates == DisallowDuplicates {
				return false, rs.mismatch(&tok, "duplicate property %q", key)
			}
			ed, err := rs.s.cache.Resolve(c.Elem)
			if err != nil {
				return false, rs.fail(err, &tok)
			}
			f.name, f.childDesc = key, ed
			f.stage = stageMember

		case stageMember:
			v, ok, err := rs.readChild()
			if !ok {
				return false, err
			}
			c.Store(f.value, f.name, v)
			f.childDesc = nil
			f.stage = stageProps

		default:
			return false, rs.issue(CodeInvalidState, fmt.Sprintf("dictionary reader in stage %d", f.stage), nil)
		}
	}
}

// readDynamic reads a value of type any: objects become map[string]any,
// arrays []any, numbers json.Number.
func (rs *readState) readDynamic() (bool, error) {
	f := &rs.st.Current
	tok, ok, err := rs.next()
	if !ok {
		return false, err
	}
	var t reflect.Type
	switch tok.Kind {
	case engine.KindBeginObject:
		t = anyMapType
	case engine.KindBeginArray:
		t = anySliceType
	case engine.KindString:
		s, err := rs.text(&tok)
		if err != nil {
			return false, err
		}
		f.value = s
		return true, nil
	case engine.KindNumber:
		f.value = json.Number(tok.Raw)
		return true, nil
	case engine.KindBool:
		f.value = tok.Bool
		return true, nil
	case engine.KindNull:
		f.value = nil
		return true, nil
	default:
		return false, rs.mismatch(&tok, "unexpected %s", tok.Kind)
	}
	dd, err := rs.s.cache.Resolve(t)
	if err != nil {
		return false, rs.fail(err, &tok)
	}
	rs.pending, rs.hasPending = tok, true
	rs.st.EnterPolymorphic(dd)
	return rs.readKind(dd)
}

func (rs *readState) text(tok *engine.Token) (string, error) {
	if !tok.Escaped {
		return string(tok.Raw), nil
	}
	s, err := textcodec.UnescapeString(tok.Raw)
	if err != nil {
		return "", rs.fail(err, tok)
	}
	return s, nil
}

func (rs *readState) checkDepth(tok *engine.Token) error {
	if rs.st.Depth() > rs.s.opts.MaxDepth {
		return rs.issue(CodeDepthExceeded, fmt.Sprintf("depth %d exceeds maximum %d", rs.st.Depth(), rs.s.opts.MaxDepth), tok)
	}
	return nil
}

// expectEnd verifies that nothing but whitespace follows the value.
func (rs *readState) expectEnd() error {
	tok, err := rs.src.NextToken()
	switch {
	case err == io.EOF:
		return nil
	case err == nil:
		return newIssue(CodeMalformedInput, "$", fmt.Sprintf("unexpected %s after top-level value", tok.Kind), &tok)
	case errors.Is(err, engine.ErrNeedMore):
		return newIssue(CodeMalformedInput, "$", "unexpected end of input", &rs.last)
	}
	return toIssues(err, "$", &rs.last)
}

func resetMembers(f *Frame, d *typeinfo.Descriptor) {
	f.required = newBitset(d.RequiredCount)
	f.seen = newBitset(len(d.Members))
}

func (rs *readState) unexpected(tok *engine.Token, d *typeinfo.Descriptor) error {
	return rs.mismatch(tok, "unexpected %s for %s", tok.Kind, d.Type)
}

func (rs *readState) mismatch(tok *engine.Token, format string, args ...any) error {
	return newIssue(CodeSchemaMismatch, rs.st.Path(), fmt.Sprintf(format, args...), tok)
}

func (rs *readState) issue(code, msg string, tok *engine.Token) error {
	return newIssue(code, rs.st.Path(), msg, tok)
}

func (rs *readState) fail(err error, tok *engine.Token) error {
	return toIssues(err, rs.st.Path(), tok)
}
