package jsonflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cycle() *Node {
	a := &Node{Name: "a"}
	b := &Node{Name: "b", Next: a}
	a.Next = b
	return a
}

func TestPreserveReferencesRoundTrip(t *testing.T) {
	s := newTestSerializer(Options{References: ReferencePreserve})
	got, err := s.Marshal(cycle())
	require.NoError(t, err)
	assert.Equal(t, `{"$id":"1","Name":"a","Next":{"$id":"2","Name":"b","Next":{"$ref":"1"}}}`, string(got))

	back, err := Unmarshal[*Node](s, got)
	require.NoError(t, err)
	assert.Equal(t, "a", back.Name)
	assert.Equal(t, "b", back.Next.Name)
	assert.Same(t, back, back.Next.Next)
}

func TestPreserveSharedReferences(t *testing.T) {
	shared := &Node{Name: "s"}
	root := &Node{Name: "r", Children: []*Node{shared, shared}}
	s := newTestSerializer(Options{References: ReferencePreserve})

	got, err := s.Marshal(root)
	require.NoError(t, err)
	assert.Equal(t, `{"$id":"1","Name":"r","Children":[{"$id":"2","Name":"s"},{"$ref":"2"}]}`, string(got))

	back, err := Unmarshal[*Node](s, got)
	require.NoError(t, err)
	require.Len(t, back.Children, 2)
	assert.Same(t, back.Children[0], back.Children[1])
}

func TestPreserveReferencesChunked(t *testing.T) {
	s := newTestSerializer(Options{References: ReferencePreserve, FlushThreshold: 1})
	want, err := s.Marshal(cycle())
	require.NoError(t, err)

	enc, err := s.NewEncoder(cycle())
	require.NoError(t, err)
	defer enc.Close()
	var out []byte
	for more := true; more; {
		var chunk []byte
		chunk, more, err = enc.Next()
		require.NoError(t, err)
		out = append(out, chunk...)
	}
	assert.Equal(t, string(want), string(out))
}

func TestReferenceErrors(t *testing.T) {
	s := newTestSerializer(Options{References: ReferencePreserve})
	cases := map[string]string{
		"unknown id":     `{"$id":"1","Next":{"$ref":"9"}}`,
		"ref with props": `{"$id":"1","Name":"a","Next":{"$ref":"1","Name":"x"}}`,
		"ref after id":   `{"$id":"1","$ref":"1"}`,
		"duplicate id":   `{"$id":"1","Name":"a","Next":{"$id":"1","Name":"b"}}`,
		"non-string id":  `{"$id":1}`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Unmarshal[*Node](s, []byte(doc))
			assert.True(t, errors.Is(err, ErrSchemaMismatch), "%v", err)
		})
	}

	_, err := Unmarshal[*Order](s, []byte(`{"$id":"1","ID":"x","Customer":{"$ref":"1"}}`))
	it := firstIssue(t, err)
	assert.Equal(t, CodeSchemaMismatch, it.Code)
	assert.Equal(t, "$.Customer", it.Path)
}

func TestReferenceMetadataIgnoredWithoutPreserve(t *testing.T) {
	s := newTestSerializer()
	n, err := Unmarshal[*Node](s, []byte(`{"$id":"1","Name":"a"}`))
	require.NoError(t, err)
	assert.Equal(t, "a", n.Name)
}

func TestCycleWithoutPreserve(t *testing.T) {
	_, err := newTestSerializer().Marshal(cycle())
	it := firstIssue(t, err)
	assert.Equal(t, CodeReferenceCycle, it.Code)
	assert.Equal(t, "$.Next.Next", it.Path)
	assert.True(t, errors.Is(err, ErrReferenceCycle))
}

func TestIgnoreCycles(t *testing.T) {
	s := newTestSerializer(Options{References: ReferenceIgnoreCycles})
	got, err := s.Marshal(cycle())
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"a","Next":{"Name":"b","Next":null}}`, string(got))

	shared := &Node{Name: "s"}
	got, err = s.Marshal(&Node{Name: "r", Children: []*Node{shared, shared}})
	require.NoError(t, err)
	assert.Equal(t, `{"Name":"r","Children":[{"Name":"s"},{"Name":"s"}]}`, string(got))
}

func TestContainerCycles(t *testing.T) {
	selfMap := func() map[string]any {
		m := map[string]any{"a": 1}
		m["self"] = m
		return m
	}
	selfSlice := func() []any {
		s := []any{1, nil}
		s[1] = s
		return s
	}

	for _, mode := range []ReferenceHandling{ReferenceNone, ReferencePreserve} {
		s := newTestSerializer(Options{References: mode})

		_, err := s.Marshal(selfMap())
		it := firstIssue(t, err)
		assert.Equal(t, CodeReferenceCycle, it.Code, mode.String())
		assert.Equal(t, "$.self", it.Path, mode.String())

		_, err = s.Marshal(selfSlice())
		it = firstIssue(t, err)
		assert.Equal(t, CodeReferenceCycle, it.Code, mode.String())
		assert.Equal(t, "$[1]", it.Path, mode.String())
	}

	s := newTestSerializer(Options{References: ReferenceIgnoreCycles})
	got, err := s.Marshal(selfMap())
	require.NoError(t, err)
	assert.Equal(t, `{"a":1,"self":null}`, string(got))

	got, err = s.Marshal(selfSlice())
	require.NoError(t, err)
	assert.Equal(t, `[1,null]`, string(got))
}

func TestSharedContainersAreNotCycles(t *testing.T) {
	inner := map[string]any{"k": "v"}
	list := []any{1, 2}
	got, err := newTestSerializer().Marshal(map[string]any{"a": inner, "b": inner, "c": list, "d": list, "e": list[:1]})
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"k":"v"},"b":{"k":"v"},"c":[1,2],"d":[1,2],"e":[1]}`, string(got))
}
