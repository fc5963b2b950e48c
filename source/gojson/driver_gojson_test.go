package gojson_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/jsonflow"
	"github.com/reoring/jsonflow/source/gojson"
	"github.com/reoring/jsonflow/typeinfo"
)

const doc = `{"name":"café \"x\"","tags":["a",{"b":[1,2.5,-3e2]}],"ok":true,"none":null,"n":{}}`

func TestDriverRegistered(t *testing.T) {
	d, ok := jsonflow.LookupDriver(gojson.Name)
	require.True(t, ok)
	assert.Equal(t, gojson.Name, d.Name())
	assert.Contains(t, jsonflow.Drivers(), jsonflow.DefaultDriver)
	assert.Contains(t, jsonflow.Drivers(), gojson.Name)
}

func TestDriverMatchesLexer(t *testing.T) {
	s := jsonflow.New(typeinfo.NewRegistry())
	anyT := reflect.TypeOf((*any)(nil)).Elem()

	lex, ok := jsonflow.LookupDriver(jsonflow.DefaultDriver)
	require.True(t, ok)
	want, err := s.DecodeSource(lex.NewBytes([]byte(doc)), anyT)
	require.NoError(t, err)

	got, err := s.DecodeSource(gojson.NewBytes([]byte(doc)), anyT)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	m := got.(map[string]any)
	assert.Equal(t, "café \"x\"", m["name"])
}

func TestDriverTokenKinds(t *testing.T) {
	src := gojson.NewBytes([]byte(`{"a":[true,null,"s"]}`))
	var kinds []jsonflow.TokenKind
	for {
		tok, err := src.NextToken()
		if err != nil {
			break
		}
		kinds = append(kinds, tok.Kind)
	}
	assert.Equal(t, []jsonflow.TokenKind{
		jsonflow.TokenBeginObject, jsonflow.TokenKey, jsonflow.TokenBeginArray,
		jsonflow.TokenBool, jsonflow.TokenNull, jsonflow.TokenString,
		jsonflow.TokenEndArray, jsonflow.TokenEndObject,
	}, kinds)
	assert.Equal(t, int64(-1), src.Location())
}

func TestDriverMalformed(t *testing.T) {
	s := jsonflow.New(typeinfo.NewRegistry())
	_, err := s.DecodeSource(gojson.NewBytes([]byte(`[tru]`)), reflect.TypeOf((*any)(nil)).Elem())
	require.Error(t, err)
	assert.True(t, errors.Is(err, jsonflow.ErrMalformedInput))
}

func TestDriverHonorsMaxBytes(t *testing.T) {
	s := jsonflow.New(typeinfo.NewRegistry(), jsonflow.Options{MaxBytes: 16})
	big := []byte(`["` + strings.Repeat("x", 200) + `",1,2,3]`)

	_, err := s.DecodeSource(gojson.NewBytes(big), reflect.TypeOf((*any)(nil)).Elem())
	require.Error(t, err)
	assert.True(t, errors.Is(err, jsonflow.ErrLimitExceeded), err.Error())
	iss, ok := jsonflow.AsIssues(err)
	require.True(t, ok)
	assert.Greater(t, iss[0].Offset, int64(16))

	// Small documents are unaffected.
	v, err := s.DecodeSource(gojson.NewBytes([]byte(`[1,2]`)), reflect.TypeOf((*any)(nil)).Elem())
	require.NoError(t, err)
	assert.Len(t, v, 2)
}
