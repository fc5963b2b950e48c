package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFmt(t *testing.T) {
	for _, driver := range []string{"lexer", "gojson"} {
		t.Run(driver, func(t *testing.T) {
			var out bytes.Buffer
			in := strings.NewReader("{\"b\": [1, 2.50],\n \"a\": \"x y\"}")
			err := run([]string{"fmt", "--driver", driver, "--chunk", "3", "--flush", "4", "--escaping", "web_safe"}, in, &out)
			require.NoError(t, err)
			assert.Equal(t, `{"a":"x y","b":[1,2.50]}`+"\n", out.String())
		})
	}
}

func TestFmtErrors(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"fmt", "--driver", "nope"}, strings.NewReader("1"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown driver "nope"`)

	err = run([]string{"fmt"}, strings.NewReader("[1,"), &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed_input")

	err = run([]string{"fmt", "--escaping", "loud"}, strings.NewReader("1"), &out)
	require.Error(t, err)
}

func TestDate(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"date", "2024-01-02", "2024-01-02T03:04:05.2500+09:00"}, nil, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "2024-01-02\tkind=date "))
	assert.True(t, strings.HasPrefix(lines[1], "2024-01-02T03:04:05.25+09:00\tkind=offset "))

	err := run([]string{"date", "2024-13-01"}, nil, &out)
	assert.Error(t, err)
}

func TestDrivers(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"drivers"}, nil, &out))
	assert.Equal(t, "gojson\nlexer\n", out.String())
}
