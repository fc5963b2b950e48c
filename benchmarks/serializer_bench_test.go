package benchmarks_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"reflect"
	"testing"

	"github.com/reoring/jsonflow"
	"github.com/reoring/jsonflow/typeinfo"
)

// benchDriver is replaced by driver_select_*_test.go under build tags.
var benchDriver = jsonflow.DefaultDriver

// ---- Helpers ----

type user struct {
	ID    string
	Name  string
	Score float64
	Tags  []string
}

func benchSerializer(tb testing.TB, opts ...jsonflow.Options) *jsonflow.Serializer {
	tb.Helper()
	r := typeinfo.NewRegistry()
	typeinfo.RegisterSlice[string](r)
	typeinfo.RegisterSlice[*user](r)
	typeinfo.RegisterObject[user](r,
		typeinfo.Field("id", func(u *user) string { return u.ID }, func(u *user, v string) { u.ID = v }, typeinfo.Required()),
		typeinfo.Field("name", func(u *user) string { return u.Name }, func(u *user, v string) { u.Name = v }),
		typeinfo.Field("score", func(u *user) float64 { return u.Score }, func(u *user, v float64) { u.Score = v }),
		typeinfo.Field("tags", func(u *user) []string { return u.Tags }, func(u *user, v []string) { u.Tags = v }, typeinfo.OmitNil()),
	)
	return jsonflow.New(r, opts...)
}

func users(n int) []*user {
	out := make([]*user, n)
	for i := range out {
		out[i] = &user{ID: fmt.Sprintf("u%d", i), Name: "name \"quoted\"", Score: float64(i) / 4, Tags: []string{"a", "b"}}
	}
	return out
}

func usersJSON(tb testing.TB, n int) []byte {
	tb.Helper()
	b, err := benchSerializer(tb).Marshal(users(n))
	if err != nil {
		tb.Fatalf("marshal: %v", err)
	}
	return b
}

// ---- Benchmarks ----

func BenchmarkMarshal(b *testing.B) {
	for _, n := range []int{1, 100, 10000} {
		b.Run(fmt.Sprintf("n=%d", n), func(b *testing.B) {
			s := benchSerializer(b)
			v := users(n)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := s.Marshal(v); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEncode(b *testing.B) {
	for _, threshold := range []int{64, 4096} {
		b.Run(fmt.Sprintf("flush=%d", threshold), func(b *testing.B) {
			s := benchSerializer(b, jsonflow.Options{FlushThreshold: threshold})
			v := users(1000)
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if err := s.Encode(context.Background(), io.Discard, v); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	s := benchSerializer(b)
	data := usersJSON(b, 1000)
	t := reflect.TypeOf((*[]*user)(nil)).Elem()
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Unmarshal(data, t); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecodeDriver(b *testing.B) {
	drv, ok := jsonflow.LookupDriver(benchDriver)
	if !ok {
		b.Fatalf("driver %q not registered", benchDriver)
	}
	s := benchSerializer(b)
	data := usersJSON(b, 1000)
	t := reflect.TypeOf((*[]*user)(nil)).Elem()
	b.SetBytes(int64(len(data)))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.DecodeSource(drv.NewReader(bytes.NewReader(data)), t); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecoderChunks(b *testing.B) {
	for _, chunk := range []int{16, 4096} {
		b.Run(fmt.Sprintf("chunk=%d", chunk), func(b *testing.B) {
			s := benchSerializer(b)
			data := usersJSON(b, 1000)
			t := reflect.TypeOf((*[]*user)(nil)).Elem()
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				dec, err := s.NewDecoder(t)
				if err != nil {
					b.Fatal(err)
				}
				for p := data; len(p) > 0; {
					k := min(chunk, len(p))
					if err := dec.Feed(p[:k]); err != nil {
						b.Fatal(err)
					}
					p = p[k:]
				}
				if _, err := dec.Finish(); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
