// Package benchmarks holds serializer benchmarks. Run with -tags gojson to
// measure DecodeSource through the go-json token driver.
package benchmarks
