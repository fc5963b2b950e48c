// Package textcodec holds the low-level text routines used by the
// serialization engine: JSON string escaping and unescaping, the fixed
// ISO-8601 profile used for dates, and UTF-8/UTF-16 transcoding.
//
// Every function is pure and keeps no shared mutable state besides
// scratch buffer pools, so the package is safe for concurrent use.
package textcodec
