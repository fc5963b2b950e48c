//go:build gojson

package benchmarks_test

import (
	drv "github.com/reoring/jsonflow/source/gojson"
)

func init() {
	benchDriver = drv.Name
}
