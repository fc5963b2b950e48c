package typeinfo

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/reoring/jsonflow/textcodec"
)

func registerBuiltins(r *Registry) {
	RegisterPrimitive(r, func(v string) (Scalar, error) {
		return Scalar{Kind: ScalarString, Text: v}, nil
	}, func(s Scalar) (string, error) {
		if s.Kind != ScalarString {
			return "", mismatch[string](s, nil)
		}
		return s.Text, nil
	})
	RegisterPrimitive(r, func(v bool) (Scalar, error) {
		return Scalar{Kind: ScalarBool, Bool: v}, nil
	}, func(s Scalar) (bool, error) {
		if s.Kind != ScalarBool {
			return false, mismatch[bool](s, nil)
		}
		return s.Bool, nil
	})
	RegisterPrimitive(r, func(v json.Number) (Scalar, error) {
		return Scalar{Kind: ScalarNumber, Text: v.String()}, nil
	}, func(s Scalar) (json.Number, error) {
		if s.Kind != ScalarNumber {
			return "", mismatch[json.Number](s, nil)
		}
		return json.Number(s.Text), nil
	})
	RegisterPrimitive(r, encodeTime, decodeTime)

	registerInt[int](r, strconv.IntSize)
	registerInt[int8](r, 8)
	registerInt[int16](r, 16)
	registerInt[int32](r, 32)
	registerInt[int64](r, 64)
	registerUint[uint](r, strconv.IntSize)
	registerUint[uint8](r, 8)
	registerUint[uint16](r, 16)
	registerUint[uint32](r, 32)
	registerUint[uint64](r, 64)
	registerFloat[float32](r, 32)
	registerFloat[float64](r, 64)

	r.Register(reflect.TypeOf((*any)(nil)).Elem(), &Contract{Kind: KindDynamic})
	RegisterSlice[any](r)
	RegisterMap[any](r)
}

func mismatch[T any](s Scalar, err error) error {
	return &MismatchError{Type: reflect.TypeOf((*T)(nil)).Elem(), Got: s.Kind, Err: err}
}

func registerInt[T ~int | ~int8 | ~int16 | ~int32 | ~int64](r *Registry, bits int) {
	RegisterPrimitive(r, func(v T) (Scalar, error) {
		return Scalar{Kind: ScalarNumber, Text: strconv.FormatInt(int64(v), 10)}, nil
	}, func(s Scalar) (T, error) {
		if s.Kind != ScalarNumber {
			return 0, mismatch[T](s, nil)
		}
		n, err := strconv.ParseInt(s.Text, 10, bits)
		if err != nil {
			return 0, mismatch[T](s, err)
		}
		return T(n), nil
	})
}

func registerUint[T ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64](r *Registry, bits int) {
	RegisterPrimitive(r, func(v T) (Scalar, error) {
		return Scalar{Kind: ScalarNumber, Text: strconv.FormatUint(uint64(v), 10)}, nil
	}, func(s Scalar) (T, error) {
		if s.Kind != ScalarNumber {
			return 0, mismatch[T](s, nil)
		}
		n, err := strconv.ParseUint(s.Text, 10, bits)
		if err != nil {
			return 0, mismatch[T](s, err)
		}
		return T(n), nil
	})
}

func registerFloat[T ~float32 | ~float64](r *Registry, bits int) {
	RegisterPrimitive(r, func(v T) (Scalar, error) {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return Scalar{}, &UnsupportedTypeError{Type: reflect.TypeOf((*T)(nil)).Elem(), Reason: "non-finite number"}
		}
		return Scalar{Kind: ScalarNumber, Text: strconv.FormatFloat(f, 'g', -1, bits)}, nil
	}, func(s Scalar) (T, error) {
		if s.Kind != ScalarNumber {
			return 0, mismatch[T](s, nil)
		}
		f, err := strconv.ParseFloat(s.Text, bits)
		if err != nil {
			return 0, mismatch[T](s, err)
		}
		return T(f), nil
	})
}

func encodeTime(t time.Time) (Scalar, error) {
	b, err := textcodec.AppendDateTime(make([]byte, 0, 33), t)
	if err != nil {
		return Scalar{}, err
	}
	return Scalar{Kind: ScalarString, Text: string(b)}, nil
}

func decodeTime(s Scalar) (time.Time, error) {
	if s.Kind != ScalarString {
		return time.Time{}, mismatch[time.Time](s, nil)
	}
	dt, err := textcodec.ParseDateTime([]byte(s.Text))
	if err != nil {
		return time.Time{}, err
	}
	return dt.Time(), nil
}
