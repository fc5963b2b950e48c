// Package jsonflow is a streaming JSON serializer whose reads and writes can
// suspend at any point and resume later.
//
// - Types are described through typeinfo.Provider (usually a typeinfo.Registry)
//   and resolved once into cached descriptors.
// - Encoder hands out output in chunks of about Options.FlushThreshold bytes;
//   Decoder accepts input in chunks of any size, including splits inside a
//   token.
// - Polymorphic values carry a discriminator ($type by default); object graphs
//   may be written with $id/$ref reference preservation.
// - Failures are Issues carrying a code, the JSONPath of the value and the
//   input offset.
//
// Design policy:
// - Keep only public APIs in the root package; put the token transport and
//   buffer pooling under internal/.
// - Drivers producing tokens from other parsers live under source/; the CLI
//   lives under cmd/jsonflow.
//
// Typical usage:
//
//	reg := typeinfo.NewRegistry()
//	typeinfo.RegisterObject[Order](reg,
//		typeinfo.Field("ID", func(o *Order) string { return o.ID }, func(o *Order, v string) { o.ID = v }, typeinfo.Required()),
//	)
//	s := jsonflow.New(reg, jsonflow.Options{Naming: typeinfo.CamelCase})
//
//	data, err := s.Marshal(order)
//	o, err := jsonflow.Unmarshal[*Order](s, data)
//
//	enc, err := s.NewEncoder(order)
//	defer enc.Close()
//	for more := true; more; {
//		var chunk []byte
//		if chunk, more, err = enc.Next(); err != nil {
//			return err
//		}
//		w.Write(chunk)
//	}
package jsonflow
