package jsonflow

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/reoring/jsonflow/textcodec"
	"github.com/reoring/jsonflow/typeinfo"
)

// ReferenceHandling controls object identity on the wire.
type ReferenceHandling uint8

const (
	// ReferenceNone writes objects by value; a cycle is an error.
	ReferenceNone ReferenceHandling = iota
	// ReferencePreserve writes $id on first sight and $ref afterwards.
	ReferencePreserve
	// ReferenceIgnoreCycles writes null where a cycle would start.
	ReferenceIgnoreCycles
)

var referenceNames = []string{"none", "preserve", "ignore_cycles"}

func (r ReferenceHandling) String() string               { return enumName(referenceNames, r) }
func (r ReferenceHandling) MarshalText() ([]byte, error) { return []byte(r.String()), nil }
func (r *ReferenceHandling) UnmarshalText(b []byte) error {
	return parseEnum("reference handling", referenceNames, b, r)
}

// UnknownMemberHandling controls properties without a matching member.
type UnknownMemberHandling uint8

const (
	SkipUnknown UnknownMemberHandling = iota
	DisallowUnknown
)

var unknownNames = []string{"skip", "disallow"}

func (u UnknownMemberHandling) String() string               { return enumName(unknownNames, u) }
func (u UnknownMemberHandling) MarshalText() ([]byte, error) { return []byte(u.String()), nil }
func (u *UnknownMemberHandling) UnmarshalText(b []byte) error {
	return parseEnum("unknown member handling", unknownNames, b, u)
}

// DuplicateHandling controls repeated property names within one object.
type DuplicateHandling uint8

const (
	// AllowDuplicates keeps the last value.
	AllowDuplicates DuplicateHandling = iota
	DisallowDuplicates
)

var duplicateNames = []string{"allow", "disallow"}

func (d DuplicateHandling) String() string               { return enumName(duplicateNames, d) }
func (d DuplicateHandling) MarshalText() ([]byte, error) { return []byte(d.String()), nil }
func (d *DuplicateHandling) UnmarshalText(b []byte) error {
	return parseEnum("duplicate handling", duplicateNames, b, d)
}

// Escaping names a builtin escaping policy.
type Escaping uint8

const (
	EscapeRelaxed Escaping = iota
	EscapeWebSafe
	EscapeASCII
)

var escapingNames = []string{"relaxed", "web_safe", "ascii"}

func (e Escaping) String() string               { return enumName(escapingNames, e) }
func (e Escaping) MarshalText() ([]byte, error) { return []byte(e.String()), nil }
func (e *Escaping) UnmarshalText(b []byte) error {
	return parseEnum("escaping", escapingNames, b, e)
}

// Policy returns the textcodec policy for e.
func (e Escaping) Policy() textcodec.Policy {
	switch e {
	case EscapeWebSafe:
		return textcodec.WebSafe
	case EscapeASCII:
		return textcodec.ASCII
	}
	return textcodec.Relaxed
}

// Default limits.
const (
	DefaultMaxDepth       = 64
	DefaultFlushThreshold = 16 * 1024
	DefaultReadBufferSize = 4 * 1024
)

// Options configures a Serializer. Zero fields take their defaults; when
// several Options are passed the last one wins.
type Options struct {
	MaxDepth int `yaml:"max_depth"`
	// FlushThreshold is the buffered byte count at which an Encoder
	// suspends and hands out a chunk.
	FlushThreshold int `yaml:"flush_threshold"`
	// ReadBufferSize is the chunk size Decode reads with.
	ReadBufferSize int `yaml:"read_buffer_size"`
	// MaxBytes limits the input size on read; 0 means unlimited.
	MaxBytes int64 `yaml:"max_bytes"`

	References     ReferenceHandling     `yaml:"references"`
	UnknownMembers UnknownMemberHandling `yaml:"unknown_members"`
	Duplicates     DuplicateHandling     `yaml:"duplicates"`
	Naming         typeinfo.Naming       `yaml:"naming"`
	Escaping       Escaping              `yaml:"escaping"`

	// Policy overrides Escaping with a custom policy.
	Policy textcodec.Policy `yaml:"-"`
	Logger *zap.Logger      `yaml:"-"`
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	if o.FlushThreshold <= 0 {
		o.FlushThreshold = DefaultFlushThreshold
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
	if o.Policy == nil {
		o.Policy = o.Escaping.Policy()
	}
	if o.Logger == nil {
		o.Logger = Logger()
	}
	return o
}

// LoadOptions reads Options from YAML. Unknown keys are rejected.
func LoadOptions(r io.Reader) (Options, error) {
	var o Options
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&o); err != nil && err != io.EOF {
		return Options{}, fmt.Errorf("jsonflow: load options: %w", err)
	}
	return o, nil
}

// LoadOptionsFile reads Options from a YAML file.
func LoadOptionsFile(path string) (Options, error) {
	f, err := os.Open(path)
	if err != nil {
		return Options{}, err
	}
	defer f.Close()
	return LoadOptions(f)
}

func enumName[T ~uint8](names []string, v T) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%d", v)
}

func parseEnum[T ~uint8](what string, names []string, b []byte, out *T) error {
	s := strings.ToLower(strings.TrimSpace(string(b)))
	for i, n := range names {
		if s == n {
			*out = T(i)
			return nil
		}
	}
	return fmt.Errorf("jsonflow: unknown %s %q (want one of %s)", what, s, strings.Join(names, ", "))
}
