package engine

import "strconv"

// LimitError reports input that runs past a configured size.
type LimitError struct {
	Limit  int64
	Offset int64
}

func (e *LimitError) Error() string {
	return "engine: input exceeds " + strconv.FormatInt(e.Limit, 10) +
		" bytes at offset " + strconv.FormatInt(e.Offset, 10)
}

// Limit wraps inner so that any token ending past maxBytes fails with a
// LimitError. Sources that cannot report a location are not limited.
// maxBytes <= 0 returns inner unchanged.
func Limit(inner TokenSource, maxBytes int64) TokenSource {
	if maxBytes <= 0 {
		return inner
	}
	return &limitedSource{inner: inner, max: maxBytes}
}

type limitedSource struct {
	inner TokenSource
	max   int64
}

func (s *limitedSource) NextToken() (Token, error) {
	tok, err := s.inner.NextToken()
	if err != nil {
		return tok, err
	}
	if off := s.inner.Location(); off > s.max {
		return Token{}, &LimitError{Limit: s.max, Offset: off}
	}
	return tok, nil
}

func (s *limitedSource) Location() int64 { return s.inner.Location() }
