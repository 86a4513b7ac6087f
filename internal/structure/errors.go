package structure

import "fmt"

// ParseError reports a structure file that could not be read. It is fatal for
// the entry being processed and for nothing else.
type ParseError struct {
	Path string
	Line int
	Err  error
}

func (e ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s:%d: %v", e.Path, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e ParseError) Unwrap() error { return e.Err }
