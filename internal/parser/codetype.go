package parser

import (
	"github.com/dangdungcntt/go-rythm/internal/codetype"
	"github.com/dangdungcntt/go-rythm/internal/escape"
)

// codeTypeRecord is one entry of the code-type arena. parent indexes the
// enclosing record, -1 at the bottom.
type codeTypeRecord struct {
	lang   *codetype.Lang
	parent int
}

// codeTypeStack keeps the active code types. Pushing links the new record
// to the previously active one so inner languages can fall back to it.
type codeTypeStack struct {
	records []codeTypeRecord
}

func (s *codeTypeStack) push(l *codetype.Lang) {
	s.records = append(s.records, codeTypeRecord{lang: l, parent: len(s.records) - 1})
}

func (s *codeTypeStack) pop() *codetype.Lang {
	if len(s.records) == 0 {
		return nil
	}
	l := s.records[len(s.records)-1].lang
	s.records = s.records[:len(s.records)-1]
	return l
}

func (s *codeTypeStack) peek() *codetype.Lang {
	if len(s.records) == 0 {
		return nil
	}
	return s.records[len(s.records)-1].lang
}

func (s *codeTypeStack) parent() *codetype.Lang {
	if len(s.records) == 0 {
		return nil
	}
	p := s.records[len(s.records)-1].parent
	if p < 0 {
		return nil
	}
	return s.records[p].lang
}

func (s *codeTypeStack) clear() {
	s.records = s.records[:0]
}

// escapeKind walks from the top record through parent links to the first
// language that defines an escape kind.
func (s *codeTypeStack) escapeKind() escape.Kind {
	for i := len(s.records) - 1; i >= 0; i = s.records[i].parent {
		if k := s.records[i].lang.Escape; k != "" {
			return k
		}
	}
	return escape.Raw
}
