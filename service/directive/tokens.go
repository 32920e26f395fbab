package directive

import (
	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

// Token codes start at 1 to stay clear of parsly.EOF.
const (
	keyCode = iota + 1
	dotCode
	openSquareBracketCode
	closeSquareBracketCode
	indexCode
)

var (
	keyToken                = parsly.NewToken(keyCode, "Key", &keyMatcher{})
	dotToken                = parsly.NewToken(dotCode, ".", matcher.NewByte('.'))
	openSquareBracketToken  = parsly.NewToken(openSquareBracketCode, "[", matcher.NewByte('['))
	closeSquareBracketToken = parsly.NewToken(closeSquareBracketCode, "]", matcher.NewByte(']'))
	indexToken              = parsly.NewToken(indexCode, "Index", &indexMatcher{})
)

// keyMatcher matches a path key: anything up to '.', '[' or ']'.
type keyMatcher struct{}

func (m *keyMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		switch cursor.Input[i] {
		case '.', '[', ']':
			return matched
		}
		matched++
	}
	return matched
}

// indexMatcher matches a non negative integer.
type indexMatcher struct{}

func (m *indexMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		if c := cursor.Input[i]; c < '0' || c > '9' {
			break
		}
		matched++
	}
	return matched
}
