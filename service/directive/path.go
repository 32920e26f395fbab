package directive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/viant/parsly"
)

// Step is a single path element: a map key or a slice index.
type Step struct {
	Key     string
	Index   int
	IsIndex bool
}

func (s Step) String() string {
	if s.IsIndex {
		return "[" + strconv.Itoa(s.Index) + "]"
	}
	return s.Key
}

// Path is a parsed directive path.
type Path []Step

func (p Path) String() string {
	builder := strings.Builder{}
	for i, step := range p {
		if i > 0 && !step.IsIndex {
			builder.WriteByte('.')
		}
		builder.WriteString(step.String())
	}
	return builder.String()
}

// ParsePath parses dot separated keys with optional [n] indices, for
// example "data.items[2].name".
func ParsePath(path string) (Path, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("path was empty")
	}
	cursor := parsly.NewCursor("path", []byte(path), 0)
	var ret Path
	expectKey := true
	for {
		if expectKey {
			matched := cursor.MatchOne(keyToken)
			if matched.Code != keyCode {
				return nil, cursor.NewError(keyToken)
			}
			ret = append(ret, Step{Key: matched.Text(cursor)})
			expectKey = false
		}
		matched := cursor.MatchAny(dotToken, openSquareBracketToken)
		switch matched.Code {
		case dotCode:
			expectKey = true
		case openSquareBracketCode:
			matched = cursor.MatchOne(indexToken)
			if matched.Code != indexCode {
				return nil, cursor.NewError(indexToken)
			}
			index, err := strconv.Atoi(matched.Text(cursor))
			if err != nil {
				return nil, fmt.Errorf("invalid index in %v: %w", path, err)
			}
			if cursor.MatchOne(closeSquareBracketToken).Code != closeSquareBracketCode {
				return nil, cursor.NewError(closeSquareBracketToken)
			}
			ret = append(ret, Step{Index: index, IsIndex: true})
		case parsly.EOF:
			return ret, nil
		default:
			return nil, cursor.NewError(dotToken, openSquareBracketToken)
		}
	}
}
