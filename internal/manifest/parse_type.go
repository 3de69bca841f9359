package manifest

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/funvibe/boundary/internal/typesystem"
)

// ParseType parses a concrete type expression from a manifest, e.g.
// "Int", "List<Int>", "Map<String, List<Int>>".
func ParseType(s string) (typesystem.Type, error) {
	p := &typeParser{input: s}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("invalid type %q: trailing input at offset %d", s, p.pos)
	}
	return t, nil
}

type typeParser struct {
	input string
	pos   int
}

func (p *typeParser) parse() (typesystem.Type, error) {
	p.skipSpaces()
	name := p.readName()
	if name == "" {
		return nil, fmt.Errorf("invalid type %q: expected a type name at offset %d", p.input, p.pos)
	}

	p.skipSpaces()
	if !p.consume('<') {
		return typesystem.Con{Name: name}, nil
	}

	var args []typesystem.Type
	for {
		arg, err := p.parse()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		p.skipSpaces()
		if p.consume(',') {
			continue
		}
		if p.consume('>') {
			break
		}
		return nil, fmt.Errorf("invalid type %q: expected ',' or '>' at offset %d", p.input, p.pos)
	}

	return typesystem.App{Constructor: typesystem.Con{Name: name}, Args: args}, nil
}

func (p *typeParser) readName() string {
	start := p.pos
	for p.pos < len(p.input) {
		r := rune(p.input[p.pos])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

func (p *typeParser) skipSpaces() {
	p.pos += len(p.input[p.pos:]) - len(strings.TrimLeft(p.input[p.pos:], " \t"))
}

func (p *typeParser) consume(c byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == c {
		p.pos++
		return true
	}
	return false
}
