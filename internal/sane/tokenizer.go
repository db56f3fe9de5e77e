package sane

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokBool
	tokEquals
	tokComma
	tokLBracket
	tokRBracket
	tokLBrace
	tokRBrace
	tokNewline
)

type token struct {
	kind tokenKind
	text string
	num  float64
	isInt bool
	ival int64
	line int
}

type tokenizer struct {
	src  []rune
	pos  int
	line int
}

func newTokenizer(data []byte) *tokenizer {
	return &tokenizer{src: []rune(string(data)), line: 1}
}

func (t *tokenizer) peekRune() (rune, bool) {
	if t.pos >= len(t.src) {
		return 0, false
	}
	return t.src[t.pos], true
}

func (t *tokenizer) advance() (rune, bool) {
	r, ok := t.peekRune()
	if !ok {
		return 0, false
	}
	t.pos++
	if r == '\n' {
		t.line++
	}
	return r, true
}

// tokens lexes the entire input up front; SANE documents are small metadata
// and config files, so there is no benefit to lazy tokenization.
func (t *tokenizer) tokens() ([]token, error) {
	var out []token
	for {
		tok, err := t.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.kind == tokEOF {
			break
		}
	}
	return out, nil
}

func (t *tokenizer) next() (token, error) {
	for {
		r, ok := t.peekRune()
		if !ok {
			return token{kind: tokEOF, line: t.line}, nil
		}
		switch {
		case r == '\n':
			line := t.line
			t.advance()
			return token{kind: tokNewline, line: line}, nil
		case r == ' ' || r == '\t' || r == '\r':
			t.advance()
			continue
		case r == '#':
			for {
				r, ok := t.peekRune()
				if !ok || r == '\n' {
					break
				}
				t.advance()
			}
			continue
		case r == '=':
			line := t.line
			t.advance()
			return token{kind: tokEquals, line: line}, nil
		case r == ',':
			line := t.line
			t.advance()
			return token{kind: tokComma, line: line}, nil
		case r == '[':
			line := t.line
			t.advance()
			return token{kind: tokLBracket, line: line}, nil
		case r == ']':
			line := t.line
			t.advance()
			return token{kind: tokRBracket, line: line}, nil
		case r == '{':
			line := t.line
			t.advance()
			return token{kind: tokLBrace, line: line}, nil
		case r == '}':
			line := t.line
			t.advance()
			return token{kind: tokRBrace, line: line}, nil
		case r == '"':
			return t.lexString()
		case r == '-' || (r >= '0' && r <= '9'):
			return t.lexNumber()
		case isIdentStart(r):
			return t.lexIdent()
		default:
			return token{}, &SyntaxError{Line: t.line, Msg: fmt.Sprintf("unexpected character %q", r)}
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || (r >= '0' && r <= '9')
}

func (t *tokenizer) lexIdent() (token, error) {
	line := t.line
	start := t.pos
	for {
		r, ok := t.peekRune()
		if !ok || !isIdentPart(r) {
			break
		}
		t.advance()
	}
	text := string(t.src[start:t.pos])
	switch text {
	case "true":
		return token{kind: tokBool, text: text, line: line}, nil
	case "false":
		return token{kind: tokBool, text: text, line: line}, nil
	default:
		return token{kind: tokIdent, text: text, line: line}, nil
	}
}

func (t *tokenizer) lexNumber() (token, error) {
	line := t.line
	start := t.pos
	if r, ok := t.peekRune(); ok && r == '-' {
		t.advance()
	}
	isFloat := false
	for {
		r, ok := t.peekRune()
		if !ok {
			break
		}
		if r >= '0' && r <= '9' {
			t.advance()
			continue
		}
		if r == '.' && !isFloat {
			isFloat = true
			t.advance()
			continue
		}
		break
	}
	text := string(t.src[start:t.pos])
	tok := token{kind: tokNumber, text: text, line: line}
	if isFloat {
		var f float64
		if _, err := fmt.Sscanf(text, "%g", &f); err != nil {
			return token{}, &SyntaxError{Line: line, Msg: "invalid number " + text}
		}
		tok.num = f
	} else {
		var i int64
		if _, err := fmt.Sscanf(text, "%d", &i); err != nil {
			return token{}, &SyntaxError{Line: line, Msg: "invalid number " + text}
		}
		tok.ival = i
		tok.isInt = true
	}
	return tok, nil
}

func (t *tokenizer) lexString() (token, error) {
	line := t.line
	t.advance() // opening quote
	var sb strings.Builder
	for {
		r, ok := t.advance()
		if !ok {
			return token{}, &SyntaxError{Line: line, Msg: "unterminated string"}
		}
		if r == '"' {
			return token{kind: tokString, text: sb.String(), line: line}, nil
		}
		if r == '\\' {
			esc, ok := t.advance()
			if !ok {
				return token{}, &SyntaxError{Line: line, Msg: "unterminated string escape"}
			}
			switch esc {
			case 'n':
				sb.WriteRune('\n')
			case 't':
				sb.WriteRune('\t')
			case 'r':
				sb.WriteRune('\r')
			case '"':
				sb.WriteRune('"')
			case '\\':
				sb.WriteRune('\\')
			default:
				return token{}, &SyntaxError{Line: line, Msg: fmt.Sprintf("unknown escape \\%c", esc)}
			}
			continue
		}
		sb.WriteRune(r)
	}
}
