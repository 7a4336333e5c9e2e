package xql

import (
	"strconv"
)

// maxNestingDepth bounds list nesting in a single literal.
const maxNestingDepth = 256

// Parse parses a single statement.
func Parse(query string) (Statement, error) {
	tokens, err := NewLexer(query).Tokenize()
	if err != nil {
		return nil, err
	}
	return parseStatement(tokens)
}

func parseStatement(tokens []Token) (Statement, error) {
	head := tokens[0]
	if head.Type == TokenEOF {
		return nil, NewParseError(head.Pos, "empty statement")
	}
	if head.Type != TokenIdent {
		return nil, NewParseErrorf(head.Pos, "expected key, found %s", head)
	}

	next := tokens[1]
	switch next.Type {
	case TokenEOF:
		return &GetStmt{nodeBase: nodeBase{pos: head.Pos}, Key: head.Literal}, nil

	case TokenBang:
		if err := expectEOF(tokens[2:]); err != nil {
			return nil, err
		}
		return &GetStmt{nodeBase: nodeBase{pos: head.Pos}, Key: head.Literal, Safe: true}, nil

	case TokenAssign:
		lit, rest, err := parseLiteral(tokens[2:])
		if err != nil {
			return nil, err
		}
		if err := expectEOF(rest); err != nil {
			return nil, err
		}
		return &AssignStmt{nodeBase: nodeBase{pos: head.Pos}, Key: head.Literal, Value: lit}, nil

	case TokenIdent:
		if head.Literal == keywordDelete {
			if err := expectEOF(tokens[2:]); err != nil {
				return nil, err
			}
			return &DeleteStmt{nodeBase: nodeBase{pos: head.Pos}, Key: next.Literal}, nil
		}
	}

	return nil, NewParseErrorf(next.Pos, "unexpected %s after key %q", next, head.Literal)
}

func expectEOF(tokens []Token) error {
	if tokens[0].Type != TokenEOF {
		return NewParseErrorf(tokens[0].Pos, "unexpected %s at end of statement", tokens[0])
	}
	return nil
}

// parseLiteral parses one literal from the front of tokens and returns it
// with the tokens that follow. tokens must end with TokenEOF.
func parseLiteral(tokens []Token) (Literal, []Token, error) {
	return parseLiteralDepth(tokens, 0)
}

func parseLiteralDepth(tokens []Token, depth int) (Literal, []Token, error) {
	tok := tokens[0]
	base := nodeBase{pos: tok.Pos}

	switch tok.Type {
	case TokenIdent:
		switch tok.Literal {
		case keywordNull:
			return &NullLit{nodeBase: base}, tokens[1:], nil
		case keywordTrue:
			return &BoolLit{nodeBase: base, Value: true}, tokens[1:], nil
		case keywordFalse:
			return &BoolLit{nodeBase: base, Value: false}, tokens[1:], nil
		}
		return nil, nil, NewParseErrorf(tok.Pos, "unexpected identifier %q (strings must be double-quoted)", tok.Literal)

	case TokenInt:
		i, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			return nil, nil, NewParseErrorf(tok.Pos, "integer literal %s out of range", tok.Literal)
		}
		return &IntLit{nodeBase: base, Value: i}, tokens[1:], nil

	case TokenFloat:
		f, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			return nil, nil, NewParseErrorf(tok.Pos, "float literal %s out of range", tok.Literal)
		}
		return &FloatLit{nodeBase: base, Value: f}, tokens[1:], nil

	case TokenString:
		return &StringLit{nodeBase: base, Value: tok.Literal}, tokens[1:], nil

	case TokenLBracket:
		return parseList(tokens, depth+1)

	default:
		return nil, nil, NewParseErrorf(tok.Pos, "expected literal, found %s", tok)
	}
}

// parseList parses a bracketed list starting at tokens[0] == '['.
func parseList(tokens []Token, depth int) (Literal, []Token, error) {
	open := tokens[0]
	if depth > maxNestingDepth {
		return nil, nil, NewParseErrorf(open.Pos, "lists nested deeper than %d", maxNestingDepth)
	}

	list := &ListLit{nodeBase: nodeBase{pos: open.Pos}, Elems: []Literal{}}
	rest := tokens[1:]
	if rest[0].Type == TokenRBracket {
		return list, rest[1:], nil
	}

	for {
		elem, after, err := parseLiteralDepth(rest, depth)
		if err != nil {
			return nil, nil, err
		}
		list.Elems = append(list.Elems, elem)
		rest = after

		switch rest[0].Type {
		case TokenComma:
			rest = rest[1:]
		case TokenRBracket:
			return list, rest[1:], nil
		case TokenEOF:
			return nil, nil, NewParseError(open.Pos, "unclosed '[': missing ']'")
		default:
			return nil, nil, NewParseErrorf(rest[0].Pos, "expected ',' or ']' in list, found %s", rest[0])
		}
	}
}
