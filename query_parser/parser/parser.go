package parser

import (
	lex "DaemonDB/query_parser/lexer"
	"fmt"
)

type Parser struct {
	l         *lex.Lexer
	curToken  lex.Token
	peekToken lex.Token
}

func New(l *lex.Lexer) *Parser {
	p := &Parser{l: l}
	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) expect(kind lex.TokenKind) error {
	if p.curToken.Kind != kind {
		return fmt.Errorf("expected %s, got %s (%s)", kind, p.curToken.Kind, p.curToken.Value)
	}
	return nil
}

// Entry point
func (p *Parser) ParseStatement() (stmt Statement, err error) {
	defer func() {
		if r := recover(); r != nil {
			stmt = nil
			err = fmt.Errorf("%v", r)
		}
	}()

	switch p.curToken.Kind {
	case lex.SHOW:
		return p.parseShowDatabases()
	case lex.SELECT:
		return p.parseSelect(), nil
	case lex.INSERT:
		return p.parseInsert(), nil
	case lex.UPDATE:
		return p.parseUpdate(), nil
	case lex.USE:
		return p.parseUseDatabase()
	case lex.DROP:
		return p.parseDrop(), nil
	case lex.IDENT: // CREATE TABLE starts with "create"
		if p.curToken.Value == "create" || p.curToken.Value == "CREATE" {
			p.nextToken() // consume create
			switch p.curToken.Value {
			case "database", "DATABASE":
				return p.parseCreateDatabase()
			case "table", "TABLE":
				return p.parseCreateTable()
			}
		}
	}
	return nil, fmt.Errorf("unexpected token: %s (%s)", p.curToken.Kind, p.curToken.Value)
}
