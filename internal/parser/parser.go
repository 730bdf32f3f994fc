// Package parser builds an AST from a preprocessed token stream
// (spec.md §4.3).
//
// The teacher's asm/parser.go parses and emits machine words in the same
// pass, a one-state-variable loop (`state int`) tracking whether the next
// token must be a literal argument. This module needs a real tree (for the
// two-pass semantic analyzer, §4.4) and a directive set big enough that a
// single state variable can't track it, so parsing follows the teacher's
// "keep going after an error, recover at a safe boundary" discipline
// (mirrored here as "advance to the next newline") but is structured as
// recursive descent with a directive-name → handler registry, the same
// registry shape Consensys-go-corset's parser uses for its grammar rules.
package parser

import (
	"strings"

	"github.com/rainco77/evochora-sub013/internal/ast"
	"github.com/rainco77/evochora-sub013/internal/diag"
	"github.com/rainco77/evochora-sub013/internal/token"
)

// directiveHandler parses one directive, given the parser positioned just
// past the directive token itself, and returns the AST node it produced.
type directiveHandler func(p *Parser, pos diag.Pos) ast.Node

var directiveHandlers map[string]directiveHandler

func init() {
	directiveHandlers = map[string]directiveHandler{
		".DEFINE":   (*Parser).parseDefine,
		".ORG":      (*Parser).parseOrg,
		".DIR":      (*Parser).parseDir,
		".PROC":     (*Parser).parseProcedure,
		".SCOPE":    (*Parser).parseScope,
		".REQUIRE":  (*Parser).parseRequire,
		".IMPORT":   (*Parser).parseImport,
		".PLACE":    (*Parser).parsePlace,
		".REG":      (*Parser).parseReg,
		".PREG":     (*Parser).parseReg,
		".PUSH_CTX": (*Parser).parsePushCtx,
		".POP_CTX":  (*Parser).parsePopCtx,
	}
}

// Parser consumes a flat token slice and produces a list of top-level AST
// nodes.
type Parser struct {
	file string
	toks []token.Token
	pos  int
	diag *diag.Engine
}

// New creates a Parser over toks, reporting to d.
func New(file string, toks []token.Token, d *diag.Engine) *Parser {
	return &Parser{file: file, toks: toks, diag: d}
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) at(k token.Kind) bool { return p.cur().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for p.at(token.Newline) {
		p.advance()
	}
}

// expect consumes the current token if it has kind k, else records a
// diagnostic and returns the zero Token.
func (p *Parser) expect(k token.Kind, what string) (token.Token, bool) {
	if p.cur().Kind != k {
		p.diag.Errorf(p.cur().Pos, "expected %s, got %s %q", what, p.cur().Kind, p.cur().Text)
		return token.Token{}, false
	}
	return p.advance(), true
}

// recover advances to the next newline (or EOF), the parser's error
// recovery boundary (spec.md §4.3).
func (p *Parser) recover() {
	for !p.at(token.Newline) && !p.at(token.EOF) {
		p.advance()
	}
	p.skipNewlines()
}

// Parse consumes the whole token stream and returns the file's top-level
// item list.
func (p *Parser) Parse() *ast.File {
	f := &ast.File{Name: p.file}
	f.Pos = p.cur().Pos
	for {
		p.skipNewlines()
		if p.at(token.EOF) {
			break
		}
		if n := p.parseItem(); n != nil {
			f.Items = append(f.Items, n)
		}
	}
	return f
}

// parseItem parses one top-level or body-level item: a directive, a label
// definition, or an instruction.
func (p *Parser) parseItem() ast.Node {
	t := p.cur()
	switch t.Kind {
	case token.Directive:
		return p.parseDirective()
	case token.Identifier:
		if p.peekIsColon() {
			return p.parseLabel()
		}
		p.diag.Errorf(t.Pos, "unexpected identifier %q", t.Text)
		p.recover()
		return nil
	case token.Opcode:
		return p.parseInstruction()
	default:
		p.diag.Errorf(t.Pos, "unexpected token %s %q", t.Kind, t.Text)
		p.recover()
		return nil
	}
}

func (p *Parser) peekIsColon() bool {
	if p.pos+1 >= len(p.toks) {
		return false
	}
	return p.toks[p.pos+1].Kind == token.Colon
}

func (p *Parser) parseLabel() ast.Node {
	nameTok := p.advance()
	pos := nameTok.Pos
	p.advance() // colon
	n := &ast.Label{Name: nameTok.Text}
	n.Pos = pos
	p.skipNewlines()
	return n
}

func (p *Parser) parseDirective() ast.Node {
	t := p.advance()
	name := strings.ToUpper(t.Text)
	h, ok := directiveHandlers[name]
	if !ok {
		p.diag.Errorf(t.Pos, "unknown directive %s", t.Text)
		p.recover()
		return nil
	}
	n := h(p, t.Pos)
	p.skipNewlines()
	return n
}

func (p *Parser) parseDefine(pos diag.Pos) ast.Node {
	nameTok, ok := p.expect(token.Identifier, "identifier")
	if !ok {
		p.recover()
		return nil
	}
	val := p.parseOperand()
	n := &ast.Define{Name: nameTok.Text, Value: val}
	n.Pos = pos
	return n
}

func (p *Parser) parseOrg(pos diag.Pos) ast.Node {
	coords := p.parseIntList()
	n := &ast.Org{Coords: coords}
	n.Pos = pos
	return n
}

func (p *Parser) parseDir(pos diag.Pos) ast.Node {
	coords := p.parseIntList()
	n := &ast.Dir{Components: coords}
	n.Pos = pos
	return n
}

func (p *Parser) parseIntList() []int64 {
	var out []int64
	for {
		t, ok := p.expect(token.Number, "integer")
		if !ok {
			return out
		}
		out = append(out, t.Value)
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	return out
}

func (p *Parser) parseReg(pos diag.Pos) ast.Node {
	nameTok, ok := p.expect(token.Identifier, "identifier")
	if !ok {
		p.recover()
		return nil
	}
	regTok, ok := p.expect(token.Register, "register")
	if !ok {
		p.recover()
		return nil
	}
	n := &ast.Reg{Name: nameTok.Text, Target: ast.Register{Text: regTok.Text}}
	n.Target.Pos = regTok.Pos
	n.Pos = pos
	return n
}

func (p *Parser) parseRequire(pos diag.Pos) ast.Node {
	pathTok, ok := p.expect(token.String, "string path")
	if !ok {
		p.recover()
		return nil
	}
	if !p.expectKeyword("AS") {
		p.recover()
		return nil
	}
	aliasTok, ok := p.expect(token.Identifier, "alias identifier")
	if !ok {
		p.recover()
		return nil
	}
	n := &ast.Require{Path: pathTok.Text, Alias: aliasTok.Text}
	n.Pos = pos
	return n
}

func (p *Parser) parseImport(pos diag.Pos) ast.Node {
	pathTok, ok := p.expect(token.String, "string path")
	if !ok {
		p.recover()
		return nil
	}
	if !p.expectKeyword("AS") {
		p.recover()
		return nil
	}
	aliasTok, ok := p.expect(token.Identifier, "alias identifier")
	if !ok {
		p.recover()
		return nil
	}
	n := &ast.Require{Path: pathTok.Text, Alias: aliasTok.Text}
	n.Pos = pos
	return n
}

func (p *Parser) parsePushCtx(pos diag.Pos) ast.Node {
	pathTok, ok := p.expect(token.String, "include path")
	if !ok {
		return nil
	}
	n := &ast.PushCtx{File: pathTok.Text}
	n.Pos = pos
	return n
}

func (p *Parser) parsePopCtx(pos diag.Pos) ast.Node {
	n := &ast.PopCtx{}
	n.Pos = pos
	return n
}

// expectKeyword consumes an Identifier token whose canonical text equals
// kw, without requiring kw to be a known opcode or directive.
func (p *Parser) expectKeyword(kw string) bool {
	if p.cur().Kind != token.Identifier || !strings.EqualFold(p.cur().Text, kw) {
		p.diag.Errorf(p.cur().Pos, "expected %q, got %q", kw, p.cur().Text)
		return false
	}
	p.advance()
	return true
}

// parseProcedure parses `.PROC NAME [EXPORT] [WITH (REF a,b | VAL c,d)...]
// <body> .ENDP`.
func (p *Parser) parseProcedure(pos diag.Pos) ast.Node {
	nameTok, ok := p.expect(token.Identifier, "procedure name")
	if !ok {
		p.recover()
		return nil
	}
	proc := &ast.Procedure{Name: nameTok.Text}
	proc.Pos = pos

	for p.cur().Kind == token.Identifier && strings.EqualFold(p.cur().Text, "EXPORT") {
		proc.Exported = true
		p.advance()
	}
	for p.cur().Kind == token.Identifier && (strings.EqualFold(p.cur().Text, "WITH") ||
		strings.EqualFold(p.cur().Text, "REF") || strings.EqualFold(p.cur().Text, "VAL")) {
		kind := ast.ParamRef
		switch {
		case strings.EqualFold(p.cur().Text, "WITH"):
			p.advance()
			continue
		case strings.EqualFold(p.cur().Text, "VAL"):
			kind = ast.ParamVal
			p.advance()
		case strings.EqualFold(p.cur().Text, "REF"):
			kind = ast.ParamRef
			p.advance()
		}
		for p.cur().Kind == token.Identifier {
			proc.Params = append(proc.Params, ast.Param{Name: p.cur().Text, Kind: kind})
			p.advance()
			if p.at(token.Comma) {
				p.advance()
				continue
			}
			break
		}
	}
	p.skipNewlines()

	for {
		if p.at(token.Directive) && strings.EqualFold(p.cur().Text, ".ENDP") {
			p.advance()
			break
		}
		if p.at(token.EOF) {
			p.diag.Errorf(pos, "unterminated .PROC %s (missing .ENDP)", proc.Name)
			break
		}
		if n := p.parseItem(); n != nil {
			proc.Body = append(proc.Body, n)
		}
		p.skipNewlines()
	}
	return proc
}

// parseScope parses `.SCOPE NAME <body> .ENDS`.
func (p *Parser) parseScope(pos diag.Pos) ast.Node {
	nameTok, ok := p.expect(token.Identifier, "scope name")
	if !ok {
		p.recover()
		return nil
	}
	sc := &ast.Scope{Name: nameTok.Text}
	sc.Pos = pos
	p.skipNewlines()
	for {
		if p.at(token.Directive) && strings.EqualFold(p.cur().Text, ".ENDS") {
			p.advance()
			break
		}
		if p.at(token.EOF) {
			p.diag.Errorf(pos, "unterminated .SCOPE %s (missing .ENDS)", sc.Name)
			break
		}
		if n := p.parseItem(); n != nil {
			sc.Body = append(sc.Body, n)
		}
		p.skipNewlines()
	}
	return sc
}

// parsePlace parses `.PLACE TYPE:value AT c0,c1,...` where each component
// is a scalar, `lo..hi` range, or `*` wildcard.
func (p *Parser) parsePlace(pos diag.Pos) ast.Node {
	lit := p.parseOperand()
	typed, ok := lit.(*ast.TypedLiteral)
	if !ok {
		p.diag.Errorf(pos, ".PLACE requires a typed literal (e.g. DATA:42)")
		p.recover()
		return nil
	}
	if !p.expectKeyword("AT") {
		p.recover()
		return nil
	}
	var comps []ast.PlaceComponent
	for {
		comps = append(comps, p.parsePlaceComponent())
		if p.at(token.Comma) {
			p.advance()
			continue
		}
		break
	}
	n := &ast.Place{TypeName: typed.TypeName, Value: typed.Value, Components: comps}
	n.Pos = pos
	return n
}

func (p *Parser) parsePlaceComponent() ast.PlaceComponent {
	if p.cur().Kind == token.Identifier && p.cur().Text == "*" {
		p.advance()
		return ast.PlaceComponent{Wildcard: true}
	}
	loTok, ok := p.expect(token.Number, "range bound")
	if !ok {
		return ast.PlaceComponent{}
	}
	lo := loTok.Value
	hi := lo
	if p.cur().Kind == token.Identifier && p.cur().Text == ".." {
		p.advance()
		hiTok, ok := p.expect(token.Number, "range upper bound")
		if ok {
			hi = hiTok.Value
		}
	}
	return ast.PlaceComponent{Lo: lo, Hi: hi}
}

// parseInstruction parses one opcode mnemonic and its operand list, with
// CALL's REF/VAL argument lists handled specially (spec.md §4.3).
func (p *Parser) parseInstruction() ast.Node {
	opTok := p.advance()
	inst := &ast.Instruction{Mnemonic: strings.ToUpper(opTok.Text)}
	inst.Pos = opTok.Pos

	if inst.Mnemonic == "CALL" {
		return p.parseCallArgs(inst)
	}

	for !p.at(token.Newline) && !p.at(token.EOF) {
		inst.Operands = append(inst.Operands, p.parseOperand())
		if p.at(token.Comma) {
			p.advance()
		}
	}
	return inst
}

// parseCallArgs parses `CALL target [REF a b ...] [VAL c d ...]`.
func (p *Parser) parseCallArgs(inst *ast.Instruction) ast.Node {
	targetTok, ok := p.expect(token.Identifier, "call target")
	if !ok {
		p.recover()
		return inst
	}
	ref := &ast.LabelRef{Name: targetTok.Text}
	ref.Pos = targetTok.Pos
	inst.Target = ref

	for !p.at(token.Newline) && !p.at(token.EOF) {
		if p.cur().Kind != token.Identifier {
			break
		}
		switch strings.ToUpper(p.cur().Text) {
		case "REF":
			p.advance()
			for p.isCallArgOperand() {
				inst.RefArgs = append(inst.RefArgs, p.parseOperand())
			}
		case "VAL":
			p.advance()
			for p.isCallArgOperand() {
				inst.ValArgs = append(inst.ValArgs, p.parseOperand())
			}
		default:
			return inst
		}
	}
	return inst
}

// parseOperand parses one operand expression: a register, a bare number, a
// typed literal (TYPE:value), a vector literal (a|b|c), or a bare
// identifier (a label reference or a constant/alias name resolved later).
func (p *Parser) parseOperand() ast.Node {
	t := p.cur()
	switch t.Kind {
	case token.Register:
		p.advance()
		n := &ast.Register{Text: t.Text}
		n.Pos = t.Pos
		return n
	case token.Identifier:
		if isTypeName(t.Text) {
			return p.parseTypedOrVector(t)
		}
		p.advance()
		n := &ast.LabelRef{Name: t.Text}
		n.Pos = t.Pos
		return n
	case token.Number:
		return p.parseNumberOrVector(t)
	default:
		p.diag.Errorf(t.Pos, "unexpected operand token %s %q", t.Kind, t.Text)
		p.advance()
		n := &ast.NumberLiteral{}
		n.Pos = t.Pos
		return n
	}
}

// parseTypedOrVector handles `TYPE:value` typed literals, where the
// identifier token is one of the four type names followed by a colon.
func (p *Parser) parseTypedOrVector(t token.Token) ast.Node {
	p.advance() // the type-name identifier
	if !p.at(token.Colon) {
		n := &ast.LabelRef{Name: t.Text}
		n.Pos = t.Pos
		return n
	}
	p.advance() // colon
	valTok, ok := p.expect(token.Number, "typed literal value")
	if !ok {
		n := &ast.TypedLiteral{TypeName: strings.ToUpper(t.Text)}
		n.Pos = t.Pos
		return n
	}
	n := &ast.TypedLiteral{TypeName: strings.ToUpper(t.Text), Value: valTok.Value}
	n.Pos = t.Pos
	return n
}

// parseNumberOrVector handles a bare number, possibly the first component
// of a `|`-separated vector literal.
func (p *Parser) parseNumberOrVector(t token.Token) ast.Node {
	p.advance()
	first := &ast.NumberLiteral{Value: t.Value}
	first.Pos = t.Pos
	if !p.at(token.VecSep) {
		return first
	}
	vec := &ast.VectorLiteral{Components: []ast.Node{first}}
	vec.Pos = t.Pos
	for p.at(token.VecSep) {
		p.advance()
		ct, ok := p.expect(token.Number, "vector component")
		if !ok {
			break
		}
		comp := &ast.NumberLiteral{Value: ct.Value}
		comp.Pos = ct.Pos
		vec.Components = append(vec.Components, comp)
	}
	return vec
}

// isCallArgOperand reports whether the current token can start a CALL
// REF/VAL actual-argument operand, as opposed to the "REF"/"VAL" keyword
// introducing the next argument group.
func (p *Parser) isCallArgOperand() bool {
	switch p.cur().Kind {
	case token.Register, token.Number:
		return true
	case token.Identifier:
		switch strings.ToUpper(p.cur().Text) {
		case "REF", "VAL":
			return false
		default:
			return true
		}
	default:
		return false
	}
}

// isTypeName reports whether s is one of the four molecule type names.
func isTypeName(s string) bool {
	switch strings.ToUpper(s) {
	case "CODE", "DATA", "ENERGY", "STRUCTURE":
		return true
	default:
		return false
	}
}
