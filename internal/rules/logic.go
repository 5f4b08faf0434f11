package rules

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrBadLogic 计算逻辑不是合法的受限算术表达式
var ErrBadLogic = errors.New("invalid logic expression")

// ApplyLogic 对单元格数值应用计算逻辑。
// 逻辑是以 value 或 x 为占位符的受限算式，只支持 + - * / 与括号。
// 空逻辑原样返回输入值。
func ApplyLogic(logic string, value float64) (float64, error) {
	logic = strings.TrimSpace(logic)
	if logic == "" {
		return value, nil
	}

	p := &logicParser{input: logic, value: value}
	result, err := p.parseExpression()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("%w: unexpected %q at %d", ErrBadLogic, p.input[p.pos:], p.pos)
	}
	return result, nil
}

// logicParser 递归下降解析器：
//
//	expression = term { ("+" | "-") term }
//	term       = factor { ("*" | "/") factor }
//	factor     = number | "value" | "x" | "(" expression ")" | "-" factor
type logicParser struct {
	input string
	pos   int
	value float64
}

func (p *logicParser) parseExpression() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.accept('+'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case p.accept('-'):
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *logicParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpaces()
		switch {
		case p.accept('*'):
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case p.accept('/'):
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("%w: division by zero", ErrBadLogic)
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *logicParser) parseFactor() (float64, error) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, fmt.Errorf("%w: unexpected end of input", ErrBadLogic)
	}

	if p.accept('-') {
		v, err := p.parseFactor()
		return -v, err
	}

	if p.accept('(') {
		v, err := p.parseExpression()
		if err != nil {
			return 0, err
		}
		p.skipSpaces()
		if !p.accept(')') {
			return 0, fmt.Errorf("%w: missing closing parenthesis", ErrBadLogic)
		}
		return v, nil
	}

	ch := p.input[p.pos]
	if ch >= '0' && ch <= '9' || ch == '.' {
		return p.parseNumber()
	}
	if unicode.IsLetter(rune(ch)) {
		return p.parsePlaceholder()
	}
	return 0, fmt.Errorf("%w: unexpected %q at %d", ErrBadLogic, string(ch), p.pos)
}

func (p *logicParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		if ch >= '0' && ch <= '9' || ch == '.' {
			p.pos++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", ErrBadLogic, p.input[start:p.pos])
	}
	return v, nil
}

func (p *logicParser) parsePlaceholder() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && unicode.IsLetter(rune(p.input[p.pos])) {
		p.pos++
	}
	word := strings.ToLower(p.input[start:p.pos])
	if word == "value" || word == "x" {
		return p.value, nil
	}
	return 0, fmt.Errorf("%w: unknown identifier %q", ErrBadLogic, word)
}

func (p *logicParser) accept(ch byte) bool {
	if p.pos < len(p.input) && p.input[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *logicParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}
