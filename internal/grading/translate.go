package grading

import (
	"fmt"
	"strconv"
	"strings"
	"text/scanner"
)

// translate rewrites an expanded grading expression into the CEL subset
// the evaluator accepts. Numeric literals become doubles so arithmetic
// never mixes int and double; True/False/and/or/not become their CEL
// spellings. Identifiers, strings, calls and every operator outside
// + - * / == != < <= > >= are rejected.
func translate(expr string) (string, error) {
	var s scanner.Scanner
	s.Init(strings.NewReader(expr))
	s.Mode = scanner.ScanIdents | scanner.ScanInts | scanner.ScanFloats
	s.Filename = "expr"

	var scanErr error
	s.Error = func(_ *scanner.Scanner, msg string) {
		if scanErr == nil {
			scanErr = fmt.Errorf("%s", msg)
		}
	}

	var (
		out   []string
		depth int
		nots  []int // paren depth at which each pending "not" closes
	)
	closeNots := func() {
		for len(nots) > 0 && nots[len(nots)-1] == depth {
			out = append(out, ")")
			nots = nots[:len(nots)-1]
		}
	}
	fail := func(format string, args ...any) (string, error) {
		return "", &ExpressionError{Expr: expr, Message: fmt.Sprintf(format, args...)}
	}

	for tok := s.Scan(); tok != scanner.EOF; tok = s.Scan() {
		if scanErr != nil {
			break
		}
		text := s.TokenText()
		switch tok {
		case scanner.Int, scanner.Float:
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return fail("bad number %s", text)
			}
			out = append(out, doubleLiteral(f))
		case scanner.Ident:
			switch text {
			case "True":
				out = append(out, "true")
			case "False":
				out = append(out, "false")
			case "and":
				closeNots()
				out = append(out, "&&")
			case "or":
				closeNots()
				out = append(out, "||")
			case "not":
				out = append(out, "!(")
				nots = append(nots, depth)
			default:
				return fail("unknown name %q", text)
			}
		case '(':
			depth++
			out = append(out, "(")
		case ')':
			closeNots()
			if depth == 0 {
				return fail("unbalanced ')'")
			}
			depth--
			out = append(out, ")")
		case '+', '-':
			out = append(out, text)
		case '*', '/':
			if s.Peek() == tok {
				return fail("operator %c%c is not supported", tok, tok)
			}
			out = append(out, text)
		case '<', '>':
			if s.Peek() == '=' {
				s.Next()
				out = append(out, text+"=")
			} else {
				out = append(out, text)
			}
		case '=', '!':
			if s.Peek() != '=' {
				return fail("operator %c is not supported", tok)
			}
			s.Next()
			out = append(out, text+"=")
		default:
			return fail("unexpected %s", text)
		}
	}
	if scanErr != nil {
		return "", &ExpressionError{Expr: expr, Message: "scan failed", Err: scanErr}
	}
	if depth != 0 {
		return fail("unbalanced '('")
	}
	for range nots {
		out = append(out, ")")
	}
	if len(out) == 0 {
		return fail("empty expression")
	}
	return strings.Join(out, " "), nil
}

func doubleLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
