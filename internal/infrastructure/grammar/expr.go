// Package grammar turns command text into named, keyed parse results.
//
// Expressions are built from small combinators over whitespace separated
// tokens: caseless literals, flags, flags carrying an argument, optional and
// any-order groups, and symbols for user names, channel names, links and
// plain words. A Router holds one expression per command name and reports
// which command matched the whole input.
package grammar

import (
	"strings"

	"golang.org/x/text/cases"
)

// Fields holds the values captured by a successful match, keyed by flag or
// capture name. Bare flags are stored with the value "true".
type Fields map[string]string

// Has reports whether key was captured.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Get returns the captured value for key, or "".
func (f Fields) Get(key string) string {
	return f[key]
}

// Expr is a grammar expression. A match consumes tokens starting at pos and
// returns the position after the last consumed token.
type Expr interface {
	match(tokens []string, pos int, fields Fields) (int, bool)
}

// A Caser is stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

type literal struct {
	word string
}

// Literal matches one token equal to word, ignoring case.
func Literal(word string) Expr {
	return literal{word: fold(word)}
}

func (l literal) match(tokens []string, pos int, _ Fields) (int, bool) {
	if pos >= len(tokens) || fold(tokens[pos]) != l.word {
		return pos, false
	}
	return pos + 1, true
}

type flag struct {
	name string
	arg  Symbol
}

// Flag matches "--name" and captures name as "true".
func Flag(name string) Expr {
	return flag{name: name}
}

// FlagWithArg matches "--name <arg>" and captures the symbol's value under name.
func FlagWithArg(name string, arg Symbol) Expr {
	return flag{name: name, arg: arg}
}

func (f flag) match(tokens []string, pos int, fields Fields) (int, bool) {
	if pos >= len(tokens) || fold(tokens[pos]) != "--"+fold(f.name) {
		return pos, false
	}
	if f.arg == nil {
		fields[f.name] = "true"
		return pos + 1, true
	}
	if pos+1 >= len(tokens) {
		return pos, false
	}
	value, ok := f.arg(tokens[pos+1])
	if !ok {
		return pos, false
	}
	fields[f.name] = value
	return pos + 2, true
}

type capture struct {
	name string
	sym  Symbol
}

// Capture matches one token accepted by sym and stores its value under name.
func Capture(name string, sym Symbol) Expr {
	return capture{name: name, sym: sym}
}

func (c capture) match(tokens []string, pos int, fields Fields) (int, bool) {
	if pos >= len(tokens) {
		return pos, false
	}
	value, ok := c.sym(tokens[pos])
	if !ok {
		return pos, false
	}
	fields[c.name] = value
	return pos + 1, true
}

type optional struct {
	expr Expr
}

// Optional matches expr or nothing.
func Optional(expr Expr) Expr {
	return optional{expr: expr}
}

func (o optional) match(tokens []string, pos int, fields Fields) (int, bool) {
	scratch := Fields{}
	next, ok := o.expr.match(tokens, pos, scratch)
	if !ok {
		return pos, true
	}
	merge(fields, scratch)
	return next, true
}

type seq struct {
	exprs []Expr
}

// Seq matches each expression in order.
func Seq(exprs ...Expr) Expr {
	return seq{exprs: exprs}
}

func (s seq) match(tokens []string, pos int, fields Fields) (int, bool) {
	scratch := Fields{}
	next := pos
	for _, e := range s.exprs {
		var ok bool
		next, ok = e.match(tokens, next, scratch)
		if !ok {
			return pos, false
		}
	}
	merge(fields, scratch)
	return next, true
}

type oneOf struct {
	exprs []Expr
}

// OneOf matches the first alternative that matches.
func OneOf(exprs ...Expr) Expr {
	return oneOf{exprs: exprs}
}

func (o oneOf) match(tokens []string, pos int, fields Fields) (int, bool) {
	for _, e := range o.exprs {
		scratch := Fields{}
		if next, ok := e.match(tokens, pos, scratch); ok {
			merge(fields, scratch)
			return next, true
		}
	}
	return pos, false
}

type each struct {
	exprs []Expr
}

// Each matches every expression exactly once, in any order. Members wrapped
// in Optional may be absent.
func Each(exprs ...Expr) Expr {
	return each{exprs: exprs}
}

func (e each) match(tokens []string, pos int, fields Fields) (int, bool) {
	scratch := Fields{}
	matched := make([]bool, len(e.exprs))
	next := pos

	for progress := true; progress; {
		progress = false
		for i, expr := range e.exprs {
			if matched[i] {
				continue
			}
			inner := Fields{}
			after, ok := expr.match(tokens, next, inner)
			if !ok || after == next {
				continue
			}
			merge(scratch, inner)
			matched[i] = true
			next = after
			progress = true
		}
	}

	// Whatever is left must accept an empty match.
	for i, expr := range e.exprs {
		if matched[i] {
			continue
		}
		if _, ok := expr.match(tokens, len(tokens), Fields{}); !ok {
			return pos, false
		}
	}

	merge(fields, scratch)
	return next, true
}

func merge(dst, src Fields) {
	for k, v := range src {
		dst[k] = v
	}
}

func tokenize(text string) []string {
	return strings.Fields(text)
}
