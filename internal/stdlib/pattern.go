package stdlib

import (
	"strings"

	"github.com/embeddedlua/luacore/internal/diag"
	"github.com/embeddedlua/luacore/internal/interp"
	"github.com/embeddedlua/luacore/internal/value"
)

// This file ports the teacher's string.go pattern-matching engine
// (matchState/singleMatch/matchClass/matchBracketClass/matchBalance/
// matchCapture/matchFrontier/match/pushCaptures) from stack-indexed
// captures over a byte stream to plain Go strings, keeping the same
// recursive structure and special-character set.

const patternMaxCaptures = 32
const patternSpecials = "^$*+?.([%-"

type capture struct {
	start int
	len   int // -1 while open, capturePosition for a position capture
}

const capturePosition = -2
const captureUnfinished = -1

type matchState struct {
	src, pat string
	level    int
	captures [patternMaxCaptures]capture
	depth    int
}

func classEnd(ms *matchState, p int) int {
	c := ms.pat[p]
	p++
	if c == '%' {
		if p >= len(ms.pat) {
			panicPattern("malformed pattern (ends with '%%')")
		}
		return p + 1
	}
	if c == '[' {
		if p < len(ms.pat) && ms.pat[p] == '^' {
			p++
		}
		for {
			if p >= len(ms.pat) {
				panicPattern("malformed pattern (missing ']')")
			}
			c = ms.pat[p]
			p++
			if c == '%' {
				if p >= len(ms.pat) {
					panicPattern("malformed pattern (ends with '%%')")
				}
				p++
			} else if c == ']' {
				return p
			}
		}
	}
	return p
}

type patternError struct{ msg string }

func (e *patternError) Error() string { return e.msg }

func panicPattern(msg string) { panic(&patternError{msg}) }

func matchClassChar(c, cl byte) bool {
	var res bool
	switch lowerByte(cl) {
	case 'a':
		res = isAlphaB(c)
	case 'd':
		res = c >= '0' && c <= '9'
	case 'l':
		res = c >= 'a' && c <= 'z'
	case 's':
		res = c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
	case 'u':
		res = c >= 'A' && c <= 'Z'
	case 'w':
		res = isAlphaB(c) || (c >= '0' && c <= '9')
	case 'c':
		res = c < 32 || c == 127
	case 'p':
		res = isPunct(c)
	case 'x':
		res = isHex(c)
	case 'g':
		res = c > 32 && c < 127
	default:
		return cl == c
	}
	if cl >= 'A' && cl <= 'Z' {
		return !res
	}
	return res
}

func lowerByte(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 32
	}
	return c
}
func isAlphaB(c byte) bool { return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isPunct(c byte) bool {
	return strings.IndexByte("!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~", c) >= 0
}
func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func matchBracketClass(ms *matchState, c byte, p, ec int) bool {
	sig := true
	p++
	if ms.pat[p] == '^' {
		sig = false
		p++
	}
	for p < ec {
		if ms.pat[p] == '%' {
			p++
			if matchClassChar(c, ms.pat[p]) {
				return sig
			}
			p++
		} else if p+2 < ec && ms.pat[p+1] == '-' {
			if ms.pat[p] <= c && c <= ms.pat[p+2] {
				return sig
			}
			p += 3
		} else {
			if ms.pat[p] == c {
				return sig
			}
			p++
		}
	}
	return !sig
}

func singleMatch(ms *matchState, s, p, ep int) bool {
	if s >= len(ms.src) {
		return false
	}
	c := ms.src[s]
	switch ms.pat[p] {
	case '.':
		return true
	case '%':
		return matchClassChar(c, ms.pat[p+1])
	case '[':
		return matchBracketClass(ms, c, p, ep-1)
	default:
		return ms.pat[p] == c
	}
}

func (ms *matchState) match(s, p int) int {
	ms.depth++
	if ms.depth > 200 {
		panicPattern("pattern too complex")
	}
	defer func() { ms.depth-- }()
	if p >= len(ms.pat) {
		return s
	}
	switch ms.pat[p] {
	case '(':
		if p+1 < len(ms.pat) && ms.pat[p+1] == ')' {
			return ms.startCapture(s, p+2, capturePosition)
		}
		return ms.startCapture(s, p+1, captureUnfinished)
	case ')':
		return ms.endCapture(s, p+1)
	case '$':
		if p+1 == len(ms.pat) {
			if s == len(ms.src) {
				return s
			}
			return -1
		}
	case '%':
		if p+1 < len(ms.pat) {
			switch ms.pat[p+1] {
			case 'b':
				return ms.matchBalance(s, p+2)
			case 'f':
				p += 2
				if p >= len(ms.pat) || ms.pat[p] != '[' {
					panicPattern("missing '[' after '%%f' in pattern")
				}
				ep := classEnd(ms, p)
				var prev byte
				if s > 0 {
					prev = ms.src[s-1]
				}
				var cur byte
				if s < len(ms.src) {
					cur = ms.src[s]
				}
				if !matchBracketClass(ms, prev, p, ep-1) && matchBracketClass(ms, cur, p, ep-1) {
					return ms.match(s, ep)
				}
				return -1
			default:
				if ms.pat[p+1] >= '0' && ms.pat[p+1] <= '9' {
					s2 := ms.matchCapture(s, int(ms.pat[p+1]-'0'))
					if s2 == -1 {
						return -1
					}
					return ms.match(s2, p+2)
				}
			}
		}
	}
	ep := classEnd(ms, p)
	var suffix byte
	if ep < len(ms.pat) {
		suffix = ms.pat[ep]
	}
	switch suffix {
	case '?':
		if singleMatch(ms, s, p, ep) {
			if r := ms.match(s+1, ep+1); r != -1 {
				return r
			}
		}
		return ms.match(s, ep+1)
	case '+':
		if singleMatch(ms, s, p, ep) {
			return ms.maxExpand(s+1, p, ep)
		}
		return -1
	case '*':
		return ms.maxExpand(s, p, ep)
	case '-':
		return ms.minExpand(s, p, ep)
	default:
		if !singleMatch(ms, s, p, ep) {
			return -1
		}
		return ms.match(s+1, ep)
	}
}

func (ms *matchState) maxExpand(s, p, ep int) int {
	n := 0
	for singleMatch(ms, s+n, p, ep) {
		n++
	}
	for n >= 0 {
		if r := ms.match(s+n, ep+1); r != -1 {
			return r
		}
		n--
	}
	return -1
}

func (ms *matchState) minExpand(s, p, ep int) int {
	for {
		if r := ms.match(s, ep+1); r != -1 {
			return r
		}
		if singleMatch(ms, s, p, ep) {
			s++
		} else {
			return -1
		}
	}
}

func (ms *matchState) startCapture(s, p, what int) int {
	ms.captures[ms.level] = capture{start: s, len: what}
	ms.level++
	r := ms.match(s, p)
	if r == -1 {
		ms.level--
	}
	return r
}

func (ms *matchState) endCapture(s, p int) int {
	l := -1
	for i := ms.level - 1; i >= 0; i-- {
		if ms.captures[i].len == captureUnfinished {
			l = i
			break
		}
	}
	if l < 0 {
		panicPattern("invalid pattern capture")
	}
	ms.captures[l].len = s - ms.captures[l].start
	r := ms.match(s, p)
	if r == -1 {
		ms.captures[l].len = captureUnfinished
	}
	return r
}

func (ms *matchState) matchCapture(s, idx int) int {
	idx--
	if idx < 0 || idx >= ms.level || ms.captures[idx].len == captureUnfinished {
		panicPattern("invalid capture index")
	}
	capStr := ms.src[ms.captures[idx].start : ms.captures[idx].start+ms.captures[idx].len]
	if strings.HasPrefix(ms.src[s:], capStr) {
		return s + len(capStr)
	}
	return -1
}

func (ms *matchState) matchBalance(s, p int) int {
	if p+1 >= len(ms.pat) {
		panicPattern("missing arguments to '%%b'")
	}
	if s >= len(ms.src) || ms.src[s] != ms.pat[p] {
		return -1
	}
	b, e := ms.pat[p], ms.pat[p+1]
	cont := 1
	s++
	for s < len(ms.src) {
		if ms.src[s] == e {
			cont--
			if cont == 0 {
				return ms.match(s+1, p+2)
			}
		} else if ms.src[s] == b {
			cont++
		}
		s++
	}
	return -1
}

// pushCaptures returns the capture values for a completed match of
// [s, e); with no explicit captures, the whole match is the one result.
func pushCaptures(ms *matchState, s, e int) []value.Value {
	n := ms.level
	if n == 0 {
		return []value.Value{ms.src[s:e]}
	}
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		out[i] = oneCapture(ms, i)
	}
	return out
}

func oneCapture(ms *matchState, i int) value.Value {
	c := ms.captures[i]
	if c.len == capturePosition {
		return int64(c.start + 1)
	}
	return ms.src[c.start : c.start+c.len]
}

// doMatch runs the pattern engine starting at or after init, returning
// the match bounds [s,e) and captures, or ok=false.
func doMatch(src, pat string, init int) (s, e int, caps []value.Value, ok bool) {
	anchor := strings.HasPrefix(pat, "^")
	p := 0
	if anchor {
		p = 1
	}
	start := init
	for {
		ms := &matchState{src: src, pat: pat}
		if r := ms.match(start, p); r != -1 {
			return start, r, pushCaptures(ms, start, r), true
		}
		start++
		if anchor || start > len(src) {
			return 0, 0, nil, false
		}
	}
}

func strFind(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("find", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := checkString("find", args, 1)
	if err != nil {
		return nil, err
	}
	init := int(relativePosition(optInt(args, 2, 1), len(s)))
	if init < 1 {
		init = 1
	}
	if init > len(s)+1 {
		return []value.Value{nil}, nil
	}
	plain := len(args) >= 4 && value.IsTruthy(args[3])
	if plain || !strings.ContainsAny(pat, patternSpecials) {
		idx := strings.Index(s[init-1:], pat)
		if idx < 0 {
			return []value.Value{nil}, nil
		}
		start := init - 1 + idx
		return []value.Value{int64(start + 1), int64(start + len(pat))}, nil
	}
	var res []value.Value
	func() {
		defer recoverPattern(&err)
		st, en, caps, ok := doMatch(s, pat, init-1)
		if !ok {
			res = []value.Value{nil}
			return
		}
		res = append([]value.Value{int64(st + 1), int64(en)}, explicitCapsOnly(pat, caps)...)
	}()
	if err != nil {
		return nil, err
	}
	return res, nil
}

// explicitCapsOnly drops the implicit whole-match capture find returns
// in addition to position, since pushCaptures already special-cased
// level==0 to return the whole match; find needs extra captures only
// when the pattern declared its own, which pushCaptures already used.
func explicitCapsOnly(pat string, caps []value.Value) []value.Value {
	if !strings.Contains(pat, "(") {
		return nil
	}
	return caps
}

func strMatch(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("match", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := checkString("match", args, 1)
	if err != nil {
		return nil, err
	}
	init := int(relativePosition(optInt(args, 2, 1), len(s)))
	if init < 1 {
		init = 1
	}
	if init > len(s)+1 {
		return []value.Value{nil}, nil
	}
	var res []value.Value
	func() {
		defer recoverPattern(&err)
		_, _, caps, ok := doMatch(s, pat, init-1)
		if !ok {
			res = []value.Value{nil}
			return
		}
		res = caps
	}()
	if err != nil {
		return nil, err
	}
	return res, nil
}

func strGmatch(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("gmatch", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := checkString("gmatch", args, 1)
	if err != nil {
		return nil, err
	}
	pos := 0
	iter := &value.Function{Name: "gmatch_iter", IsGo: true, Call: func(_ []value.Value) (res []value.Value, ferr error) {
		defer recoverPattern(&ferr)
		for pos <= len(s) {
			st, en, caps, ok := doMatch(s, pat, pos)
			if !ok {
				return nil, nil
			}
			if en == pos {
				pos = en + 1
			} else {
				pos = en
			}
			_ = st
			return caps, nil
		}
		return nil, nil
	}}
	return []value.Value{iter}, nil
}

func strGsub(it *interp.Interpreter, args []value.Value) ([]value.Value, error) {
	s, err := checkString("gsub", args, 0)
	if err != nil {
		return nil, err
	}
	pat, err := checkString("gsub", args, 1)
	if err != nil {
		return nil, err
	}
	repl := arg(args, 2)
	maxN := optInt(args, 3, int64(len(s))+1)

	var b strings.Builder
	count := int64(0)
	pos := 0
	anchor := strings.HasPrefix(pat, "^")
	for pos <= len(s) && count < maxN {
		var caps []value.Value
		var st, en int
		var ok bool
		func() {
			defer recoverPattern(&err)
			st, en, caps, ok = doMatch(s, pat, pos)
		}()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		b.WriteString(s[pos:st])
		whole := s[st:en]
		replacement, err2 := applyReplace(it, repl, whole, caps)
		if err2 != nil {
			return nil, err2
		}
		b.WriteString(replacement)
		count++
		if en > pos {
			pos = en
		} else {
			if pos < len(s) {
				b.WriteByte(s[pos])
			}
			pos++
		}
		if anchor {
			break
		}
	}
	if pos < len(s) {
		b.WriteString(s[pos:])
	}
	return []value.Value{b.String(), count}, nil
}

func applyReplace(it *interp.Interpreter, repl value.Value, whole string, caps []value.Value) (string, error) {
	switch r := repl.(type) {
	case string:
		return expandReplacement(r, whole, caps), nil
	case int64:
		return expandReplacement(value.IntegerToString(r), whole, caps), nil
	case float64:
		return expandReplacement(value.NumberToString(r), whole, caps), nil
	case *value.Table:
		key := whole
		if len(caps) > 0 {
			if s, ok := caps[0].(string); ok {
				key = s
			}
		}
		v := r.Get(key)
		if v == nil || v == false {
			return whole, nil
		}
		s, _ := value.ToStringCoercible(v)
		return s, nil
	case *value.Function:
		callArgs := caps
		if len(callArgs) == 0 {
			callArgs = []value.Value{whole}
		}
		res, err := r.Call(callArgs)
		if err != nil {
			return "", err
		}
		if len(res) == 0 || res[0] == nil || res[0] == false {
			return whole, nil
		}
		s, ok := value.ToStringCoercible(res[0])
		if !ok {
			return "", value.NewError(diag.Position{}, "invalid replacement value (a %s)", value.TypeName(res[0]))
		}
		return s, nil
	}
	return "", value.NewError(diag.Position{}, "bad argument #3 to 'gsub' (string/function/table expected)")
}

func expandReplacement(r, whole string, caps []value.Value) string {
	var b strings.Builder
	for i := 0; i < len(r); i++ {
		c := r[i]
		if c != '%' || i+1 >= len(r) {
			b.WriteByte(c)
			continue
		}
		i++
		d := r[i]
		switch {
		case d == '%':
			b.WriteByte('%')
		case d == '0':
			b.WriteString(whole)
		case d >= '1' && d <= '9':
			idx := int(d - '1')
			if idx < len(caps) {
				s, _ := value.ToStringCoercible(caps[idx])
				b.WriteString(s)
			} else if idx == 0 && len(caps) == 0 {
				b.WriteString(whole)
			}
		default:
			b.WriteByte(d)
		}
	}
	return b.String()
}

func recoverPattern(errOut *error) {
	if r := recover(); r != nil {
		if pe, ok := r.(*patternError); ok {
			*errOut = value.NewError(diag.Position{}, "%s", pe.msg)
			return
		}
		panic(r)
	}
}
