package lang

import (
	"fmt"
	"html"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

func (e *Engine) registerFuncs() {
	funcs := map[string]ValueFunc{
		"+": fnAdd, "add": fnAdd,
		"-": fnSub, "sub": fnSub,
		"*": fnMul, "mul": fnMul,
		"/": fnDiv, "div": fnDiv,
		"%": fnMod, "mod": fnMod,
		"min": fnMin, "max": fnMax,
		"abs": unary(math.Abs), "floor": unary(math.Floor), "ceil": unary(math.Ceil),
		"round": fnRound,

		"=": compare(func(c int) bool { return c == 0 }), "eq": compare(func(c int) bool { return c == 0 }),
		"!=": fnNotEqual, "ne": fnNotEqual,
		"<": compare(func(c int) bool { return c < 0 }), "lt": compare(func(c int) bool { return c < 0 }),
		">": compare(func(c int) bool { return c > 0 }), "gt": compare(func(c int) bool { return c > 0 }),
		"<=": compare(func(c int) bool { return c <= 0 }), "le": compare(func(c int) bool { return c <= 0 }),
		">=": compare(func(c int) bool { return c >= 0 }), "ge": compare(func(c int) bool { return c >= 0 }),
		"not": fnNot,

		"concat": fnConcat, "upper": text(strings.ToUpper), "lower": text(strings.ToLower),
		"trim": fnTrim, "split": fnSplit, "join": fnJoin, "replace": fnReplace,
		"contains": fnContains, "prefix?": fnPrefix, "suffix?": fnSuffix,
		"substr": fnSubstr, "len": fnLen, "format": fnFormat,
		"quote": text(strconv.Quote), "html": text(html.EscapeString),

		"type": fnType,
		"null?": is(KindNull), "bool?": is(KindBool), "number?": is(KindNumber),
		"string?": is(KindString), "list?": is(KindList), "map?": is(KindMap),
		"func?": is(KindFunc),
		"num": fnNum, "str": fnStr, "bool": fnBool,

		"list": fnList, "dict": fnDict, "get": fnGet, "keys": fnKeys,
		"values": fnValues, "push": fnPush, "count": fnLen, "range": fnRange,
		"first": fnFirst, "last": fnLast, "reverse": fnReverse, "sort": fnSort,
		"has": fnHas,

		"json": fnJSON, "yaml": fnYAML, "from-json": fnDecode, "from-yaml": fnDecode,
	}

	for name, f := range funcs {
		e.registry.builtin(name, valueFunc(name, f))
	}
}

func argErr(args []Value, reason string) error {
	return ErrArgument.With(
		slog.String("function", args[0].Str()),
		slog.String("reason", reason))
}

func want(args []Value, n int) error {
	if len(args)-1 < n {
		return ErrArgument.With(
			slog.String("function", args[0].Str()),
			slog.Int("want", n),
			slog.Int("got", len(args)-1))
	}

	return nil
}

// numbers converts the arguments to numbers. A single list argument is
// spread.
func numbers(args []Value) ([]float64, error) {
	vs := args[1:]
	if len(vs) == 1 && vs[0].Kind() == KindList {
		vs = vs[0].List().Values()
	}

	ns := make([]float64, 0, len(vs))

	for _, v := range vs {
		n, ok := v.Num()
		if !ok {
			return nil, argErr(args, "not a number: "+strconv.Quote(v.Text()))
		}

		ns = append(ns, n)
	}

	return ns, nil
}

// number converts the first argument to a number.
func number(args []Value) (float64, error) {
	n, ok := args[1].Num()
	if !ok {
		return 0, argErr(args, "not a number: "+strconv.Quote(args[1].Text()))
	}

	return n, nil
}

// fold applies op left to right over the numeric arguments.
func fold(args []Value, unit float64, op func(a, b float64) (float64, error)) (Value, error) {
	ns, err := numbers(args)
	if err != nil {
		return Null(), err
	}

	switch len(ns) {
	case 0:
		return Number(unit), nil
	case 1:
		r, err := op(unit, ns[0])

		return Number(r), err
	}

	acc := ns[0]
	for _, n := range ns[1:] {
		if acc, err = op(acc, n); err != nil {
			return Null(), err
		}
	}

	return Number(acc), nil
}

// fnAdd sums numbers and concatenates anything else.
func fnAdd(args []Value) (Value, error) {
	for _, v := range args[1:] {
		if _, ok := v.Num(); !ok && v.Kind() != KindList {
			return String(joinText(args[1:])), nil
		}
	}

	return fold(args, 0, func(a, b float64) (float64, error) { return a + b, nil })
}

func fnSub(args []Value) (Value, error) {
	return fold(args, 0, func(a, b float64) (float64, error) { return a - b, nil })
}

func fnMul(args []Value) (Value, error) {
	return fold(args, 1, func(a, b float64) (float64, error) { return a * b, nil })
}

func fnDiv(args []Value) (Value, error) {
	return fold(args, 1, func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, argErr(args, "division by zero")
		}

		return a / b, nil
	})
}

func fnMod(args []Value) (Value, error) {
	if err := want(args, 2); err != nil {
		return Null(), err
	}

	return fold(args, 0, func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, argErr(args, "division by zero")
		}

		return math.Mod(a, b), nil
	})
}

func extreme(args []Value, better func(a, b float64) bool) (Value, error) {
	ns, err := numbers(args)
	if err != nil {
		return Null(), err
	}

	if len(ns) == 0 {
		return Null(), nil
	}

	r := ns[0]
	for _, n := range ns[1:] {
		if better(n, r) {
			r = n
		}
	}

	return Number(r), nil
}

func fnMin(args []Value) (Value, error) {
	return extreme(args, func(a, b float64) bool { return a < b })
}

func fnMax(args []Value) (Value, error) {
	return extreme(args, func(a, b float64) bool { return a > b })
}

func unary(f func(float64) float64) ValueFunc {
	return func(args []Value) (Value, error) {
		if err := want(args, 1); err != nil {
			return Null(), err
		}

		n, err := number(args)
		if err != nil {
			return Null(), err
		}

		return Number(f(n)), nil
	}
}

// (round n [places])
func fnRound(args []Value) (Value, error) {
	ns, err := numbers(args)
	if err != nil {
		return Null(), err
	}

	if len(ns) == 0 {
		return Null(), want(args, 1)
	}

	if len(ns) == 1 {
		return Number(math.Round(ns[0])), nil
	}

	p := math.Pow(10, math.Trunc(ns[1]))

	return Number(math.Round(ns[0]*p) / p), nil
}

// compare is true when ok holds for every adjacent pair of arguments.
func compare(ok func(int) bool) ValueFunc {
	return func(args []Value) (Value, error) {
		if err := want(args, 2); err != nil {
			return Null(), err
		}

		vs := args[1:]
		for i := 1; i < len(vs); i++ {
			var c int
			if vs[i-1].Equal(vs[i]) {
				c = 0
			} else {
				c = vs[i-1].Compare(vs[i])
				if c == 0 {
					c = 1
				}
			}

			if !ok(c) {
				return Bool(false), nil
			}
		}

		return Bool(true), nil
	}
}

func fnNotEqual(args []Value) (Value, error) {
	eq, err := compare(func(c int) bool { return c == 0 })(args)
	if err != nil {
		return Null(), err
	}

	return Bool(!eq.Truthy()), nil
}

func fnNot(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	return Bool(!args[1].Truthy()), nil
}

func text(f func(string) string) ValueFunc {
	return func(args []Value) (Value, error) {
		if err := want(args, 1); err != nil {
			return Null(), err
		}

		return String(f(args[1].Text())), nil
	}
}

func fnConcat(args []Value) (Value, error) {
	return String(joinText(args[1:])), nil
}

// (trim s [cutset])
func fnTrim(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	if len(args) > 2 {
		return String(strings.Trim(args[1].Text(), args[2].Text())), nil
	}

	return String(strings.TrimSpace(args[1].Text())), nil
}

// (split s [sep]) splits on whitespace when sep is omitted.
func fnSplit(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	var parts []string
	if len(args) > 2 {
		parts = strings.Split(args[1].Text(), args[2].Text())
	} else {
		parts = strings.Fields(args[1].Text())
	}

	l := NewList()
	for _, p := range parts {
		l.Append(String(p))
	}

	return ListValue(l), nil
}

// (join list [sep])
func fnJoin(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	sep := ""
	if len(args) > 2 {
		sep = args[2].Text()
	}

	vs := []Value{args[1]}
	if args[1].Kind() == KindList {
		vs = args[1].List().Values()
	}

	s := make([]string, 0, len(vs))
	for _, v := range vs {
		s = append(s, v.Text())
	}

	return String(strings.Join(s, sep)), nil
}

func fnReplace(args []Value) (Value, error) {
	if err := want(args, 3); err != nil {
		return Null(), err
	}

	return String(strings.ReplaceAll(args[1].Text(), args[2].Text(), args[3].Text())), nil
}

// (contains haystack needle) searches strings, list elements and map keys.
func fnContains(args []Value) (Value, error) {
	if err := want(args, 2); err != nil {
		return Null(), err
	}

	switch h, n := args[1], args[2]; h.Kind() {
	case KindList:
		return Bool(slices.ContainsFunc(h.List().items, n.Equal)), nil
	case KindMap:
		return Bool(h.Map().Has(n.Text())), nil
	case KindNull, KindBool, KindNumber, KindString, KindFunc, KindObject:
		return Bool(strings.Contains(h.Text(), n.Text())), nil
	default:
		return Bool(false), nil
	}
}

func fnPrefix(args []Value) (Value, error) {
	if err := want(args, 2); err != nil {
		return Null(), err
	}

	return Bool(strings.HasPrefix(args[1].Text(), args[2].Text())), nil
}

func fnSuffix(args []Value) (Value, error) {
	if err := want(args, 2); err != nil {
		return Null(), err
	}

	return Bool(strings.HasSuffix(args[1].Text(), args[2].Text())), nil
}

// (substr s start [length]) counts runes. A negative start counts from the
// end.
func fnSubstr(args []Value) (Value, error) {
	if err := want(args, 2); err != nil {
		return Null(), err
	}

	rs := []rune(args[1].Text())

	ns, err := numbers(append([]Value{args[0]}, args[2:]...))
	if err != nil {
		return Null(), err
	}

	start := int(ns[0])
	if start < 0 {
		start += len(rs)
	}

	start = max(0, min(start, len(rs)))
	end := len(rs)

	if len(ns) > 1 {
		end = max(start, min(start+int(ns[1]), len(rs)))
	}

	return String(string(rs[start:end])), nil
}

func fnLen(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	if v := args[1]; v.Kind() == KindString {
		return Int(utf8.RuneCountInString(v.Str())), nil
	}

	return Int(args[1].Len()), nil
}

// (format layout args...) follows [fmt.Sprintf].
func fnFormat(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	vs := make([]any, 0, len(args)-2)
	for _, v := range args[2:] {
		vs = append(vs, v.Native())
	}

	return String(fmt.Sprintf(args[1].Text(), vs...)), nil
}

func fnType(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	return String(args[1].Kind().String()), nil
}

func is(k Kind) ValueFunc {
	return func(args []Value) (Value, error) {
		if err := want(args, 1); err != nil {
			return Null(), err
		}

		return Bool(args[1].Kind() == k), nil
	}
}

func fnNum(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	n, err := number(args)
	if err != nil {
		return Null(), err
	}

	return Number(n), nil
}

func fnStr(args []Value) (Value, error) {
	return String(joinText(args[1:])), nil
}

func fnBool(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	return Bool(args[1].Truthy()), nil
}

func fnList(args []Value) (Value, error) {
	return ListOf(args[1:]...), nil
}

// (dict key value [key value]...)
func fnDict(args []Value) (Value, error) {
	m := NewMap()

	for i := 1; i < len(args); i += 2 {
		v := Null()
		if i+1 < len(args) {
			v = args[i+1]
		}

		m.Set(args[i].Text(), v)
	}

	return MapValue(m), nil
}

// (get collection key [default])
func fnGet(args []Value) (Value, error) {
	if err := want(args, 2); err != nil {
		return Null(), err
	}

	if v, ok := member(args[1], args[2].Text()); ok {
		return v, nil
	}

	if len(args) > 3 {
		return args[3], nil
	}

	return Null(), nil
}

func fnKeys(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	l := NewList()

	switch v := args[1]; v.Kind() {
	case KindMap:
		for _, k := range v.Map().Keys() {
			l.Append(String(k))
		}
	case KindList:
		for i := range v.List().Len() {
			l.Append(Int(i))
		}
	case KindNull, KindBool, KindNumber, KindString, KindFunc, KindObject:
	}

	return ListValue(l), nil
}

func fnValues(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	l := NewList()

	switch v := args[1]; v.Kind() {
	case KindMap:
		for _, e := range v.Map().All() {
			l.Append(e)
		}
	case KindList:
		l.Append(v.List().items...)
	case KindNull, KindBool, KindNumber, KindString, KindFunc, KindObject:
	}

	return ListValue(l), nil
}

// (push list items...) appends in place and returns the list.
func fnPush(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	l := args[1].List()
	if l == nil {
		return Null(), argErr(args, "not a list")
	}

	l.Append(args[2:]...)

	return args[1], nil
}

// (range n) or (range from to [step]) excludes the end.
func fnRange(args []Value) (Value, error) {
	ns, err := numbers(args)
	if err != nil {
		return Null(), err
	}

	var from, to, step float64 = 0, 0, 1

	switch len(ns) {
	case 0:
		return Null(), want(args, 1)
	case 1:
		to = ns[0]
	case 2:
		from, to = ns[0], ns[1]
	default:
		from, to, step = ns[0], ns[1], ns[2]
	}

	if step == 0 {
		return Null(), argErr(args, "zero step")
	}

	l := NewList()
	for x := from; (step > 0 && x < to) || (step < 0 && x > to); x += step {
		l.Append(Number(x))
	}

	return ListValue(l), nil
}

func fnFirst(args []Value) (Value, error) {
	return nth(args, 0)
}

func fnLast(args []Value) (Value, error) {
	return nth(args, -1)
}

func nth(args []Value, i int) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	switch v := args[1]; v.Kind() {
	case KindList:
		e, _ := v.List().At(i)

		return e, nil
	case KindString:
		rs := []rune(v.Str())
		if len(rs) == 0 {
			return Null(), nil
		}

		return String(string(rs[(i+len(rs))%len(rs)])), nil
	case KindNull, KindBool, KindNumber, KindMap, KindFunc, KindObject:
		return Null(), nil
	default:
		return Null(), nil
	}
}

func fnReverse(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	if v := args[1]; v.Kind() == KindList {
		vs := v.List().Values()
		slices.Reverse(vs)

		return ListOf(vs...), nil
	}

	rs := []rune(args[1].Text())
	slices.Reverse(rs)

	return String(string(rs)), nil
}

func fnSort(args []Value) (Value, error) {
	if err := want(args, 1); err != nil {
		return Null(), err
	}

	vs := args[1:]
	if len(vs) == 1 && vs[0].Kind() == KindList {
		vs = vs[0].List().Values()
	} else {
		vs = slices.Clone(vs)
	}

	slices.SortStableFunc(vs, Value.Compare)

	return ListOf(vs...), nil
}

// (has collection key)
func fnHas(args []Value) (Value, error) {
	if err := want(args, 2); err != nil {
		return Null(), err
	}

	_, ok := member(args[1], args[2].Text())

	return Bool(ok), nil
}
