// Package wildcard implements the glob-style patterns used by KEYS, SCAN MATCH and PSUBSCRIBE
package wildcard

const (
	normal    = iota
	all       // *
	anyChar   // ?
	setSymbol // [] or [^]
)

type charRange struct {
	lo, hi byte
}

type item struct {
	character byte
	set       map[byte]bool
	ranges    []charRange
	negative  bool
	typeCode  int
}

func (i *item) contains(c byte) bool {
	matched := i.set[c]
	if !matched {
		for _, r := range i.ranges {
			if c >= r.lo && c <= r.hi {
				matched = true
				break
			}
		}
	}
	return matched != i.negative
}

func (i *item) match(c byte) bool {
	switch i.typeCode {
	case anyChar:
		return true
	case normal:
		return i.character == c
	case setSymbol:
		return i.contains(c)
	}
	return false
}

// Pattern represents a wildcard pattern
type Pattern struct {
	src   string
	items []*item
}

// CompilePattern convert wildcard string to Pattern.
// An unclosed '[' extends to the end of the pattern, like redis does.
func CompilePattern(src string) *Pattern {
	items := make([]*item, 0, len(src))
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch c {
		case '\\':
			if i+1 < len(src) {
				i++
			}
			items = append(items, &item{typeCode: normal, character: src[i]})
		case '*':
			if len(items) > 0 && items[len(items)-1].typeCode == all {
				continue
			}
			items = append(items, &item{typeCode: all})
		case '?':
			items = append(items, &item{typeCode: anyChar})
		case '[':
			set := &item{typeCode: setSymbol, set: make(map[byte]bool)}
			j := i + 1
			if j < len(src) && src[j] == '^' {
				set.negative = true
				j++
			}
			for ; j < len(src) && src[j] != ']'; j++ {
				switch {
				case src[j] == '\\' && j+1 < len(src):
					j++
					set.set[src[j]] = true
				case j+2 < len(src) && src[j+1] == '-' && src[j+2] != ']':
					lo, hi := src[j], src[j+2]
					if lo > hi {
						lo, hi = hi, lo
					}
					set.ranges = append(set.ranges, charRange{lo: lo, hi: hi})
					j += 2
				default:
					set.set[src[j]] = true
				}
			}
			i = j
			items = append(items, set)
		default:
			items = append(items, &item{typeCode: normal, character: c})
		}
	}
	return &Pattern{
		src:   src,
		items: items,
	}
}

// String returns the source of the pattern
func (p *Pattern) String() string {
	return p.src
}

// IsMatch returns whether the given string matches pattern
func (p *Pattern) IsMatch(s string) bool {
	if len(p.items) == 0 {
		return len(s) == 0
	}
	if len(p.items) == 1 && p.items[0].typeCode == all {
		return true
	}
	m := len(s)
	n := len(p.items)
	// prev[j]: s[:i-1] matches items[:j]; cur[j]: s[:i] matches items[:j]
	prev := make([]bool, n+1)
	cur := make([]bool, n+1)
	prev[0] = true
	for j := 1; j <= n; j++ {
		prev[j] = prev[j-1] && p.items[j-1].typeCode == all
	}
	for i := 1; i <= m; i++ {
		cur[0] = false
		for j := 1; j <= n; j++ {
			it := p.items[j-1]
			if it.typeCode == all {
				cur[j] = prev[j] || cur[j-1]
			} else {
				cur[j] = prev[j-1] && it.match(s[i-1])
			}
		}
		prev, cur = cur, prev
	}
	return prev[n]
}

// Match compiles pattern and matches s against it
func Match(pattern, s string) bool {
	return CompilePattern(pattern).IsMatch(s)
}
