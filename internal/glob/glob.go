// Package glob matches log attribute filters such as "err=*" or
// "path=carpeta1/**".
package glob

import (
	"regexp"
	"strings"
)

// Pattern is a compiled glob.
type Pattern struct {
	src string
	re  *regexp.Regexp
}

// Compile translates pattern into an anchored regular expression.
//
//	*      any run of characters except '/'
//	**     any run of characters, "**/" also matches nothing
//	?      one character except '/'
//	[abc]  character class, [!abc] negated
//	{a,b}  alternation, may nest
//	\x     literal x
func Compile(pattern string) (*Pattern, error) {
	re, err := regexp.Compile("^" + translate(pattern) + "$")
	if err != nil {
		return nil, err
	}
	return &Pattern{src: pattern, re: re}, nil
}

// MustCompile is Compile for patterns known to be valid.
func MustCompile(pattern string) *Pattern {
	p, err := Compile(pattern)
	if err != nil {
		panic("glob: " + err.Error())
	}
	return p
}

func (p *Pattern) String() string { return p.src }

func (p *Pattern) Match(s string) bool { return p.re.MatchString(s) }

// Match reports whether s matches pattern.
func Match(pattern, s string) (bool, error) {
	p, err := Compile(pattern)
	if err != nil {
		return false, err
	}
	return p.Match(s), nil
}

func translate(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**/") {
				b.WriteString("(?:.*/)?")
				i += 2
			} else if strings.HasPrefix(pattern[i:], "**") {
				b.WriteString(".*")
				i++
			} else {
				b.WriteString("[^/]*")
			}
		case '?':
			b.WriteString("[^/]")
		case '[':
			end := strings.IndexByte(pattern[i+1:], ']')
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : i+1+end]
			b.WriteByte('[')
			if strings.HasPrefix(class, "!") {
				b.WriteByte('^')
				class = class[1:]
			}
			b.WriteString(strings.ReplaceAll(class, "/", ""))
			b.WriteByte(']')
			i += end + 1
		case '{':
			end := closingBrace(pattern, i)
			if end < 0 {
				b.WriteString(`\{`)
				continue
			}
			alts := splitAlternatives(pattern[i+1 : end])
			b.WriteString("(?:")
			for k, alt := range alts {
				if k > 0 {
					b.WriteByte('|')
				}
				b.WriteString(translate(alt))
			}
			b.WriteByte(')')
			i = end
		case '\\':
			if i+1 < len(pattern) {
				i++
				b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
			} else {
				b.WriteString(`\\`)
			}
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		}
	}
	return b.String()
}

// closingBrace returns the index of the brace closing the one at open, or -1.
func closingBrace(pattern string, open int) int {
	depth := 0
	for i := open; i < len(pattern); i++ {
		switch pattern[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// splitAlternatives splits on commas outside nested braces.
func splitAlternatives(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
