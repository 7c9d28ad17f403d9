// Package sanitizer repairs model replies that leak tool-call syntax into the
// text channel. It is the only place in the codebase that knows what leaked
// markup looks like.
package sanitizer

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/harunnryd/foodiebot/internal/model/contract"
)

// InlineCallID is the id given to a call recovered from text.
const InlineCallID = "inline_0"

var (
	functionTag  = regexp.MustCompile(`<function=([A-Za-z0-9_.\-]+)`)
	toolCallOpen = "<tool_call>"
	toolCallEnd  = "</tool_call>"
	closingTags  = regexp.MustCompile(`</?function\s*>|</function|</?tool_call\s*>`)
	blankRuns    = regexp.MustCompile(`[ \t]{2,}`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// Sanitizer knows the advertised tools so it can tell a leaked call from prose
// and recognise argument debris left after a call was removed.
type Sanitizer struct {
	tools  map[string]struct{}
	params map[string]struct{}
}

func New(defs []contract.ToolDef) *Sanitizer {
	s := &Sanitizer{
		tools:  make(map[string]struct{}, len(defs)),
		params: make(map[string]struct{}),
	}
	for _, d := range defs {
		s.tools[d.Name] = struct{}{}
		if props, ok := d.Parameters["properties"].(map[string]interface{}); ok {
			for name := range props {
				s.params[name] = struct{}{}
			}
		}
	}
	return s
}

// leak is one inline call found in text: the byte span it occupies and what it names.
type leak struct {
	start, end int
	name       string
	args       string
}

// Repair applies the leakage rules:
//   - no structured calls and an inline call to a known tool: the first such call
//     becomes the only ToolCall and the text is dropped.
//   - structured calls present: inline fragments are stripped, never promoted.
//   - nothing call-shaped in the text: the response is returned unchanged.
//     A bare argument object counts as call-shaped only when structured calls
//     are present.
func (s *Sanitizer) Repair(resp contract.CompletionResponse) contract.CompletionResponse {
	if resp.Content == "" {
		return resp
	}

	leaks := s.findLeaks(resp.Content)
	tagged := len(leaks) > 0 || closingTags.MatchString(resp.Content)
	withDebris := tagged || len(resp.ToolCalls) > 0
	if !tagged && !(withDebris && s.hasDebris(resp.Content)) {
		return resp
	}

	if len(resp.ToolCalls) == 0 {
		for _, l := range leaks {
			if !s.known(l.name) {
				continue
			}
			return contract.CompletionResponse{
				ToolCalls: []*contract.ToolCall{{ID: InlineCallID, Name: l.name, Input: l.args}},
			}
		}
	}

	out := resp
	out.Content = s.strip(resp.Content, leaks, withDebris)
	return out
}

// Clean strips every call-shaped fragment from text meant for the user. Bare
// argument objects are removed only when a tag was found alongside them.
func (s *Sanitizer) Clean(text string) string {
	if text == "" {
		return text
	}
	leaks := s.findLeaks(text)
	if len(leaks) == 0 && !closingTags.MatchString(text) {
		return text
	}
	return s.strip(text, leaks, true)
}

func (s *Sanitizer) known(name string) bool {
	if len(s.tools) == 0 {
		return true
	}
	_, ok := s.tools[name]
	return ok
}

func (s *Sanitizer) findLeaks(text string) []leak {
	var leaks []leak

	for _, loc := range functionTag.FindAllStringSubmatchIndex(text, -1) {
		if len(leaks) > 0 && loc[0] < leaks[len(leaks)-1].end {
			continue
		}
		l := leak{start: loc[0], name: text[loc[2]:loc[3]]}
		pos := skipAny(text, loc[1], " \t>(")

		if pos < len(text) && text[pos] == '{' {
			end := balancedEnd(text, pos)
			if end < 0 {
				l.args = strings.TrimSpace(trimClosing(text[pos:]))
				l.end = len(text)
			} else {
				l.args = text[pos:end]
				l.end = consumeClosing(text, end)
			}
		} else {
			closeAt := strings.Index(text[pos:], "</function")
			if closeAt < 0 {
				l.args = strings.TrimSpace(text[pos:])
				l.end = len(text)
			} else {
				l.args = strings.TrimSpace(text[pos : pos+closeAt])
				l.end = consumeClosing(text, pos+closeAt)
			}
		}
		leaks = append(leaks, l)
	}

	offset := 0
	for {
		idx := strings.Index(text[offset:], toolCallOpen)
		if idx < 0 {
			break
		}
		start := offset + idx
		bodyStart := start + len(toolCallOpen)
		end := len(text)
		body := text[bodyStart:]
		if closeAt := strings.Index(body, toolCallEnd); closeAt >= 0 {
			body = body[:closeAt]
			end = bodyStart + closeAt + len(toolCallEnd)
		}
		l := leak{start: start, end: end}
		var call struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &call); err == nil {
			l.name = call.Name
			l.args = string(call.Arguments)
		}
		leaks = insertSorted(leaks, l)
		offset = end
	}

	return leaks
}

func (s *Sanitizer) strip(text string, leaks []leak, withDebris bool) string {
	var b strings.Builder
	prev := 0
	for _, l := range leaks {
		if l.start < prev {
			continue
		}
		b.WriteString(text[prev:l.start])
		prev = l.end
	}
	b.WriteString(text[prev:])

	cleaned := closingTags.ReplaceAllString(b.String(), "")
	if withDebris {
		cleaned = s.stripDebris(cleaned)
	}
	cleaned = blankRuns.ReplaceAllString(cleaned, " ")
	cleaned = blankLines.ReplaceAllString(cleaned, "\n\n")
	return strings.TrimSpace(cleaned)
}

// hasDebris reports a bare argument object such as {"location": "Kemang"} whose
// keys are all tool parameters. Callers act on it only next to leaked markup or
// structured calls.
func (s *Sanitizer) hasDebris(text string) bool {
	return len(s.debrisSpans(text)) > 0
}

func (s *Sanitizer) stripDebris(text string) string {
	spans := s.debrisSpans(text)
	if len(spans) == 0 {
		return text
	}
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		b.WriteString(text[prev:sp[0]])
		prev = sp[1]
	}
	b.WriteString(text[prev:])
	return b.String()
}

func (s *Sanitizer) debrisSpans(text string) [][2]int {
	if len(s.params) == 0 {
		return nil
	}
	var spans [][2]int
	for i := 0; i < len(text); i++ {
		if text[i] != '{' || i+1 >= len(text) {
			continue
		}
		if next := skipAny(text, i+1, " \t\n"); next >= len(text) || text[next] != '"' {
			continue
		}
		end := balancedEnd(text, i)
		if end < 0 {
			continue
		}
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(text[i:end]), &obj); err != nil || len(obj) == 0 {
			continue
		}
		allParams := true
		for k := range obj {
			if _, ok := s.params[k]; !ok {
				allParams = false
				break
			}
		}
		if allParams {
			spans = append(spans, [2]int{i, end})
			i = end - 1
		}
	}
	return spans
}

// balancedEnd returns the index just past the object opening at text[start],
// or -1 when the object never closes.
func balancedEnd(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		ch := text[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			if ch == '\\' {
				escaped = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}

func skipAny(text string, pos int, chars string) int {
	for pos < len(text) && strings.IndexByte(chars, text[pos]) >= 0 {
		pos++
	}
	return pos
}

// consumeClosing advances past an optional ")" and a closing tag in any of the
// shapes models produce: </function>, </function, <function>.
func consumeClosing(text string, pos int) int {
	pos = skipAny(text, pos, " \t)")
	for _, tag := range []string{"</function>", "</function", "<function>"} {
		if strings.HasPrefix(text[pos:], tag) {
			return pos + len(tag)
		}
	}
	return pos
}

func trimClosing(s string) string {
	return closingTags.ReplaceAllString(s, "")
}

func insertSorted(leaks []leak, l leak) []leak {
	i := len(leaks)
	for i > 0 && leaks[i-1].start > l.start {
		i--
	}
	leaks = append(leaks, leak{})
	copy(leaks[i+1:], leaks[i:])
	leaks[i] = l
	return leaks
}
