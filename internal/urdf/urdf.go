// Package urdf finds the robot description embedded in a markdown body so
// it can be handed to a renderer. The fragment itself is opaque here: only
// the presence of the root tag is checked.
package urdf

import (
	"encoding/xml"
	"errors"
	"regexp"
	"strings"
)

// RootTag is the recognized document root.
const RootTag = "robot"

var (
	// fence matches a fenced code block with an optional info string. Both
	// fence lines must start a line, so backticks inside the code do not
	// close the block.
	fence = regexp.MustCompile("(?ms)^ {0,3}```[^\\n`]*\\n(.*?)^ {0,3}```[ \\t]*$")

	// rawRobot matches a paired or self-closing robot element. The tag
	// name must end at whitespace, a slash or the closing bracket.
	rawRobot = regexp.MustCompile(`(?s)<robot(?:\s[^>]*?)?/>|<robot(?:\s[^>]*)?>.*?</robot\s*>`)

	openTag = regexp.MustCompile(`<robot[\s/>]`)
)

// ErrNoName is returned when a fragment has no robot name.
var ErrNoName = errors.New("robot has no name")

// Extract returns the first robot description in markdown. Fenced code
// blocks are searched first, in document order; only when none contains a
// robot element is the text outside fences scanned for a raw element.
func Extract(markdown string) (string, bool) {
	blocks := fence.FindAllStringSubmatchIndex(markdown, -1)
	for _, b := range blocks {
		code := markdown[b[2]:b[3]]
		if openTag.MatchString(code) {
			return strings.TrimSpace(code), true
		}
	}

	outside := stripFences(markdown, blocks)
	if m := rawRobot.FindString(outside); m != "" {
		return strings.TrimSpace(m), true
	}
	return "", false
}

// stripFences blanks out the fenced spans so raw matching cannot reach
// into them.
func stripFences(markdown string, blocks [][]int) string {
	if len(blocks) == 0 {
		return markdown
	}
	var sb strings.Builder
	last := 0
	for _, b := range blocks {
		sb.WriteString(markdown[last:b[0]])
		sb.WriteString("\n")
		last = b[1]
	}
	sb.WriteString(markdown[last:])
	return sb.String()
}

type robot struct {
	XMLName xml.Name `xml:"robot"`
	Name    string   `xml:"name,attr"`
}

// Name reads the name attribute of the fragment's robot element.
func Name(fragment string) (string, error) {
	var r robot
	if err := xml.Unmarshal([]byte(fragment), &r); err != nil {
		return "", err
	}
	if r.Name == "" {
		return "", ErrNoName
	}
	return r.Name, nil
}

// Snippet is the starter description the editor inserts.
func Snippet(name string) string {
	if name == "" {
		name = "robot"
	}
	return "\n```xml\n<robot name=\"" + escapeAttr(name) + "\">\n  <link name=\"base_link\"/>\n</robot>\n```\n"
}

func escapeAttr(s string) string {
	var sb strings.Builder
	if err := xml.EscapeText(&sb, []byte(s)); err != nil {
		return s
	}
	return sb.String()
}
