package artifact

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Turn is one parsed contribution in reading order.
type Turn struct {
	Number  int
	Speaker string
	Content string
}

// RefereeNote is a parsed human note at its recorded insertion point.
type RefereeNote struct {
	AfterTurn int
	Text      string
}

// Session is the result of round-tripping a conversation artifact.
type Session struct {
	Header   Header
	Turns    []Turn
	Notes    []RefereeNote
	Closings []ClosingStatement
}

var (
	turnHeadingRe = regexp.MustCompile(`^## Turn (\d+) - (.+)$`)
	noteRe        = regexp.MustCompile(`^<!-- REFEREE @ Turn (\d+): (.*) -->$`)
	closingNameRe = regexp.MustCompile(`^### (.+)$`)
)

const closingHeading = "## Closing Statements"

// ParseFile reads and parses a conversation artifact from disk.
func ParseFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("artifact: reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse round-trips an artifact into its records: N completed turns in
// original order, referee notes at their insertion points, and any closing
// statements.
func Parse(content []byte) (*Session, error) {
	header, body, err := ParseFrontmatter(content)
	if err != nil {
		return nil, err
	}
	session := &Session{Header: header}

	var (
		inClosings  bool
		turnNumber  int
		turnSpeaker string
		closingName string
		buf         []string
		collecting  bool
	)

	flush := func() {
		if !collecting {
			return
		}
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		if inClosings {
			session.Closings = append(session.Closings, ClosingStatement{Name: closingName, Text: text})
		} else {
			session.Turns = append(session.Turns, Turn{Number: turnNumber, Speaker: turnSpeaker, Content: text})
		}
		buf = nil
		collecting = false
	}

	for _, line := range strings.Split(string(body), "\n") {
		switch {
		case noteRe.MatchString(line):
			m := noteRe.FindStringSubmatch(line)
			after, convErr := strconv.Atoi(m[1])
			if convErr != nil {
				return nil, fmt.Errorf("artifact: bad referee note turn number: %w", convErr)
			}
			flush()
			session.Notes = append(session.Notes, RefereeNote{AfterTurn: after, Text: m[2]})

		case !inClosings && turnHeadingRe.MatchString(line):
			m := turnHeadingRe.FindStringSubmatch(line)
			n, convErr := strconv.Atoi(m[1])
			if convErr != nil {
				return nil, fmt.Errorf("artifact: bad turn number: %w", convErr)
			}
			flush()
			turnNumber = n
			turnSpeaker = m[2]
			collecting = true
			buf = nil

		case strings.TrimSpace(line) == closingHeading:
			// The writer emits one separator line right before this heading;
			// it is structure, not turn content.
			for len(buf) > 0 && strings.TrimSpace(buf[len(buf)-1]) == "" {
				buf = buf[:len(buf)-1]
			}
			if len(buf) > 0 && strings.TrimSpace(buf[len(buf)-1]) == "---" {
				buf = buf[:len(buf)-1]
			}
			flush()
			inClosings = true

		case inClosings && closingNameRe.MatchString(line):
			flush()
			closingName = closingNameRe.FindStringSubmatch(line)[1]
			collecting = true
			buf = nil

		default:
			if collecting {
				buf = append(buf, line)
			}
		}
	}
	flush()

	return session, nil
}
