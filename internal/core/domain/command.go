package domain

import "strings"

// Command is a parsed slash command.
type Command struct {
	Verb string
	// Args is everything after the first space, trimmed. HasArgs is false
	// when the message had no space at all.
	Args    string
	HasArgs bool
}

// ParseCommand recognises "/verb[@bot] [args]". ok is false for plain text.
func ParseCommand(text string) (Command, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Command{}, false
	}

	head, rest, hasArgs := strings.Cut(text, " ")
	verb := strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(verb, '@'); at >= 0 {
		verb = verb[:at]
	}
	if verb == "" {
		return Command{}, false
	}

	cmd := Command{Verb: strings.ToLower(verb), HasArgs: hasArgs}
	if hasArgs {
		cmd.Args = strings.TrimSpace(rest)
	}
	return cmd, true
}

// SplitFields splits a `;`-separated argument into trimmed fields.
func SplitFields(args string) []string {
	parts := strings.Split(args, ";")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
