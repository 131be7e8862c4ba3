package keyboard

import (
	"fmt"

	"swipebraille/internal/braille"
)

// TextProxy is the host's editable text cursor.
type TextProxy interface {
	InsertText(text string)
	DeleteBackward()
}

// CommandKind enumerates the text commands the keyboard can issue.
type CommandKind int

const (
	InsertCharacter CommandKind = iota
	DeleteBackward
	InsertNewline
	InsertSpace
	InsertBlankCell
)

var commandNames = [...]string{
	InsertCharacter: "insert_character",
	DeleteBackward:  "delete_backward",
	InsertNewline:   "insert_newline",
	InsertSpace:     "insert_space",
	InsertBlankCell: "insert_blank_cell",
}

func (k CommandKind) String() string {
	if k < 0 || int(k) >= len(commandNames) {
		return fmt.Sprintf("CommandKind(%d)", int(k))
	}
	return commandNames[k]
}

// MarshalText encodes the kind by name.
func (k CommandKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name.
func (k *CommandKind) UnmarshalText(b []byte) error {
	for i, name := range commandNames {
		if name == string(b) {
			*k = CommandKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown command kind %q", b)
}

// Command is one text edit. It is applied immediately and not retained.
type Command struct {
	Kind CommandKind `json:"kind"`
	// Text is the inserted text; empty for DeleteBackward.
	Text string `json:"text,omitempty"`
}

// Text for the fixed-output commands.
const (
	NewlineText   = "\n"
	SpaceText     = " "
	BlankCellText = string(braille.BlankCell)
)

// CharacterCommand returns an InsertCharacter command for c.
func CharacterCommand(c string) Command {
	return Command{Kind: InsertCharacter, Text: c}
}

// ControlCommand returns the command a discrete control emits.
func ControlCommand(kind CommandKind) Command {
	switch kind {
	case InsertNewline:
		return Command{Kind: kind, Text: NewlineText}
	case InsertSpace:
		return Command{Kind: kind, Text: SpaceText}
	case InsertBlankCell:
		return Command{Kind: kind, Text: BlankCellText}
	default:
		return Command{Kind: kind}
	}
}

// Apply performs the command against p.
func (c Command) Apply(p TextProxy) {
	if c.Kind == DeleteBackward {
		p.DeleteBackward()
		return
	}
	if c.Text != "" {
		p.InsertText(c.Text)
	}
}
