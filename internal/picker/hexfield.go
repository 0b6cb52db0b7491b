package picker

import "github.com/jmylchreest/swatch/internal/colour"

// HexField holds the transient text of a hex input while the user edits it, so
// partially typed values are never replaced by the normalised colour mid-keystroke.
// It is independent of the drag mode.
type HexField struct {
	editing bool
	text    string
}

// Begin starts editing with the field showing current.
func (f *HexField) Begin(current string) {
	f.editing = true
	f.text = current
}

// Type records raw text and reports the colour it denotes once it is valid.
// Typing outside an edit implicitly begins one.
func (f *HexField) Type(text string) (colour.RGB, bool) {
	f.editing = true
	f.text = text
	rgb, err := colour.ParseHex(text)
	if err != nil {
		return colour.RGB{}, false
	}
	return rgb, true
}

// End stops editing and discards the raw text.
func (f *HexField) End() {
	f.editing = false
	f.text = ""
}

// Editing reports whether an edit is in progress.
func (f *HexField) Editing() bool {
	return f.editing
}

// Display returns the raw text while editing and current otherwise.
func (f *HexField) Display(current string) string {
	if f.editing {
		return f.text
	}
	return current
}
