package diag

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrBadFixCode is returned when a diagnostic code cannot be decoded
// into a fix payload.
var ErrBadFixCode = errors.New("malformed fix code")

// FixPayload is a single text replacement expressed in UTF-16 units
// of the document it belongs to.
type FixPayload struct {
	ReplacementText string `json:"replacementText"`
	Offset          int    `json:"offset"`
	Length          int    `json:"length"`
}

// Code encodes the payload as a JSON array [text, offset, length]. The
// language server stores it in the diagnostic code so quick fixes can be
// rebuilt from whatever the client echoes back.
func (p FixPayload) Code() string {
	b, err := json.Marshal([]any{p.ReplacementText, p.Offset, p.Length})
	if err != nil {
		// a string and two ints always marshal
		panic(err)
	}
	return string(b)
}

// ParseFixCode reverses FixPayload.Code.
func ParseFixCode(code string) (FixPayload, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(code), &raw); err != nil {
		return FixPayload{}, fmt.Errorf("%w: %w", ErrBadFixCode, err)
	}
	if len(raw) != 3 {
		return FixPayload{}, fmt.Errorf("%w: want 3 elements, got %d", ErrBadFixCode, len(raw))
	}
	var p FixPayload
	if err := json.Unmarshal(raw[0], &p.ReplacementText); err != nil {
		return FixPayload{}, fmt.Errorf("%w: text: %w", ErrBadFixCode, err)
	}
	if err := json.Unmarshal(raw[1], &p.Offset); err != nil {
		return FixPayload{}, fmt.Errorf("%w: offset: %w", ErrBadFixCode, err)
	}
	if err := json.Unmarshal(raw[2], &p.Length); err != nil {
		return FixPayload{}, fmt.Errorf("%w: length: %w", ErrBadFixCode, err)
	}
	if p.Offset < 0 || p.Length < 0 {
		return FixPayload{}, fmt.Errorf("%w: negative range", ErrBadFixCode)
	}
	return p, nil
}
