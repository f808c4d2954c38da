package webpush

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// DefaultMaxPayloadBytes leaves room for the aes128gcm record overhead below
// the 4096 byte limit enforced by push services.
const DefaultMaxPayloadBytes = 3072

// ErrPayloadTooLarge is returned when a payload cannot be trimmed to the size limit.
var ErrPayloadTooLarge = errors.New("push payload exceeds size limit")

// Payload is the JSON document delivered to the service worker.
type Payload struct {
	Title string      `json:"title"`
	Body  string      `json:"body"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries the fields the client uses to open the task.
type PayloadData struct {
	TaskID string `json:"taskId"`
}

// NewPayload builds the payload for a task reminder.
func NewPayload(title, body string, taskID int64) Payload {
	return Payload{
		Title: title,
		Body:  body,
		Data:  PayloadData{TaskID: strconv.FormatInt(taskID, 10)},
	}
}

// Encode serializes the payload, trimming the body and then the title until
// the encoded form is at most maxBytes. Text is only cut on rune boundaries.
func (p Payload) Encode(maxBytes int) ([]byte, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPayloadBytes
	}

	for {
		data, err := encodeJSON(p)
		if err != nil {
			return nil, err
		}

		excess := len(data) - maxBytes
		if excess <= 0 {
			return data, nil
		}

		// Escaping only ever grows a string, so dropping n raw bytes shrinks
		// the encoded document by at least n.
		switch {
		case p.Body != "":
			p.Body = trimRunes(p.Body, excess)
		case p.Title != "":
			p.Title = trimRunes(p.Title, excess)
		default:
			return nil, fmt.Errorf("%w: %d bytes over %d", ErrPayloadTooLarge, excess, maxBytes)
		}
	}
}

func encodeJSON(p Payload) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("failed to encode push payload: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// trimRunes removes whole runes from the end of s until at least n bytes are gone.
func trimRunes(s string, n int) string {
	removed := 0
	for removed < n && s != "" {
		_, size := utf8.DecodeLastRuneInString(s)
		s = s[:len(s)-size]
		removed += size
	}
	return s
}
