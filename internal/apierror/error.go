// Package apierror holds the structured errors collected while records are
// pushed into the host data layer, plus the control-flow signals used to
// unwind an import without losing the diagnostics already recorded.
package apierror

import (
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"
)

// Defaults applied when an Error is built from incomplete values.
const (
	DefaultMessage    = "Bad Request"
	DefaultHTTPCode   = 400
	DefaultStatusCode = "ERROR"
)

// Error is an immutable diagnostic recorded during an import.
type Error struct {
	message    string
	httpCode   int
	statusCode string
	docMessage string

	// raw skips escaping of the message. Host notifications already carry markup.
	raw bool
}

// New builds an Error with the default escape strategy.
func New(message string, httpCode int, statusCode, docMessage string) Error {
	if message == "" {
		message = DefaultMessage
	}
	if httpCode == 0 {
		httpCode = DefaultHTTPCode
	}
	if statusCode == "" {
		statusCode = DefaultStatusCode
	}
	return Error{
		message:    message,
		httpCode:   httpCode,
		statusCode: statusCode,
		docMessage: docMessage,
	}
}

func (e Error) Message() string    { return e.message }
func (e Error) HTTPCode() int      { return e.httpCode }
func (e Error) StatusCode() string { return e.statusCode }
func (e Error) DocMessage() string { return e.docMessage }

// Raw returns a copy rendered without escaping the message.
func (e Error) Raw() Error {
	e.raw = true
	return e
}

// Escaped reports whether HTML() escapes the message.
func (e Error) Escaped() bool { return !e.raw }

// String renders the message followed by the codes and doc citation.
func (e Error) String() string {
	return fmt.Sprintf("%s\n(%d - %s) %s", e.message, e.httpCode, e.statusCode, e.docMessage)
}

// HTML renders the error as a two-cell table.
func (e Error) HTML() template.HTML {
	msg := e.message
	if !e.raw {
		msg = html.EscapeString(msg)
	}
	return template.HTML(fmt.Sprintf(
		`<table class="plugin-etl__error-msg"><tbody><tr><td>%s - %s<br/>%s</td><td>%s</td></tr></tbody></table>`,
		html.EscapeString(strconv.Itoa(e.httpCode)),
		html.EscapeString(e.statusCode),
		html.EscapeString(e.docMessage),
		NL2BR(msg),
	))
}

// MarshalJSON exposes the error fields to API clients.
func (e Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message    string `json:"message"`
		HTTPCode   int    `json:"http_code"`
		StatusCode string `json:"status_code"`
		DocMessage string `json:"doc_message,omitempty"`
	}{e.message, e.httpCode, e.statusCode, e.docMessage})
}

// NL2BR inserts a line break tag before every newline sequence. It does not
// escape s.
func NL2BR(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\r' && i+1 < len(s) && s[i+1] == '\n':
			b.WriteString("<br />\r\n")
			i++
		case s[i] == '\n' || s[i] == '\r':
			b.WriteString("<br />")
			b.WriteByte(s[i])
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
