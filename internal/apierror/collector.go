package apierror

import (
	"fmt"
	"strings"
)

// CitationTemplate formats the documentation hint attached to errors.
const CitationTemplate = "view documentation in your browser at %s"

// Collector accumulates errors for one operation. It is not safe for
// concurrent use; each request owns its own collector.
type Collector struct {
	docBaseURL string
	errors     []Error
}

// NewCollector returns an empty collector citing docBaseURL in new errors.
func NewCollector(docBaseURL string) *Collector {
	return &Collector{docBaseURL: strings.TrimRight(docBaseURL, "/")}
}

// DocBaseURL returns the documentation base used for citations.
func (c *Collector) DocBaseURL() string { return c.docBaseURL }

// Add appends err. Identical errors are kept.
func (c *Collector) Add(err Error) {
	c.errors = append(c.errors, err)
}

// AddAll appends errs in order.
func (c *Collector) AddAll(errs []Error) {
	c.errors = append(c.errors, errs...)
}

// AddForItem records an error whose message names the item it concerns.
// An empty id leaves the id part out of the message.
func (c *Collector) AddForItem(prefix, itemType, id string, httpCode int, statusCode string) {
	c.Add(c.NewError(ItemMessage(prefix, itemType, id, ""), httpCode, statusCode))
}

// Errors returns a copy of the recorded errors in insertion order.
func (c *Collector) Errors() []Error {
	out := make([]Error, len(c.errors))
	copy(out, c.errors)
	return out
}

func (c *Collector) HasError() bool { return len(c.errors) > 0 }

func (c *Collector) Len() int { return len(c.errors) }

// Clear empties the collector.
func (c *Collector) Clear() {
	c.errors = nil
}

// NewError builds an Error citing the documentation for statusCode.
func (c *Collector) NewError(message string, httpCode int, statusCode string) Error {
	if statusCode == "" {
		statusCode = DefaultStatusCode
	}
	return New(message, httpCode, statusCode, DocCitation(DocURL(c.docBaseURL, statusCode), CitationTemplate))
}

// NewErrorWithDoc builds an Error with an explicit, possibly empty, doc message.
func (c *Collector) NewErrorWithDoc(message string, httpCode int, statusCode, doc string) Error {
	return New(message, httpCode, statusCode, doc)
}

// ItemMessage builds "<prefix> >>> <type>::id = <id>. <suffix>".
// The prefix separator and the suffix are only written when non-empty.
// An empty type is shown as "?".
func ItemMessage(prefix, itemType, id, suffix string) string {
	var b strings.Builder
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteString(" >>> ")
	}
	if itemType == "" {
		itemType = "?"
	}
	b.WriteString(itemType)
	if id != "" {
		b.WriteString("::id = ")
		b.WriteString(id)
	}
	if suffix != "" {
		b.WriteString(". ")
		b.WriteString(suffix)
	}
	return b.String()
}

// DocURL returns the anchor documenting statusCode under base.
// Anchors are lower case and the generic "error" status lives under "#errors".
func DocURL(base, statusCode string) string {
	if base == "" {
		return ""
	}
	anchor := strings.ToLower(statusCode)
	if anchor == "error" {
		anchor = "errors"
	}
	return strings.TrimRight(base, "/") + "/#" + anchor
}

// DocCitation fills template with url. No citation is produced without a url.
func DocCitation(url, template string) string {
	if url == "" {
		return ""
	}
	return fmt.Sprintf(template, url)
}
