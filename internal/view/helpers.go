package view

import (
	"fmt"
	"html"
	"html/template"
	"reflect"
	"sort"
	"strings"

	"github.com/JonMunkholm/etl/internal/apierror"
)

// htmler is implemented by values that render themselves, such as apierror.Error.
type htmler interface {
	HTML() template.HTML
}

// NL2BR escapes s and inserts a line break tag before every newline.
func NL2BR(s string) template.HTML {
	return template.HTML(apierror.NL2BR(html.EscapeString(s)))
}

// ToGenericHTML renders item wrapped in itemTag. Maps and slices render one
// entry per key, the key wrapped in categoryTag when set and the value in
// groupTag. Nested values use the li/ul defaults.
func ToGenericHTML(item any, itemTag, groupTag, categoryTag string) template.HTML {
	if itemTag == "" {
		itemTag = "li"
	}
	if groupTag == "" {
		groupTag = "ul"
	}

	var b strings.Builder
	b.WriteString("<" + itemTag + ">")

	if body, ok := renderScalar(item); ok {
		b.WriteString(body)
	} else if entries, ok := entriesOf(item); ok {
		for _, e := range entries {
			if categoryTag != "" {
				b.WriteString("<" + categoryTag + ">")
			}
			b.WriteString(html.EscapeString(e.key) + ": ")
			if categoryTag != "" {
				b.WriteString("</" + categoryTag + ">")
			}
			b.WriteString("<" + groupTag + ">")
			b.WriteString(string(ToGenericHTML(e.value, "li", "ul", "")))
			b.WriteString("</" + groupTag + ">")
		}
	} else {
		b.WriteString(pre(item))
	}

	b.WriteString("</" + itemTag + ">")
	return template.HTML(b.String())
}

// ToGenericHTMLTable renders item as table rows. Maps and slices get one row
// per key with the value in a nested table.
func ToGenericHTMLTable(item any) template.HTML {
	var b strings.Builder

	if body, ok := renderScalar(item); ok {
		b.WriteString("<tr><td>" + body + "</td></tr>")
	} else if entries, ok := entriesOf(item); ok {
		for _, e := range entries {
			b.WriteString("<tr><td>" + html.EscapeString(e.key) + ": </td><td>")
			b.WriteString(`<table class="plugin-etl__section-error__recursing"><tbody>`)
			b.WriteString(string(ToGenericHTMLTable(e.value)))
			b.WriteString("</tbody></table></td></tr>")
		}
	} else {
		b.WriteString("<tr><td>" + pre(item) + "</td></tr>")
	}

	return template.HTML(b.String())
}

// renderScalar renders values that know their own HTML or text form.
func renderScalar(item any) (string, bool) {
	switch v := item.(type) {
	case htmler:
		return string(v.HTML()), true
	case template.HTML:
		return string(v), true
	case string:
		return string(NL2BR(v)), true
	case fmt.Stringer:
		return string(NL2BR(v.String())), true
	}
	return "", false
}

type entry struct {
	key   string
	value any
}

// entriesOf lists the entries of a map, sorted by key, or of a slice.
func entriesOf(item any) ([]entry, bool) {
	v := reflect.ValueOf(item)
	switch v.Kind() {
	case reflect.Map:
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return lessKey(keys[i], keys[j]) })
		out := make([]entry, 0, len(keys))
		for _, k := range keys {
			out = append(out, entry{key: fmt.Sprint(k.Interface()), value: v.MapIndex(k).Interface()})
		}
		return out, true
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			return nil, false
		}
		out := make([]entry, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			out = append(out, entry{key: fmt.Sprint(i), value: v.Index(i).Interface()})
		}
		return out, true
	}
	return nil, false
}

func lessKey(a, b reflect.Value) bool {
	switch a.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return a.Int() < b.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return a.Uint() < b.Uint()
	}
	return fmt.Sprint(a.Interface()) < fmt.Sprint(b.Interface())
}

// pre dumps any other value.
func pre(item any) string {
	if item == nil {
		return "<pre>NULL</pre>"
	}
	return "<pre>" + html.EscapeString(fmt.Sprintf("%#v", item)) + "</pre>"
}
