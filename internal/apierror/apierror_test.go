package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItemMessage(t *testing.T) {
	tests := []struct {
		name                         string
		prefix, itemType, id, suffix string
		want                         string
	}{
		{"with id", "Item not found", "Computer", "12", "", "Item not found >>> Computer::id = 12"},
		{"without id", "You don't have permission to create this", "Person", "", "", "You don't have permission to create this >>> Person"},
		{"no prefix", "", "Person", "3", "", "Person::id = 3"},
		{"empty type", "Oops", "", "", "", "Oops >>> ?"},
		{"suffix", "Oops", "Monitor", "?", "retry later", "Oops >>> Monitor::id = ?. retry later"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ItemMessage(tt.prefix, tt.itemType, tt.id, tt.suffix))
		})
	}
}

func TestDocURL(t *testing.T) {
	assert.Equal(t, "https://glpi.example/api/#errors", DocURL("https://glpi.example/api", "ERROR"))
	assert.Equal(t, "https://glpi.example/api/#error_item_not_found", DocURL("https://glpi.example/api/", "ERROR_ITEM_NOT_FOUND"))
	assert.Equal(t, "", DocURL("", "ERROR"))
}

func TestCollector_NewErrorCitesDocumentation(t *testing.T) {
	c := NewCollector("https://glpi.example/api")

	err := c.NewError("boom", 400, "ERROR_GLPI_ADD")
	assert.Equal(t, "view documentation in your browser at https://glpi.example/api/#error_glpi_add", err.DocMessage())

	bare := NewCollector("").NewError("boom", 400, "ERROR")
	assert.Empty(t, bare.DocMessage())
}

func TestCollector_AddForItemDoesNotDeduplicate(t *testing.T) {
	c := NewCollector("")

	c.AddForItem("Failed to create", "Person", "", 400, "ERROR_GLPI_ADD")
	require.Equal(t, 1, c.Len())
	c.AddForItem("Failed to create", "Person", "", 400, "ERROR_GLPI_ADD")
	require.Equal(t, 2, c.Len())

	errs := c.Errors()
	assert.Equal(t, errs[0].Message(), errs[1].Message())
	assert.Equal(t, "Failed to create >>> Person", errs[0].Message())
	assert.Equal(t, 400, errs[0].HTTPCode())
	assert.Equal(t, "ERROR_GLPI_ADD", errs[0].StatusCode())
}

func TestCollector_ClearAndCopy(t *testing.T) {
	c := NewCollector("")
	assert.False(t, c.HasError())

	c.Add(New("one", 500, "ERROR", ""))
	c.AddAll([]Error{New("two", 400, "", ""), New("three", 403, "ERROR_METHOD_NOT_ALLOWED", "")})
	assert.True(t, c.HasError())

	snapshot := c.Errors()
	c.Clear()
	assert.False(t, c.HasError())
	assert.Len(t, snapshot, 3)
	assert.Equal(t, "ERROR", snapshot[1].StatusCode())
}

func TestNew_Defaults(t *testing.T) {
	e := New("", 0, "", "")
	assert.Equal(t, DefaultMessage, e.Message())
	assert.Equal(t, DefaultHTTPCode, e.HTTPCode())
	assert.Equal(t, DefaultStatusCode, e.StatusCode())
}

func TestError_StringAndHTML(t *testing.T) {
	e := New("bad <b>value</b>\nsecond line", 400, "ERROR", "see docs")

	assert.Equal(t, "bad <b>value</b>\nsecond line\n(400 - ERROR) see docs", e.String())
	assert.Equal(t,
		`<table class="plugin-etl__error-msg"><tbody><tr><td>400 - ERROR<br/>see docs</td><td>bad &lt;b&gt;value&lt;/b&gt;<br />`+"\n"+`second line</td></tr></tbody></table>`,
		string(e.HTML()))

	raw := e.Raw()
	assert.True(t, e.Escaped())
	assert.False(t, raw.Escaped())
	assert.Contains(t, string(raw.HTML()), "<b>value</b>")
}

func TestError_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(New("nope", 403, "ERROR_METHOD_NOT_ALLOWED", ""))
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"nope","http_code":403,"status_code":"ERROR_METHOD_NOT_ALLOWED"}`, string(b))
}

func TestFeedback(t *testing.T) {
	cause := errors.New("bad delimiter")
	err := fmt.Errorf("import: %w", WrapFeedback(cause, "Délimiteur invalide: %q", ";;"))

	fe, ok := AsFeedback(err)
	require.True(t, ok)
	assert.Equal(t, `Délimiteur invalide: ";;"`, fe.Message)
	assert.ErrorIs(t, err, cause)

	_, ok = AsFeedback(ErrRecoverable)
	assert.False(t, ok)
}
