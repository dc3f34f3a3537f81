package view

import (
	"html/template"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/etl/internal/apierror"
)

func formData() map[string]any {
	return map[string]any{
		"chosen_plan":              "Computer",
		"plan_input_name":          "etlplan",
		"file_input_name":          "csvfile",
		"csv_delimiter_input_name": "csvdelimiter",
		"csv_delimiter":            ";",
		"max_file_size":            int64(30000),
	}
}

func TestLoad_Form(t *testing.T) {
	out, err := Default().Load(CSVImportForm, formData())
	require.NoError(t, err)

	assert.Contains(t, out, "<h1>Importation CSV</h1>")
	assert.Contains(t, out, `name="MAX_FILE_SIZE" value="30000"`)
	assert.Contains(t, out, `name="etlplan" value="Computer"`)
	assert.Contains(t, out, `name="csvfile"`)
	assert.Contains(t, out, `name="csvdelimiter" value=";"`)
	assert.NotContains(t, out, "csrf_token")
}

func TestLoad_FormRequiresInputNames(t *testing.T) {
	for _, key := range []string{"plan_input_name", "file_input_name", "csv_delimiter_input_name"} {
		t.Run(key, func(t *testing.T) {
			data := formData()
			delete(data, key)

			_, err := Default().Load(CSVImportForm, data)
			require.Error(t, err)
			assert.Contains(t, err.Error(), `Usage: You must provide a variable named: "`+key+`"`)
		})
	}
}

func TestLoad_FormEscapesValues(t *testing.T) {
	data := formData()
	data["chosen_plan"] = `"><script>x</script>`
	data["csrf_token"] = "tok"

	out, err := Default().Load(CSVImportForm, data)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, `name="csrf_token" value="tok"`)
}

func TestLoad_FormWithPlanList(t *testing.T) {
	type plan struct{ Name, Label string }
	data := formData()
	data["plans"] = []plan{{"Computer", "Computers"}, {"Monitor", "Monitors"}}

	out, err := Default().Load(CSVImportForm, data)
	require.NoError(t, err)
	assert.Contains(t, out, `<option value="Computer" selected>Computers</option>`)
	assert.Contains(t, out, `<option value="Monitor">Monitors</option>`)
}

func TestLoad_ReportSuccess(t *testing.T) {
	out, err := Default().Load(CSVImportReport, map[string]any{
		"original_file_name": "<pcs>.csv",
		"errors":             map[int][]apierror.Error{},
		"success_msg":        "Vos données ont été importées correctement.",
	})
	require.NoError(t, err)

	assert.Contains(t, out, "&lt;pcs&gt;.csv")
	assert.Contains(t, out, "<div>Vos données ont été importées correctement.</div>")
	assert.NotContains(t, out, "plugin-etl__section-error")
}

func TestLoad_ReportErrors(t *testing.T) {
	errs := map[int][]apierror.Error{
		1: {apierror.New("Item not found >>> Computer::id = 9", 400, "ERROR_ITEM_NOT_FOUND", "")},
	}
	out, err := Default().Load(CSVImportReport, map[string]any{
		"original_file_name": "pcs.csv",
		"errors":             errs,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "Erreur(s) d'importation")
	assert.Contains(t, out, "Ligne 1: ")
	assert.Contains(t, out, "Item not found &gt;&gt;&gt; Computer::id = 9")
	assert.NotContains(t, out, "Succès")
}

func TestLoad_ErrorView(t *testing.T) {
	out, err := Default().Load(CSVImportError, map[string]any{"errors": []string{"Invalid CSV:\nline 2"}})
	require.NoError(t, err)
	assert.Contains(t, out, "Invalid CSV:<br />\nline 2")
}

func TestLoad_MissingView(t *testing.T) {
	_, err := Default().Load("csvimport/nope.html", nil)
	assert.ErrorContains(t, err, "file not found or not readable")
}

func TestLoad_CustomFS(t *testing.T) {
	r := New(fstest.MapFS{
		"hello.html": {Data: []byte(`Hello {{.name}}`)},
	})

	out, err := r.Load("hello.html", map[string]any{"name": "<b>"})
	require.NoError(t, err)
	assert.Equal(t, "Hello &lt;b&gt;", out)
}

type label string

func (l label) String() string { return "label:" + string(l) }

func TestToGenericHTML(t *testing.T) {
	tests := []struct {
		name string
		item any
		want template.HTML
	}{
		{"string", "a<b\nc", "<li>a&lt;b<br />\nc</li>"},
		{"stringer", label("x"), "<li>label:x</li>"},
		{"nil", nil, "<li><pre>NULL</pre></li>"},
		{"int", 42, "<li><pre>42</pre></li>"},
		{"slice", []string{"a"}, "<li>0: <ul><li>a</li></ul></li>"},
		{"map sorted", map[string]any{"b": "2", "a": "1"}, "<li>a: <ul><li>1</li></ul>b: <ul><li>2</li></ul></li>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ToGenericHTML(tt.item, "li", "ul", ""))
		})
	}

	assert.Equal(t,
		template.HTML("<div><b>k: </b><div><li>v</li></div></div>"),
		ToGenericHTML(map[string]string{"k": "v"}, "div", "div", "b"))
}

func TestToGenericHTMLTable(t *testing.T) {
	e := apierror.New("boom", 500, "ERROR", "")

	assert.Equal(t, template.HTML("<tr><td>"+string(e.HTML())+"</td></tr>"), ToGenericHTMLTable(e))
	assert.Equal(t, template.HTML("<tr><td>x &amp; y</td></tr>"), ToGenericHTMLTable("x & y"))
	assert.Equal(t,
		template.HTML(`<tr><td>2: </td><td><table class="plugin-etl__section-error__recursing"><tbody><tr><td>z</td></tr></tbody></table></td></tr>`),
		ToGenericHTMLTable(map[int]string{2: "z"}))
}

func TestNL2BR(t *testing.T) {
	assert.Equal(t, template.HTML("a &amp; b<br />\r\nc"), NL2BR("a & b\r\nc"))
}
