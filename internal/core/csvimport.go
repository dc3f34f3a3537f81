package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/JonMunkholm/etl/internal/apierror"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/importer"
	"github.com/JonMunkholm/etl/internal/logging"
)

// Default form input names and limits.
const (
	DefaultPlanInputName      = "etlplan"
	DefaultFileInputName      = "csvfile"
	DefaultDelimiterInputName = "csvdelimiter"
	DefaultDelimiter          = ","
	DefaultMaxFileSize        = 30000
)

// SuccessMessage is shown when no row failed.
const SuccessMessage = "Vos données ont été importées correctement."

// Action is what a request to the import page asks for.
type Action int

const (
	ActionShowForm Action = iota
	ActionUploadCSV
)

func (a Action) String() string {
	if a == ActionUploadCSV {
		return "uploadCsv"
	}
	return "showForm"
}

// Options configures a CSVImport. Zero values take the defaults.
type Options struct {
	PlanInputName      string
	FileInputName      string
	DelimiterInputName string
	DefaultDelimiter   string
	MaxFileSize        int64
	Encoding           string // charset label; empty means UTF-8
}

func (o Options) withDefaults() Options {
	if o.PlanInputName == "" {
		o.PlanInputName = DefaultPlanInputName
	}
	if o.FileInputName == "" {
		o.FileInputName = DefaultFileInputName
	}
	if o.DelimiterInputName == "" {
		o.DelimiterInputName = DefaultDelimiterInputName
	}
	if o.DefaultDelimiter == "" {
		o.DefaultDelimiter = DefaultDelimiter
	}
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	return o
}

// UploadedFile is a file posted with the form.
type UploadedFile interface {
	Open() (io.ReadCloser, error)
	Filename() string
}

// FormInput is the posted form of one request.
type FormInput interface {
	Value(name string) (string, bool)
	File(name string) (UploadedFile, bool)
}

// Record is one transformed row, keyed by destination alias.
type Record map[string]host.Fields

// CSVImport handles one import request. It keeps the report of the last
// ImportCSV call and is not safe for concurrent use.
type CSVImport struct {
	importer  importer.Importer
	extractor importer.Extractor
	opts      Options

	errors map[int][]apierror.Error
}

// NewCSVImport returns a controller pushing rows through imp.
func NewCSVImport(imp importer.Importer, ext importer.Extractor, opts Options) *CSVImport {
	return &CSVImport{
		importer:  imp,
		extractor: ext,
		opts:      opts.withDefaults(),
		errors:    map[int][]apierror.Error{},
	}
}

// Options returns the effective options.
func (c *CSVImport) Options() Options { return c.opts }

// ChooseAction imports when a plan was posted along with a file.
func (c *CSVImport) ChooseAction(in FormInput) Action {
	if in == nil {
		return ActionShowForm
	}
	if _, ok := in.Value(c.opts.PlanInputName); !ok {
		return ActionShowForm
	}
	if _, ok := in.File(c.opts.FileInputName); !ok {
		return ActionShowForm
	}
	return ActionUploadCSV
}

// PlanName returns the posted plan, or "".
func (c *CSVImport) PlanName(in FormInput) string {
	if in == nil {
		return ""
	}
	v, _ := in.Value(c.opts.PlanInputName)
	return v
}

// Delimiter returns the posted delimiter, or the default when none was posted.
func (c *CSVImport) Delimiter(in FormInput) string {
	if in != nil {
		if v, ok := in.Value(c.opts.DelimiterInputName); ok && v != "" {
			return v
		}
	}
	return c.opts.DefaultDelimiter
}

// ClientFileName returns the name of the uploaded file on the client.
func (c *CSVImport) ClientFileName(in FormInput) string {
	if in == nil {
		return ""
	}
	f, ok := in.File(c.opts.FileInputName)
	if !ok {
		return ""
	}
	return f.Filename()
}

// PrepareFormViewData returns the data of the upload form.
func (c *CSVImport) PrepareFormViewData(in FormInput) map[string]any {
	return map[string]any{
		"chosen_plan":              c.PlanName(in),
		"plan_input_name":          c.opts.PlanInputName,
		"file_input_name":          c.opts.FileInputName,
		"csv_delimiter_input_name": c.opts.DelimiterInputName,
		"csv_delimiter":            c.Delimiter(in),
		"max_file_size":            c.opts.MaxFileSize,
	}
}

// PrepareReportViewData returns the data of the import report.
func (c *CSVImport) PrepareReportViewData(in FormInput) map[string]any {
	data := map[string]any{
		"original_file_name": c.ClientFileName(in),
		"errors":             c.Errors(),
	}
	if len(c.errors) == 0 {
		data["success_msg"] = SuccessMessage
	}
	return data
}

// Errors returns a copy of the failed rows of the last import.
func (c *CSVImport) Errors() map[int][]apierror.Error {
	out := make(map[int][]apierror.Error, len(c.errors))
	for row, errs := range c.errors {
		out[row] = append([]apierror.Error(nil), errs...)
	}
	return out
}

// UploadFromForm imports the file posted with in, using the posted plan and delimiter.
func (c *CSVImport) UploadFromForm(ctx context.Context, sess *host.Session, in FormInput) error {
	f, ok := in.File(c.opts.FileInputName)
	if !ok {
		return apierror.Feedback("No file provided. Please select a CSV file to upload.")
	}
	rc, err := f.Open()
	if err != nil {
		return apierror.WrapFeedback(err, "Could not read the uploaded file %s.", f.Filename())
	}
	defer rc.Close()

	return c.ImportCSV(ctx, sess, c.PlanName(in), rc, c.Delimiter(in))
}

// ImportCSV imports every data row of r as an item of type plan. Row
// failures are kept for the report; only file level problems are returned.
func (c *CSVImport) ImportCSV(ctx context.Context, sess *host.Session, plan string, r io.Reader, delimiter string) error {
	c.errors = map[int][]apierror.Error{}

	importID := uuid.New()
	ctx = ContextWithImportID(ctx, importID)
	log := logging.WithFields(ctx, "import_id", importID.String(), "plan", plan)
	start := time.Now()

	counter := newCountingReader(r)
	reader, err := newCSVReader(counter, delimiter, c.opts.Encoding)
	if err != nil {
		return err
	}

	header, err := readHeader(reader)
	if errors.Is(err, io.EOF) {
		log.Info("csv import finished", "rows", 0, "failed", 0)
		observeImport(0, 0, counter.BytesRead(), time.Since(start))
		return nil
	}
	if err != nil {
		return err
	}

	rows, failed := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			log.Warn("csv import interrupted", "rows", rows, "error", err)
			return fmt.Errorf("import %s after %d rows: %w", plan, rows, err)
		}

		line, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return csvFeedback(err)
		}

		rec := MockTransformRecord(plan, rowFields(header, line))
		if errs := c.importer.ImportRecord(ctx, sess, plan, rec[plan]); len(errs) > 0 {
			c.errors[rows] = errs
			failed++
		}
		rows++
	}

	log.Info("csv import finished",
		"rows", rows,
		"failed", failed,
		"bytes", counter.BytesRead(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	observeImport(rows, failed, counter.BytesRead(), time.Since(start))
	return nil
}

// MockTransformRecord stands in for a plan transformation: the row becomes
// the record of the destination named after the plan.
func MockTransformRecord(plan string, row host.Fields) Record {
	return Record{plan: row}
}

func newCSVReader(r io.Reader, delimiter, charset string) (*csv.Reader, error) {
	comma, err := parseDelimiter(delimiter)
	if err != nil {
		return nil, err
	}
	decoded, err := NewDecodingReader(r, charset)
	if err != nil {
		return nil, apierror.WrapFeedback(err, "Encoding error: the file charset %q is not supported.", charset)
	}

	reader := csv.NewReader(decoded)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	return reader, nil
}

func parseDelimiter(delimiter string) (rune, error) {
	if utf8.RuneCountInString(delimiter) != 1 {
		return 0, apierror.Feedback("Invalid CSV delimiter %q: a single character is expected.", delimiter)
	}
	r, _ := utf8.DecodeRuneInString(delimiter)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, apierror.Feedback("Invalid CSV delimiter %q: a single character is expected.", delimiter)
	}
	return r, nil
}

// readHeader returns the column names as written. Duplicate names are rejected.
func readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, csvFeedback(err)
	}

	seen := make(map[string]bool, len(header))
	for _, name := range header {
		if seen[name] {
			return nil, apierror.Feedback("Invalid CSV: the header has a duplicate column %q.", name)
		}
		seen[name] = true
	}
	return header, nil
}

// rowFields maps the header onto line. Missing trailing cells are left out
// and extra cells are dropped.
func rowFields(header, line []string) host.Fields {
	fields := make(host.Fields, len(header))
	for i, name := range header {
		if i >= len(line) {
			break
		}
		fields[name] = line[i]
	}
	return fields
}

func csvFeedback(err error) error {
	var perr *csv.ParseError
	if errors.As(err, &perr) {
		return apierror.WrapFeedback(err, "Invalid CSV: line %d: %v.", perr.Line, perr.Err)
	}
	return apierror.WrapFeedback(err, "Invalid CSV: %v.", err)
}
