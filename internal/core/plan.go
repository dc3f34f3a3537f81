package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/etl/internal/apierror"
	"github.com/JonMunkholm/etl/internal/host"
	"github.com/JonMunkholm/etl/internal/importer"
)

// SourceCSV is the primary source of a CSV plan.
const SourceCSV = "csv"

// Plan describes where an import reads from and what it writes.
type Plan struct {
	Name    string
	Sources []importer.Source
}

// HasSource reports whether the plan names a source called name.
func (p Plan) HasSource(name string) bool {
	for _, s := range p.Sources {
		if strings.EqualFold(s.Name, name) {
			return true
		}
	}
	return false
}

// SourcesExcept returns the plan sources not named in names.
func (p Plan) SourcesExcept(names ...string) []importer.Source {
	var out []importer.Source
	for _, s := range p.Sources {
		skip := false
		for _, n := range names {
			if strings.EqualFold(s.Name, n) {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, s)
		}
	}
	return out
}

// InputRecord is one CSV row with the data of every other plan source.
type InputRecord map[string]any

// ImportCSVWithPlan runs the full plan pipeline on r.
func (c *CSVImport) ImportCSVWithPlan(ctx context.Context, sess *host.Session, planName string, r io.Reader) error {
	plan, err := c.FetchPlan(ctx, planName)
	if err != nil {
		return fmt.Errorf("fetch plan %s: %w", planName, err)
	}
	input, err := c.Extract(ctx, sess, plan, r, c.opts.DefaultDelimiter)
	if err != nil {
		return err
	}
	output, err := c.Transform(ctx, plan, input)
	if err != nil {
		return err
	}
	return c.Load(ctx, plan, output)
}

// FetchPlan resolves a plan by name.
func (c *CSVImport) FetchPlan(context.Context, string) (Plan, error) {
	return Plan{}, apierror.ErrNotImplemented
}

// Extract reads the CSV rows of r and attaches the data of the plan's other
// sources to each of them. Secondary sources are read once and shared.
func (c *CSVImport) Extract(ctx context.Context, sess *host.Session, plan Plan, r io.Reader, delimiter string) ([]InputRecord, error) {
	if !plan.HasSource(SourceCSV) {
		return nil, errors.New("Usage: Plan must contain a CSV source.")
	}

	extra := make(map[string][]host.Fields)
	for _, src := range plan.SourcesExcept(SourceCSV) {
		if src.Name == "" {
			return nil, errors.New("Usage: A source must have a name.")
		}
		if c.extractor == nil || !c.extractor.KnowsSource(src.Name) {
			return nil, fmt.Errorf("extractor does not know how to extract data source %q", src.Name)
		}
		data, err := c.extractor.Extract(ctx, sess, src)
		if err != nil {
			return nil, fmt.Errorf("extract source %s: %w", src.Name, err)
		}
		extra[src.Name] = data
	}

	reader, err := newCSVReader(r, delimiter, c.opts.Encoding)
	if err != nil {
		return nil, err
	}
	header, err := readHeader(reader)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var records []InputRecord
	for {
		line, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, csvFeedback(err)
		}
		rec := InputRecord{SourceCSV: rowFields(header, line)}
		for name, data := range extra {
			rec[name] = data
		}
		records = append(records, rec)
	}
	return records, nil
}

// Transform maps extracted records onto destination records.
func (c *CSVImport) Transform(context.Context, Plan, []InputRecord) ([]Record, error) {
	return nil, apierror.ErrNotImplemented
}

// Load imports transformed records.
func (c *CSVImport) Load(context.Context, Plan, []Record) error {
	return apierror.ErrNotImplemented
}
