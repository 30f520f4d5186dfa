// Package suite loads declarative test suites from YAML files and runs them
// as lesst sections.
package suite

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"go.alt-gnome.ru/lesst"
)

// File is a parsed suite file. It holds either a single top-level section
// or a list of sections; both may be combined.
type File struct {
	SectionSpec `yaml:",inline"`

	Sections []SectionSpec `yaml:"sections"`
	Path     string        `yaml:"-"`
}

type SectionSpec struct {
	Title    string     `yaml:"title"`
	Stdout   bool       `yaml:"stdout"`
	Stderr   bool       `yaml:"stderr"`
	Analysis bool       `yaml:"analysis"`
	Tests    []CaseSpec `yaml:"tests"`
}

type CaseSpec struct {
	Desc    string         `yaml:"desc"`
	Command string         `yaml:"command"`
	Args    []string       `yaml:"args"`
	Options map[string]any `yaml:"options"`
	Steps   []any          `yaml:"steps"`
}

// Load reads and validates a suite file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse decodes a suite from YAML and compiles every case once to surface
// mistakes before anything is run.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	if len(f.AllSections()) == 0 {
		return nil, errors.New("suite has no sections")
	}
	for _, s := range f.AllSections() {
		if _, err := s.compile(); err != nil {
			return nil, err
		}
	}
	return &f, nil
}

// AllSections returns the top-level section, if it has a title or tests,
// followed by the listed ones.
func (f *File) AllSections() []SectionSpec {
	var out []SectionSpec
	if f.SectionSpec.Title != "" || len(f.SectionSpec.Tests) > 0 {
		out = append(out, f.SectionSpec)
	}
	return append(out, f.Sections...)
}

// Run executes every section in order. It stops at the first fatal error
// and returns the reports gathered so far.
func (f *File) Run(ctx context.Context, opts ...lesst.FlowOption) ([]*lesst.Report, error) {
	var reports []*lesst.Report
	for _, s := range f.AllSections() {
		report, err := s.Run(ctx, opts...)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Run executes the section's cases as one flow.
func (s SectionSpec) Run(ctx context.Context, opts ...lesst.FlowOption) (*lesst.Report, error) {
	cases, err := s.compile()
	if err != nil {
		return nil, err
	}
	report, err := lesst.Section(ctx, s.options(), func(flow *lesst.TestFlow) error {
		return flow.Series(cases)
	}, opts...)
	if err != nil {
		return report, fmt.Errorf("section %q: %w", s.Title, err)
	}
	return report, nil
}

// Count returns the number of sections and test cases in the file.
func (f *File) Count() (sections, cases int) {
	for _, s := range f.AllSections() {
		sections++
		cases += len(s.Tests)
	}
	return sections, cases
}

func (s SectionSpec) options() lesst.SectionOptions {
	return lesst.SectionOptions{
		Title:    s.Title,
		Stdout:   s.Stdout,
		Stderr:   s.Stderr,
		Analysis: s.Analysis,
	}
}

func (s SectionSpec) compile() ([]lesst.TestCase, error) {
	if s.Title == "" {
		return nil, lesst.ErrMissingTitle
	}
	cases := make([]lesst.TestCase, 0, len(s.Tests))
	for i, c := range s.Tests {
		tc, err := c.compile()
		if err != nil {
			return nil, fmt.Errorf("section %q: test %d: %w", s.Title, i+1, err)
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func (c CaseSpec) compile() (lesst.TestCase, error) {
	if c.Desc == "" {
		return lesst.TestCase{}, lesst.ErrEmptyDescription
	}
	if c.Command == "" {
		return lesst.TestCase{}, fmt.Errorf("%q: command is required", c.Desc)
	}
	opts, err := decodeOptions(c.Options)
	if err != nil {
		return lesst.TestCase{}, fmt.Errorf("%q: options: %w", c.Desc, err)
	}
	script := lesst.NewScript()
	for i, raw := range c.Steps {
		if err := addStep(script, raw); err != nil {
			return lesst.TestCase{}, fmt.Errorf("%q: step %d: %w", c.Desc, i+1, err)
		}
	}
	return lesst.TestCase{
		Description: c.Desc,
		Cmd:         lesst.CmdLine(c.Command, c.Args, opts...),
		Callback:    script.Callback(),
	}, nil
}
