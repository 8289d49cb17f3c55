// Package reporting renders the outcome of a run cycle as JUnit XML and as
// a plain-language summary.
package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spboyer/checkerd/internal/models"
)

// Result is one checker's outcome in a cycle. Run is nil when the
// checker was skipped.
type Result struct {
	Checker    string
	Section    string
	Run        *models.CheckerRun
	SkipReason string
}

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Name       string           `xml:"name,attr"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one checker section.
type JUnitTestSuite struct {
	XMLName   xml.Name        `xml:"testsuite"`
	Name      string          `xml:"name,attr"`
	Tests     int             `xml:"tests,attr"`
	Failures  int             `xml:"failures,attr"`
	Errors    int             `xml:"errors,attr"`
	Skipped   int             `xml:"skipped,attr"`
	Time      float64         `xml:"time,attr"`
	Timestamp string          `xml:"timestamp,attr"`
	TestCases []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one checker.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure lists the failures a checker reported.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a checker that raised instead of reporting.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a checker as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// ConvertToJUnit groups results into one suite per section. Suites are
// sorted by name; test cases keep the order of results.
func ConvertToJUnit(name string, results []Result, at time.Time) *JUnitTestSuites {
	out := &JUnitTestSuites{Name: name}
	bySection := map[string]*JUnitTestSuite{}
	var order []string

	for _, r := range results {
		section := r.Section
		if section == "" {
			section = "default"
		}
		suite, ok := bySection[section]
		if !ok {
			suite = &JUnitTestSuite{Name: section, Timestamp: at.UTC().Format(time.RFC3339)}
			bySection[section] = suite
			order = append(order, section)
		}

		tc := convertResult(section, r)
		suite.Tests++
		suite.Time += tc.Time
		switch {
		case tc.Skipped != nil:
			suite.Skipped++
		case tc.Failure != nil:
			suite.Failures++
		case tc.Error != nil:
			suite.Errors++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	sort.Strings(order)
	for _, section := range order {
		suite := bySection[section]
		out.Tests += suite.Tests
		out.Failures += suite.Failures
		out.Errors += suite.Errors
		out.Time += suite.Time
		out.TestSuites = append(out.TestSuites, *suite)
	}
	return out
}

func convertResult(section string, r Result) JUnitTestCase {
	tc := JUnitTestCase{Name: r.Checker, Classname: section}
	if r.Run == nil {
		tc.Skipped = &JUnitSkipped{Message: r.SkipReason}
		return tc
	}
	tc.Time = r.Run.Duration().Seconds()

	switch r.Run.Status {
	case models.RunStatusFailed:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s reported %d failure(s)", r.Checker, len(r.Run.Failures)),
			Type:    "CheckerFailure",
			Body:    formatFailures(r.Run.Failures),
		}
	case models.RunStatusErrored:
		msg := r.Run.Exception()
		if msg == "" {
			msg = "execution error"
		}
		first, _, _ := strings.Cut(msg, "\n")
		tc.Error = &JUnitError{Message: first, Type: "CheckerExecutionError", Body: msg}
	}
	return tc
}

func formatFailures(failures []models.CheckerFailure) string {
	var b strings.Builder
	for _, f := range failures {
		fmt.Fprintf(&b, "[FAIL] %s\n", f.Text)
		if f.Subtext != "" {
			fmt.Fprintf(&b, "       %s\n", f.Subtext)
		}
	}
	return b.String()
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(name string, results []Result, at time.Time, path string) error {
	suites := ConvertToJUnit(name, results, at)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
