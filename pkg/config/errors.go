// This file provides error types for configuration loading.
//
// # Error Aggregation
//
// A configuration file is checked in full before it is rejected, so a user
// fixing a .truss.yml sees every problem in one run instead of one at a
// time. Each problem is a *ValidationError; an ErrorCollector gathers them
// and joins them into one error.
//
//	collector := NewErrorCollector(false)
//	for name, rule := range cfg.Rules {
//	    if err := checkRule(name, rule); err != nil {
//	        if returnErr := collector.Add(err); returnErr != nil {
//	            return returnErr // Fail-fast mode
//	        }
//	    }
//	}
//	return collector.FormattedError("configuration")

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/JuanMarchetto/truss/pkg/logger"
)

var errorsLog = logger.New("config:errors")

// ValidationError describes one problem in a configuration file.
type ValidationError struct {
	Field      string // dotted path such as "rules.timeout.severity"
	Value      string
	Reason     string
	Suggestion string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.Field != "" {
		fmt.Fprintf(&sb, "%s: ", e.Field)
	}
	sb.WriteString(e.Reason)
	if e.Value != "" {
		fmt.Fprintf(&sb, " '%s'", e.Value)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(&sb, " (%s)", e.Suggestion)
	}
	return sb.String()
}

// ErrorCollector collects configuration errors.
type ErrorCollector struct {
	errors   []error
	failFast bool
}

// NewErrorCollector creates a new error collector. With failFast set, Add
// returns the first error instead of collecting it.
func NewErrorCollector(failFast bool) *ErrorCollector {
	return &ErrorCollector{failFast: failFast}
}

// Add records err. In fail-fast mode it returns err immediately.
func (c *ErrorCollector) Add(err error) error {
	if err == nil {
		return nil
	}
	errorsLog.Printf("Adding error to collector: %v", err)
	if c.failFast {
		return err
	}
	c.errors = append(c.errors, err)
	return nil
}

// HasErrors returns true if any errors have been collected
func (c *ErrorCollector) HasErrors() bool {
	return len(c.errors) > 0
}

// Count returns the number of errors collected
func (c *ErrorCollector) Count() int {
	return len(c.errors)
}

// Error returns the collected errors joined with errors.Join, or nil.
func (c *ErrorCollector) Error() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	}
	return errors.Join(c.errors...)
}

// FormattedError returns the collected errors under a header counting them.
// A single error is returned as is.
func (c *ErrorCollector) FormattedError(category string) error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	}

	errorsLog.Printf("Formatting %d errors for category: %s", len(c.errors), category)
	var sb strings.Builder
	fmt.Fprintf(&sb, "found %d %s errors:", len(c.errors), category)
	for _, err := range c.errors {
		sb.WriteString("\n  • ")
		sb.WriteString(err.Error())
	}
	return &aggregateError{message: sb.String(), errs: c.errors}
}

// aggregateError keeps the individual errors reachable through errors.As.
type aggregateError struct {
	message string
	errs    []error
}

func (e *aggregateError) Error() string   { return e.message }
func (e *aggregateError) Unwrap() []error { return e.errs }
