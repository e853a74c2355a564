package console

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/JuanMarchetto/truss/pkg/logger"
)

var renderLog = logger.New("console:render")

// RenderSlice renders a slice of structs as a table using reflection and
// struct tags. Slices of other element types render as a bulleted list.
//
// Struct tags:
// - `console:"header:Column Name"` - Sets the column header name
// - `console:"format:filesize"` - Formats integers as a byte size
// - `console:"format:number"` - Formats integers as 1.2k, 3.4M
// - `console:"maxlen:40"` - Truncates long values, keeping the end
// - `console:"default:none"` - Replaces zero values
// - `console:"-"` - Skips the field entirely
func RenderSlice(title string, v any) string {
	val := reflect.ValueOf(v)
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return ""
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Slice && val.Kind() != reflect.Array {
		return ""
	}
	renderLog.Printf("Rendering slice: type=%s, len=%d", val.Type(), val.Len())
	if val.Len() == 0 {
		return ""
	}

	elemType := val.Type().Elem()
	for elemType.Kind() == reflect.Ptr {
		elemType = elemType.Elem()
	}
	if elemType.Kind() == reflect.Struct {
		config := buildTableConfig(val, elemType)
		config.Title = title
		return RenderTable(config)
	}

	var output strings.Builder
	if title != "" {
		output.WriteString(applyStyle(tableTitleStyle, title))
		output.WriteString("\n")
	}
	for i := range val.Len() {
		fmt.Fprintf(&output, "  • %s\n", formatFieldValue(val.Index(i)))
	}
	return output.String()
}

// buildTableConfig builds a TableConfig from a slice of structs
func buildTableConfig(val reflect.Value, elemType reflect.Type) TableConfig {
	var config TableConfig
	var fieldIndices []int
	var fieldTags []consoleTag

	for i := range elemType.NumField() {
		field := elemType.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := parseConsoleTag(field.Tag.Get("console"))
		if tag.skip {
			continue
		}
		header := field.Name
		if tag.header != "" {
			header = tag.header
		}
		config.Headers = append(config.Headers, header)
		fieldIndices = append(fieldIndices, i)
		fieldTags = append(fieldTags, tag)
	}

	for i := range val.Len() {
		elem := val.Index(i)
		for elem.Kind() == reflect.Ptr && !elem.IsNil() {
			elem = elem.Elem()
		}
		if elem.Kind() != reflect.Struct {
			continue
		}
		row := make([]string, 0, len(fieldIndices))
		for j, idx := range fieldIndices {
			row = append(row, formatFieldValueWithTag(elem.Field(idx), fieldTags[j]))
		}
		config.Rows = append(config.Rows, row)
	}
	return config
}

// consoleTag represents parsed console struct tag
type consoleTag struct {
	header     string
	format     string
	defaultVal string
	maxLen     int
	skip       bool
}

// parseConsoleTag parses the console struct tag
func parseConsoleTag(tag string) consoleTag {
	var result consoleTag
	if tag == "-" {
		result.skip = true
		return result
	}
	for part := range strings.SplitSeq(tag, ",") {
		part = strings.TrimSpace(part)
		if after, ok := strings.CutPrefix(part, "header:"); ok {
			result.header = after
		} else if after, ok := strings.CutPrefix(part, "format:"); ok {
			result.format = after
		} else if after, ok := strings.CutPrefix(part, "default:"); ok {
			result.defaultVal = after
		} else if after, ok := strings.CutPrefix(part, "maxlen:"); ok {
			if n, err := strconv.Atoi(after); err == nil {
				result.maxLen = n
			}
		}
	}
	return result
}

// formatFieldValue formats a reflect.Value as a string for display
func formatFieldValue(val reflect.Value) string {
	for val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return "-"
		}
		val = val.Elem()
	}
	if !val.IsValid() {
		return "-"
	}
	if val.Kind() == reflect.String && val.Len() == 0 {
		return "-"
	}
	if d, ok := val.Interface().(time.Duration); ok {
		return FormatDuration(d)
	}
	return fmt.Sprintf("%v", val.Interface())
}

// formatFieldValueWithTag formats a reflect.Value as a string for display with format tag support
func formatFieldValueWithTag(val reflect.Value, tag consoleTag) string {
	value := formatFieldValue(val)
	if tag.defaultVal != "" && val.IsZero() {
		value = tag.defaultVal
	}

	if value != "-" && tag.format != "" {
		switch {
		case val.CanInt():
			value = formatInt(val.Int(), tag.format, value)
		case val.CanUint():
			// #nosec G115 - display counters and sizes stay far below MaxInt64
			value = formatInt(int64(val.Uint()), tag.format, value)
		}
	}

	if tag.maxLen > 0 && len(value) > tag.maxLen {
		if tag.maxLen > 3 {
			value = "..." + value[len(value)-tag.maxLen+3:]
		} else {
			value = value[:tag.maxLen]
		}
	}
	return value
}

func formatInt(n int64, format, fallback string) string {
	switch format {
	case "number":
		return FormatNumber(int(n))
	case "filesize":
		return FormatFileSize(n)
	}
	return fallback
}

// FormatNumber formats large numbers in a human-readable way (e.g., "1k", "1.2k", "1.12M")
func FormatNumber(n int) string {
	f := float64(n)
	switch {
	case f < 1000:
		return strconv.Itoa(n)
	case f < 1000000:
		return scaled(f/1000, "k")
	case f < 1000000000:
		return scaled(f/1000000, "M")
	}
	return scaled(f/1000000000, "B")
}

func scaled(v float64, unit string) string {
	switch {
	case v >= 100:
		return fmt.Sprintf("%.0f%s", v, unit)
	case v >= 10:
		return fmt.Sprintf("%.1f%s", v, unit)
	}
	return fmt.Sprintf("%.2f%s", v, unit)
}

// FormatFileSize formats a byte count as B, KB, MB or GB.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	units := []string{"KB", "MB", "GB", "TB"}
	value := float64(size) / unit
	i := 0
	for value >= unit && i < len(units)-1 {
		value /= unit
		i++
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}

// FormatDuration formats d with a precision suited to validation timings.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dµs", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
