package cli

import (
	"time"

	"github.com/JuanMarchetto/truss/pkg/console"
	"github.com/JuanMarchetto/truss/pkg/validation"
)

// fileStat is one row of the --stats table.
type fileStat struct {
	File     string        `console:"header:File,maxlen:60"`
	Errors   int           `console:"header:Errors"`
	Warnings int           `console:"header:Warnings"`
	Infos    int           `console:"header:Info"`
	Size     int           `console:"header:Size,format:filesize"`
	Lines    int           `console:"header:Lines,format:number"`
	Duration time.Duration `console:"header:Time"`
}

func collectStats(results []FileResult) []fileStat {
	stats := make([]fileStat, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		stats = append(stats, fileStat{
			File:     displayName(r.Path),
			Errors:   r.Result.Count(validation.Error),
			Warnings: r.Result.Count(validation.Warning),
			Infos:    r.Result.Count(validation.Info),
			Size:     len(r.Source),
			Lines:    countLines(r.Source),
			Duration: r.Duration,
		})
	}
	return stats
}

// renderStats renders per-file counts before the severity threshold is
// applied.
func renderStats(results []FileResult) string {
	return console.RenderSlice("Validation Statistics", collectStats(results))
}
