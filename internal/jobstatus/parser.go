// Package jobstatus turns lftp `jobs -v` output into typed job records.
//
// The parser is a streaming accumulator: every recognised header closes the
// block before it and opens a new one, and each closed block is handed to the
// body parser for its kind. Malformed blocks are logged and skipped, so a
// damaged report still yields every job that could be read.
package jobstatus

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"seedpull/internal/models"
)

// Report is the result of parsing one `jobs -v` listing
type Report struct {
	Jobs    []models.Job        `json:"jobs"`
	Queue   []models.QueueEntry `json:"queue"`
	Skipped int                 `json:"skipped"`
}

type block struct {
	kind  blockKind
	lines []string
}

// Parser consumes the lines of exactly one report
type Parser struct {
	logger   *slog.Logger
	current  block
	jobs     []models.Job
	queue    []models.QueueEntry
	skipped  int
	finished bool
}

func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		logger: logger.With("component", "jobstatus"),
		jobs:   make([]models.Job, 0),
		queue:  make([]models.QueueEntry, 0),
	}
}

// Feed adds one line of engine output
func (p *Parser) Feed(line string) {
	if p.finished {
		p.logger.Warn("Line fed to finished parser", "line", line)
		return
	}

	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	kind := classify(line)
	if kind == blockNone {
		if p.current.kind == blockNone {
			p.logger.Debug("Dropping line before first header", "line", line)
			return
		}
		p.current.lines = append(p.current.lines, line)
		return
	}

	p.flush()
	p.current = block{kind: kind, lines: []string{line}}
}

// Finish flushes the open block and returns the report. Later calls return
// the same report.
func (p *Parser) Finish() Report {
	if !p.finished {
		p.flush()
		p.finished = true
	}
	return Report{
		Jobs:    p.jobs,
		Queue:   p.queue,
		Skipped: p.skipped,
	}
}

func (p *Parser) flush() {
	b := p.current
	p.current = block{}
	if b.kind == blockNone || len(b.lines) == 0 {
		return
	}

	var (
		job models.Job
		err error
	)
	switch b.kind {
	case blockQueue:
		p.queue = append(p.queue, parseQueue(b.lines)...)
		return
	case blockSkipped:
		p.skipped++
		p.logger.Warn("Skipping unrecognised job block",
			"header", b.lines[0],
			"lines", len(b.lines))
		return
	case blockPointTransfer:
		job, err = parsePointTransfer(p.logger, b.lines)
	case blockMirror:
		job, err = parseMirror(p.logger, b.lines)
	case blockMirrorInitial:
		job, err = parseMirrorInitial(b.lines)
	case blockDone:
		job, err = parseDone(b.lines)
	}

	if err != nil {
		p.skipped++
		p.logger.Warn("Skipping malformed job block",
			"kind", b.kind.String(),
			"header", b.lines[0],
			"error", err)
		return
	}
	p.jobs = append(p.jobs, job)
}

// ParseLines parses a complete report held in memory
func ParseLines(logger *slog.Logger, lines []string) Report {
	p := NewParser(logger)
	for _, line := range lines {
		p.Feed(line)
	}
	return p.Finish()
}

// Parse reads a complete report from r. Carriage returns count as line breaks.
func Parse(logger *slog.Logger, r io.Reader) Report {
	p := NewParser(logger)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	scanner.Split(ScanLines)
	for scanner.Scan() {
		p.Feed(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		p.logger.Warn("Stopped reading report early", "error", err)
	}
	return p.Finish()
}

// ScanLines is a bufio.SplitFunc that breaks on \n, \r\n and bare \r.
// lftp redraws progress lines with \r, so both must end a line.
func ScanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			return i + 1, data[:i], nil
		case '\r':
			if i+1 < len(data) {
				if data[i+1] == '\n' {
					return i + 2, data[:i], nil
				}
				return i + 1, data[:i], nil
			}
			if atEOF {
				return i + 1, data[:i], nil
			}
			// need one more byte to tell \r from \r\n
			return 0, nil, nil
		}
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
