package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"vecna/internal/logging"
)

const (
	maxLineBytes = 1024 * 1024
	pollInterval = 250 * time.Millisecond
)

// Matcher reports whether a log line should be returned.
type Matcher func(line string) bool

// TailOptions controls a single Tail call. A negative Offset means "the last
// Limit lines"; otherwise reading starts at Offset.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
	Match  Matcher
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// ForEntity matches lines logged for the given entity id.
func ForEntity(id int64) Matcher {
	value := strconv.FormatInt(id, 10)
	console := " entity=" + value + " "
	jsonKey := `"` + logging.FieldEntityID + `":` + value
	return func(line string) bool {
		if strings.Contains(line+" ", console) {
			return true
		}
		idx := strings.Index(line, jsonKey)
		if idx < 0 {
			return false
		}
		rest := line[idx+len(jsonKey):]
		return rest == "" || rest[0] < '0' || rest[0] > '9'
	}
}

func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	if opts.Wait < 0 {
		opts.Wait = 0
	}
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		result.Offset = 0
		return result, nil
	case err != nil:
		return result, fmt.Errorf("stat log file: %w", err)
	case info.IsDir():
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	if opts.Offset < 0 {
		result.Lines, result.Offset, err = lastLines(path, opts.Limit, opts.Match)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated; restart from the current end.
			offset = info.Size()
		}
		result.Lines, result.Offset, err = linesFrom(path, offset, opts.Match)
	}
	if err != nil {
		return result, err
	}
	if opts.Follow && opts.Wait > 0 && len(result.Lines) == 0 {
		return waitForLines(ctx, path, result.Offset, opts.Wait, opts.Match)
	}
	return result, nil
}

// scan feeds every matching line after offset to fn and returns the offset at
// end of file.
func scan(path string, offset int64, match Matcher, fn func(string)) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek log file: %w", err)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := scanner.Text()
		if match == nil || match(line) {
			fn(line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read log file: %w", err)
	}
	end, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, fmt.Errorf("determine log offset: %w", err)
	}
	return end, nil
}

func lastLines(path string, limit int, match Matcher) ([]string, int64, error) {
	if limit <= 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, 0, fmt.Errorf("stat log file: %w", err)
		}
		return nil, info.Size(), nil
	}

	ring := make([]string, limit)
	count := 0
	end, err := scan(path, 0, match, func(line string) {
		ring[count%limit] = line
		count++
	})
	if err != nil {
		return nil, 0, err
	}
	if count <= limit {
		return append([]string(nil), ring[:count]...), end, nil
	}
	start := count % limit
	lines := make([]string, 0, limit)
	lines = append(lines, ring[start:]...)
	lines = append(lines, ring[:start]...)
	return lines, end, nil
}

func linesFrom(path string, offset int64, match Matcher) ([]string, int64, error) {
	var lines []string
	end, err := scan(path, offset, match, func(line string) {
		lines = append(lines, line)
	})
	return lines, end, err
}

func waitForLines(ctx context.Context, path string, offset int64, wait time.Duration, match Matcher) (TailResult, error) {
	deadline := time.Now().Add(wait)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, end, err := linesFrom(path, result.Offset, match)
		if err != nil {
			return result, err
		}
		result.Offset = end
		if len(lines) > 0 || time.Now().After(deadline) {
			result.Lines = lines
			return result, nil
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-ticker.C:
		}
	}
}
