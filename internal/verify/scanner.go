package verify

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"

	"imageharvest/internal/fetch"
	"imageharvest/internal/model"
)

// defaultConcurrency bounds parallel file checks.
const defaultConcurrency = 8

// jpegMagic is the two-byte SOI marker that starts every JPEG file.
var jpegMagic = []byte{0xFF, 0xD8}

// Status classifies one keyword's primary output.
type Status int

const (
	// StatusValid means the output exists and decodes as a JPEG.
	StatusValid Status = iota

	// StatusMissing means no output file exists for the keyword.
	StatusMissing

	// StatusCorrupted means a file exists but is not a usable JPEG.
	StatusCorrupted
)

// String returns the lowercase status name.
func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusMissing:
		return "missing"
	case StatusCorrupted:
		return "corrupted"
	default:
		return "unknown"
	}
}

// Finding is the verification outcome for one keyword.
type Finding struct {
	// Keyword is the audited keyword.
	Keyword model.Keyword

	// Path is the expected primary output path.
	Path string

	// Status classifies the output.
	Status Status

	// Reason explains non-valid statuses.
	Reason string

	// Removed reports whether a corrupted file was deleted.
	Removed bool
}

// Report aggregates findings for a whole keyword list, in list order.
type Report struct {
	Findings []Finding
}

// Valid returns the number of valid outputs.
func (r *Report) Valid() int { return r.count(StatusValid) }

// Missing returns the number of keywords without an output.
func (r *Report) Missing() int { return r.count(StatusMissing) }

// Corrupted returns the number of corrupted outputs.
func (r *Report) Corrupted() int { return r.count(StatusCorrupted) }

func (r *Report) count(status Status) int {
	n := 0
	for _, f := range r.Findings {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Scanner verifies primary outputs for keywords.
type Scanner struct {
	outputDir       string
	concurrency     int
	removeCorrupted bool
	logger          *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithConcurrency bounds how many files are checked in parallel.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRemoveCorrupted deletes corrupted output files as they are found.
func WithRemoveCorrupted(remove bool) Option {
	return func(s *Scanner) { s.removeCorrupted = remove }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) { s.logger = logger }
}

// NewScanner creates a Scanner over outputDir.
func NewScanner(outputDir string, opts ...Option) *Scanner {
	s := &Scanner{
		outputDir:   outputDir,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Scan checks every keyword's expected output and returns findings in
// keyword order. Only filesystem errors during removal fail the scan;
// missing and corrupted outputs are findings, not errors.
func (s *Scanner) Scan(ctx context.Context, keywords []model.Keyword) (*Report, error) {
	findings := make([]Finding, len(keywords))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := s.check(kw)
			if err != nil {
				return err
			}
			findings[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Report{Findings: findings}, nil
}

// check classifies one keyword's output file.
func (s *Scanner) check(kw model.Keyword) (Finding, error) {
	f := Finding{
		Keyword: kw,
		Path:    kw.PrimaryPath(s.outputDir),
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if os.IsNotExist(err) {
			f.Status = StatusMissing
			f.Reason = "no output file"
			return f, nil
		}
		return f, fmt.Errorf("failed to read %s: %w", f.Path, err)
	}

	if reason, ok := s.validate(data); !ok {
		f.Status = StatusCorrupted
		f.Reason = reason
		s.logger.Warn("corrupted output", "id", kw.ID, "path", f.Path, "reason", reason)
		if s.removeCorrupted {
			if err := os.Remove(f.Path); err != nil {
				return f, fmt.Errorf("failed to remove corrupted output %s: %w", f.Path, err)
			}
			f.Removed = true
		}
		return f, nil
	}

	f.Status = StatusValid
	return f, nil
}

// validate reports whether data is a usable JPEG output.
func (s *Scanner) validate(data []byte) (string, bool) {
	if len(data) < fetch.MinImageBytes {
		return fmt.Sprintf("only %d bytes", len(data)), false
	}
	if !bytes.HasPrefix(data, jpegMagic) {
		return "not a JPEG file", false
	}
	if _, err := jpeg.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Sprintf("undecodable JPEG header: %v", err), false
	}
	return "", true
}
