package verify

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"strings"
	"testing"

	"imageharvest/internal/model"
)

// validJPEG encodes a JPEG large enough to pass the minimum size check.
func validJPEG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 4), G: uint8(y * 4), B: uint8((x + y) * 2), A: 255})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

// writeOutput writes data at kw's expected primary output path.
func writeOutput(t *testing.T, outputDir string, kw model.Keyword, data []byte) {
	t.Helper()

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(kw.PrimaryPath(outputDir), data, 0600); err != nil {
		t.Fatal(err)
	}
}

// TestScannerScan tests output verification over a keyword list.
func TestScannerScan(t *testing.T) {
	t.Parallel()

	keywords := []model.Keyword{
		{ID: "3-1", KeywordFormatted: "red car"},
		{ID: "3-2", KeywordFormatted: "blue sky"},
		{ID: "3-3", KeywordFormatted: "green field"},
		{ID: "3-4", KeywordFormatted: "old bridge"},
	}

	t.Run("classifies valid, missing, and corrupted outputs", func(t *testing.T) {
		t.Parallel()

		outputDir := t.TempDir()
		writeOutput(t, outputDir, keywords[0], validJPEG(t))
		// keywords[1] has no file.
		writeOutput(t, outputDir, keywords[2], []byte("tiny"))
		writeOutput(t, outputDir, keywords[3], bytes.Repeat([]byte{0x42}, 2048))

		report, err := NewScanner(outputDir).Scan(context.Background(), keywords)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if report.Valid() != 1 || report.Missing() != 1 || report.Corrupted() != 2 {
			t.Errorf("counts = %d/%d/%d, want 1/1/2",
				report.Valid(), report.Missing(), report.Corrupted())
		}

		wantStatus := []Status{StatusValid, StatusMissing, StatusCorrupted, StatusCorrupted}
		for i, f := range report.Findings {
			if f.Keyword.ID != keywords[i].ID {
				t.Errorf("finding %d out of order: got %s", i, f.Keyword.ID)
			}
			if f.Status != wantStatus[i] {
				t.Errorf("finding %d status = %s, want %s", i, f.Status, wantStatus[i])
			}
		}
	})

	t.Run("explains why an output is corrupted", func(t *testing.T) {
		t.Parallel()

		outputDir := t.TempDir()
		writeOutput(t, outputDir, keywords[0], []byte("tiny"))
		writeOutput(t, outputDir, keywords[1], bytes.Repeat([]byte{0x42}, 2048))

		report, err := NewScanner(outputDir).Scan(context.Background(), keywords[:2])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(report.Findings[0].Reason, "only 4 bytes") {
			t.Errorf("unexpected reason: %q", report.Findings[0].Reason)
		}
		if report.Findings[1].Reason != "not a JPEG file" {
			t.Errorf("unexpected reason: %q", report.Findings[1].Reason)
		}
	})

	t.Run("keeps corrupted outputs by default", func(t *testing.T) {
		t.Parallel()

		outputDir := t.TempDir()
		writeOutput(t, outputDir, keywords[0], []byte("tiny"))

		report, err := NewScanner(outputDir).Scan(context.Background(), keywords[:1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Findings[0].Removed {
			t.Error("file removed without WithRemoveCorrupted")
		}
		if _, err := os.Stat(keywords[0].PrimaryPath(outputDir)); err != nil {
			t.Errorf("corrupted file should still exist: %v", err)
		}
	})

	t.Run("removes corrupted outputs when asked", func(t *testing.T) {
		t.Parallel()

		outputDir := t.TempDir()
		writeOutput(t, outputDir, keywords[0], []byte("tiny"))
		writeOutput(t, outputDir, keywords[1], validJPEG(t))

		scanner := NewScanner(outputDir, WithRemoveCorrupted(true))
		report, err := scanner.Scan(context.Background(), keywords[:2])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !report.Findings[0].Removed {
			t.Error("corrupted file not flagged as removed")
		}
		if _, err := os.Stat(keywords[0].PrimaryPath(outputDir)); !os.IsNotExist(err) {
			t.Error("corrupted file still on disk")
		}
		if _, err := os.Stat(keywords[1].PrimaryPath(outputDir)); err != nil {
			t.Errorf("valid file must survive removal pass: %v", err)
		}
	})

	t.Run("truncated JPEG header is corrupted", func(t *testing.T) {
		t.Parallel()

		// Starts with the SOI marker but carries no decodable header.
		data := append([]byte{0xFF, 0xD8}, bytes.Repeat([]byte{0x00}, 2046)...)
		outputDir := t.TempDir()
		writeOutput(t, outputDir, keywords[0], data)

		report, err := NewScanner(outputDir).Scan(context.Background(), keywords[:1])
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if report.Findings[0].Status != StatusCorrupted {
			t.Errorf("status = %s, want corrupted", report.Findings[0].Status)
		}
		if !strings.Contains(report.Findings[0].Reason, "undecodable JPEG header") {
			t.Errorf("unexpected reason: %q", report.Findings[0].Reason)
		}
	})

	t.Run("bounded concurrency still yields ordered findings", func(t *testing.T) {
		t.Parallel()

		outputDir := t.TempDir()
		for _, kw := range keywords {
			writeOutput(t, outputDir, kw, validJPEG(t))
		}

		report, err := NewScanner(outputDir, WithConcurrency(2)).Scan(context.Background(), keywords)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, f := range report.Findings {
			if f.Keyword.ID != keywords[i].ID {
				t.Errorf("finding %d out of order: got %s", i, f.Keyword.ID)
			}
		}
		if report.Valid() != len(keywords) {
			t.Errorf("valid = %d, want %d", report.Valid(), len(keywords))
		}
	})

	t.Run("cancelled context aborts the scan", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := NewScanner(t.TempDir()).Scan(ctx, keywords); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("empty keyword list yields an empty report", func(t *testing.T) {
		t.Parallel()

		report, err := NewScanner(t.TempDir()).Scan(context.Background(), nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Findings) != 0 {
			t.Errorf("expected no findings, got %d", len(report.Findings))
		}
	})
}

// TestStatusString tests status names.
func TestStatusString(t *testing.T) {
	t.Parallel()

	tests := map[Status]string{
		StatusValid:     "valid",
		StatusMissing:   "missing",
		StatusCorrupted: "corrupted",
		Status(99):      "unknown",
	}
	for status, want := range tests {
		if got := status.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", status, got, want)
		}
	}
}
