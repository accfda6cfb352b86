package run_test

import (
	"testing"
	"time"

	"github.com/artpar/worldgate/domain/run"
)

func TestDigest(t *testing.T) {
	a := run.Digest([]byte("<World Name=\"a\"/>"))
	b := run.Digest([]byte("<World Name=\"b\"/>"))

	if len(a) != 64 {
		t.Errorf("len(Digest) = %d, want 64", len(a))
	}
	if a == b {
		t.Error("different documents should have different digests")
	}
	if a != run.Digest([]byte("<World Name=\"a\"/>")) {
		t.Error("Digest should be deterministic")
	}
}

func TestSummarize(t *testing.T) {
	runs := []run.Run{
		{Status: run.StatusOK, Elements: 10, Duration: 10 * time.Millisecond},
		{Status: run.StatusFailed, ErrorCode: "MALFORMED_LITERAL", Elements: 3, Duration: 20 * time.Millisecond},
		{Status: run.StatusFailed, ErrorCode: "MALFORMED_LITERAL", Elements: 1, Duration: 30 * time.Millisecond},
		{Status: run.StatusFailed, ErrorCode: "TOO_LARGE"},
	}

	s := run.Summarize(runs)

	if s.Total != 4 {
		t.Errorf("Total = %d, want 4", s.Total)
	}
	if s.Failed != 3 {
		t.Errorf("Failed = %d, want 3", s.Failed)
	}
	if s.Elements != 14 {
		t.Errorf("Elements = %d, want 14", s.Elements)
	}
	if s.AvgDuration != 15*time.Millisecond {
		t.Errorf("AvgDuration = %v, want 15ms", s.AvgDuration)
	}
	if s.ByCode["MALFORMED_LITERAL"] != 2 || s.ByCode["TOO_LARGE"] != 1 {
		t.Errorf("ByCode = %v", s.ByCode)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := run.Summarize(nil)
	if s.Total != 0 || s.AvgDuration != 0 {
		t.Errorf("Summarize(nil) = %+v", s)
	}
	if s.ByCode == nil {
		t.Error("ByCode should be initialized")
	}
}
