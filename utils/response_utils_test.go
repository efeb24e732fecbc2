package utils

import (
	"errors"
	"strings"
	"testing"
)

type inner struct {
	Start *int `json:"start_time" validate:"required"`
}

type outer struct {
	Duration *int    `json:"episode_duration" validate:"required"`
	Items    []inner `json:"image_timeline" validate:"required,dive"`
}

func TestFieldPath(t *testing.T) {
	cases := map[string]string{
		"TimelineRequest.image_timeline[2].start_time": "image_timeline.2.start_time",
		"TimelineRequest.episode_duration":             "episode_duration",
		"image_timeline":                               "image_timeline",
	}
	for in, want := range cases {
		if got := FieldPath(in); got != want {
			t.Errorf("FieldPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatValidationErrorsUsesJSONPaths(t *testing.T) {
	v := NewValidator()
	zero := 0
	err := v.Struct(outer{Items: []inner{{Start: &zero}, {}}})
	if err == nil {
		t.Fatal("expected validation errors")
	}
	got := FormatValidationErrors(err)
	if _, ok := got["episode_duration"]; !ok {
		t.Fatalf("missing episode_duration error: %v", got)
	}
	msgs, ok := got["image_timeline.1.start_time"]
	if !ok || !strings.Contains(msgs[0], "'required'") {
		t.Fatalf("missing nested error: %v", got)
	}
	if _, ok := got["image_timeline.0.start_time"]; ok {
		t.Fatalf("zero start_time is present and must pass: %v", got)
	}
}

func TestFormatValidationErrorsOtherErrors(t *testing.T) {
	got := FormatValidationErrors(errors.New("boom"))
	if got["_"][0] != "boom" {
		t.Fatalf("unexpected %v", got)
	}
	if len(FormatValidationErrors(nil)) != 0 {
		t.Fatal("nil error must produce no entries")
	}
}
