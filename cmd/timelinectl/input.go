package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
)

type fileEntry struct {
	StartTime int    `json:"start_time"`
	EndTime   int    `json:"end_time"`
	ImageURL  string `json:"image_url"`
}

type timelineFile struct {
	EpisodeDuration *int        `json:"episode_duration"`
	ImageTimeline   []fileEntry `json:"image_timeline"`
}

// readTimelineFile accepts either the request body shape or a bare entry array.
func readTimelineFile(path string) (timelineFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return timelineFile{}, fmt.Errorf("read timeline file: %w", err)
	}

	var doc timelineFile
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		err = json.Unmarshal(trimmed, &doc.ImageTimeline)
	} else {
		err = json.Unmarshal(trimmed, &doc)
	}
	if err != nil {
		return timelineFile{}, fmt.Errorf("parse timeline file %s: %w", path, err)
	}
	return doc, nil
}

func (f timelineFile) entries() []timeline.Entry {
	out := make([]timeline.Entry, len(f.ImageTimeline))
	for i, e := range f.ImageTimeline {
		out[i] = timeline.NewEntry(i, e.StartTime, e.EndTime, e.ImageURL)
	}
	return out
}
