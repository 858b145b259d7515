// Package annotation keeps the per-frame interpretation state of a station.
//
// A Document maps every frame identifier of a station's frame map to its
// annotation record. Functions in this package mutate the caller's Document
// and never persist it.
package annotation

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Status is the interpretation state of a frame.
type Status int

const (
	StatusUnset Status = -1
	StatusDone  Status = 1
)

func (s Status) String() string {
	switch s {
	case StatusUnset:
		return "unset"
	case StatusDone:
		return "done"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

var (
	ErrEmptySelection        = errors.New("no dot-points selected")
	ErrUnknownPointID        = errors.New("unknown dot-point id")
	ErrDocumentInconsistency = errors.New("frame missing from annotation document")
)

// Document holds one Frame per frame identifier.
type Document map[int]*Frame

// Frame is the annotation record of a single extracted frame.
type Frame struct {
	FrameID    int                      `yaml:"frame_id" json:"frame_id"`
	FramePath  string                   `yaml:"frame_filepath,omitempty" json:"frame_filepath,omitempty"`
	Status     Status                   `yaml:"status" json:"status"`
	PointCount int                      `yaml:"point_count,omitempty" json:"point_count,omitempty"`
	DotPoints  map[int]*PointAnnotation `yaml:"dotpoints" json:"dotpoints"`
}

// PointAnnotation is what was observed under one dot-point.
type PointAnnotation struct {
	PointID     int       `yaml:"point_id" json:"point_id"`
	Taxa        []string  `yaml:"taxons" json:"taxa"`
	Substrates  []string  `yaml:"substrates" json:"substrates"`
	Notes       Notes     `yaml:"notes" json:"notes"`
	AnnotatedBy string    `yaml:"annotated_by,omitempty" json:"annotated_by,omitempty"`
	AnnotatedAt time.Time `yaml:"annotated_at,omitempty" json:"annotated_at,omitempty"`
}

// Notes is the frame-level "overall notes" record collected alongside a
// submission.
type Notes struct {
	ShellScale       int      `yaml:"limecola_baltica_shells" json:"shell_scale"`
	CrawlTrackScale  int      `yaml:"crawl_tracks" json:"crawl_track_scale"`
	SandwaveHeightCm int      `yaml:"sandwave_height_cm" json:"sandwave_height_cm"`
	FrameFlags       []string `yaml:"frame_flags,omitempty" json:"frame_flags,omitempty"`
	OtherPresences   []string `yaml:"other_presences,omitempty" json:"other_presences,omitempty"`
	ExtraOccurrences []string `yaml:"extra_occurrences,omitempty" json:"extra_occurrences,omitempty"`
	Comments         string   `yaml:"comments,omitempty" json:"comments,omitempty"`
}

// DefaultNotes returns notes with the sandwave height marked as not measured.
func DefaultNotes() Notes {
	return Notes{SandwaveHeightCm: -1}
}

// Submission is one annotation action on a frame.
type Submission struct {
	PointIDs    []int     `json:"point_ids"`
	Substrates  []string  `json:"substrates"`
	Taxa        []string  `json:"taxa"`
	Notes       Notes     `json:"notes"`
	AnnotatedBy string    `json:"annotated_by,omitempty"`
	AnnotatedAt time.Time `json:"annotated_at,omitempty"`
}

// EnsureInitialized adds an unset entry for every key of frames that doc does
// not already hold. Existing entries are left untouched, so calling it again
// with the same frames is a no-op.
func EnsureInitialized(doc Document, frames map[int]string) Document {
	if doc == nil {
		doc = make(Document, len(frames))
	}
	for id, path := range frames {
		if _, ok := doc[id]; ok {
			continue
		}
		doc[id] = &Frame{
			FrameID:   id,
			FramePath: path,
			Status:    StatusUnset,
			DotPoints: map[int]*PointAnnotation{},
		}
	}
	return doc
}

// Submit records sub against the selected dot-points of frameID. pointCount is
// the number of points in the grid the user saw. The document is only mutated
// when every check passes.
func Submit(doc Document, frameID, pointCount int, sub Submission) (Document, error) {
	if len(sub.PointIDs) == 0 {
		return doc, ErrEmptySelection
	}
	frame, ok := doc[frameID]
	if !ok || frame == nil {
		return doc, fmt.Errorf("%w: frame %d", ErrDocumentInconsistency, frameID)
	}
	for _, id := range sub.PointIDs {
		if id < 1 || id > pointCount {
			return doc, fmt.Errorf("%w: %d not in [1, %d]", ErrUnknownPointID, id, pointCount)
		}
	}

	if frame.DotPoints == nil {
		frame.DotPoints = map[int]*PointAnnotation{}
	}
	for _, id := range sub.PointIDs {
		frame.DotPoints[id] = &PointAnnotation{
			PointID:     id,
			Taxa:        cloneStrings(sub.Taxa),
			Substrates:  cloneStrings(sub.Substrates),
			Notes:       cloneNotes(sub.Notes),
			AnnotatedBy: sub.AnnotatedBy,
			AnnotatedAt: sub.AnnotatedAt,
		}
	}
	frame.PointCount = pointCount
	frame.Status = StatusDone

	return doc, nil
}

// CompletionSummary splits the frame identifiers of doc by status.
// Both slices are sorted ascending.
func CompletionSummary(doc Document) (done, pending []int) {
	done = []int{}
	pending = []int{}
	for id, frame := range doc {
		if frame != nil && frame.Status == StatusDone {
			done = append(done, id)
		} else {
			pending = append(pending, id)
		}
	}
	sort.Ints(done)
	sort.Ints(pending)
	return done, pending
}

// Lookup returns the annotation record for frameID.
func Lookup(doc Document, frameID int) (*Frame, error) {
	frame, ok := doc[frameID]
	if !ok || frame == nil {
		return nil, fmt.Errorf("%w: frame %d", ErrDocumentInconsistency, frameID)
	}
	return frame, nil
}

// FrameIDs returns the keys of doc in ascending order.
func FrameIDs(doc Document) []int {
	ids := make([]int, 0, len(doc))
	for id := range doc {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func cloneStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneNotes(n Notes) Notes {
	n.FrameFlags = cloneStrings(n.FrameFlags)
	n.OtherPresences = cloneStrings(n.OtherPresences)
	n.ExtraOccurrences = cloneStrings(n.ExtraOccurrences)
	return n
}
