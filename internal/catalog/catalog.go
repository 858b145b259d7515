// Package catalog lists the vocabularies offered when annotating a frame.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"seams/internal/annotation"
)

var (
	ErrUnknownSubstrate = errors.New("unknown substrate")
	ErrInvalidNotes     = errors.New("invalid frame notes")
)

// Sandwave height bounds in centimetres. -1 means not measured.
const (
	SandwaveNotMeasured = -1
	SandwaveMaxCm       = 500
)

// Substrate is a seafloor substrate class.
type Substrate struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// ScaleStep is one step of an ordinal presence scale.
type ScaleStep struct {
	Value int    `json:"value"`
	Label string `json:"label"`
}

// Catalog is the full set of vocabularies served to clients.
type Catalog struct {
	Substrates      []Substrate `json:"substrates"`
	Taxa            []string    `json:"taxa"`
	ShellScale      []ScaleStep `json:"shell_scale"`
	CrawlTrackScale []ScaleStep `json:"crawl_track_scale"`
	FrameFlags      []string    `json:"frame_flags"`
	OtherPresences  []string    `json:"other_presences"`
	SandwaveMinCm   int         `json:"sandwave_min_cm"`
	SandwaveMaxCm   int         `json:"sandwave_max_cm"`
}

var substrates = []Substrate{
	{"UkSu", "Unknown Substrate"},
	{"HaCl", "Hard Clay"},
	{"Mu", "Mud (<0.002mm)"},
	{"Si", "Silt (0.002-0.06mm)"},
	{"Sa", "Sand (0.06-2mm)"},
	{"Gr", "Gravel (2-20mm)"},
	{"St", "Stones/Pebbles (20-60mm)"},
	{"LaSt", "Large Stones/Pebbles (60-200mm)"},
	{"Bo", "Boulders (200-600mm)"},
	{"LaBo", "Large Boulders (>600mm)"},
	{"SoRo", "Solid Rock"},
	{"ShGr", "Shell Gravel"},
	{"Blank", "Blank"},
	{"UcSu", "Uncolonised Substrate"},
}

var taxa = []string{
	"Fucus vesiculosus",
	"Furcellaria lumbricalis",
	"Zostera marina",
	"Chara spp.",
	"Potamogeton perfoliatus",
	"Stuckenia pectinata",
	"Ceramium tenuicorne",
	"Polysiphonia fucoides",
	"Cladophora spp.",
	"Pilayella littoralis",
	"Mytilus edulis",
	"Amphibalanus improvisus",
	"Limecola balthica",
	"Saduria entomon",
	"Filamentous algae",
	"Red algae",
	"Brown algae",
}

var shellScale = []ScaleStep{
	{0, "no"},
	{1, "förekommande"},
	{2, "måttligt"},
	{3, "rikligt"},
}

var crawlTrackScale = []ScaleStep{
	{0, "no"},
	{1, "förekommande"},
	{2, "måttligt > 10%"},
	{3, "rikligt > 50%"},
}

var frameFlags = []string{"Dålig bildkvalitet", "Dålig sikt/vattenkvalitet"}

var otherPresences = []string{"fish", "trash can", "dolphin"}

// Default returns a copy of the built-in catalog.
func Default() Catalog {
	return Catalog{
		Substrates:      append([]Substrate(nil), substrates...),
		Taxa:            append([]string(nil), taxa...),
		ShellScale:      append([]ScaleStep(nil), shellScale...),
		CrawlTrackScale: append([]ScaleStep(nil), crawlTrackScale...),
		FrameFlags:      append([]string(nil), frameFlags...),
		OtherPresences:  append([]string(nil), otherPresences...),
		SandwaveMinCm:   SandwaveNotMeasured,
		SandwaveMaxCm:   SandwaveMaxCm,
	}
}

// LookupSubstrate finds a substrate by code or label, case-insensitively.
func LookupSubstrate(codeOrLabel string) (Substrate, bool) {
	key := strings.TrimSpace(codeOrLabel)
	for _, s := range substrates {
		if strings.EqualFold(s.Code, key) || strings.EqualFold(s.Label, key) {
			return s, true
		}
	}
	return Substrate{}, false
}

// IsTaxon reports whether name is one of the listed taxa.
func IsTaxon(name string) bool {
	for _, t := range taxa {
		if strings.EqualFold(t, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// NormalizeSubstrates maps every entry to its canonical code.
func NormalizeSubstrates(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	for _, v := range in {
		s, ok := LookupSubstrate(v)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSubstrate, v)
		}
		out = append(out, s.Code)
	}
	return out, nil
}

// ValidateNotes checks the ordinal scales and the sandwave height.
func ValidateNotes(n annotation.Notes) error {
	if !inScale(shellScale, n.ShellScale) {
		return fmt.Errorf("%w: shell scale %d", ErrInvalidNotes, n.ShellScale)
	}
	if !inScale(crawlTrackScale, n.CrawlTrackScale) {
		return fmt.Errorf("%w: crawl track scale %d", ErrInvalidNotes, n.CrawlTrackScale)
	}
	if n.SandwaveHeightCm < SandwaveNotMeasured || n.SandwaveHeightCm > SandwaveMaxCm {
		return fmt.Errorf("%w: sandwave height %d cm", ErrInvalidNotes, n.SandwaveHeightCm)
	}
	for _, f := range n.FrameFlags {
		if !contains(frameFlags, f) {
			return fmt.Errorf("%w: frame flag %q", ErrInvalidNotes, f)
		}
	}
	return nil
}

func inScale(scale []ScaleStep, v int) bool {
	for _, s := range scale {
		if s.Value == v {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
