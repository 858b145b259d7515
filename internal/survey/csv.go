// Package survey imports station and video metadata files into the survey model.
package survey

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/charmap"

	"seams/internal/geo"
	"seams/internal/model"
)

var (
	ErrMissingColumns = errors.New("missing required columns")
	ErrInvalidOptions = errors.New("invalid csv options")
	ErrInvalidValue   = errors.New("invalid value")
)

// StationColumns are the columns every stations file must carry.
var StationColumns = []string{
	"siteName",
	"decimalLatitude",
	"decimalLongitude",
	"geodeticDatum",
	"countryCode",
	"eventDate",
	"maximumDepthInMeters",
}

// VideoColumns are the columns every videos file must carry.
var VideoColumns = []string{"siteName", "filename", "filepath"}

var delimiters = map[string]rune{
	"tab":       '\t',
	"comma":     ',',
	"semicolon": ';',
}

var decimals = map[string]string{
	"point": ".",
	"comma": ",",
}

const (
	EncodingUTF8        = "utf-8"
	EncodingWindows1252 = "windows-1252"
)

var countries = map[string]string{
	"SE": "Sweden",
	"FI": "Finland",
	"NO": "Norway",
	"DK": "Denmark",
	"DE": "Germany",
	"PL": "Poland",
	"EE": "Estonia",
	"LV": "Latvia",
	"LT": "Lithuania",
}

// CSVOptions describes how a metadata file is laid out.
type CSVOptions struct {
	Delimiter string `json:"delimiter"`
	Decimal   string `json:"decimal"`
	Encoding  string `json:"encoding"`
}

// DefaultCSVOptions matches a tab separated UTF-8 file with decimal points.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Delimiter: "tab", Decimal: "point", Encoding: EncodingUTF8}
}

// Validate checks that every option names a supported value.
func (o CSVOptions) Validate() error {
	if _, ok := delimiters[o.Delimiter]; !ok {
		return fmt.Errorf("%w: delimiter %q", ErrInvalidOptions, o.Delimiter)
	}
	if _, ok := decimals[o.Decimal]; !ok {
		return fmt.Errorf("%w: decimal %q", ErrInvalidOptions, o.Decimal)
	}
	if o.Delimiter == "comma" && o.Decimal == "comma" {
		return fmt.Errorf("%w: comma cannot be both delimiter and decimal separator", ErrInvalidOptions)
	}
	switch strings.ToLower(o.Encoding) {
	case EncodingUTF8, "utf8", EncodingWindows1252, "cp1252":
	default:
		return fmt.Errorf("%w: encoding %q", ErrInvalidOptions, o.Encoding)
	}
	return nil
}

// table is a decoded CSV file with its header indexed by column name.
type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func (t *table) value(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) require(cols []string) error {
	var missing []string
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return nil
}

func readTable(r io.Reader, opts CSVOptions) (*table, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	switch strings.ToLower(opts.Encoding) {
	case EncodingWindows1252, "cp1252":
		r = charmap.Windows1252.NewDecoder().Reader(r)
	}

	br := bufio.NewReader(r)
	if b, err := br.Peek(3); err == nil && string(b) == "\xef\xbb\xbf" {
		br.Discard(3)
	}

	cr := csv.NewReader(br)
	cr.Comma = delimiters[opts.Delimiter]
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: file is empty", ErrMissingColumns)
	}

	t := &table{header: records[0], index: make(map[string]int, len(records[0])), rows: records[1:]}
	for i, name := range t.header {
		t.index[strings.TrimSpace(name)] = i
	}
	return t, nil
}

func parseFloat(raw, decimal string) (float64, error) {
	if decimal == "comma" {
		raw = strings.ReplaceAll(raw, ",", ".")
	}
	return strconv.ParseFloat(raw, 64)
}

// ParseStations reads a stations file and returns its stations keyed by site
// name. Coordinates given in WGS84 are also projected to SWEREF 99 TM, and
// every column whose name contains "measurementType" is copied into the
// station measurements. A site listed twice keeps its last row.
func ParseStations(r io.Reader, opts CSVOptions) (map[string]*model.Station, error) {
	t, err := readTable(r, opts)
	if err != nil {
		return nil, err
	}
	if err := t.require(StationColumns); err != nil {
		return nil, err
	}

	var measurementCols []string
	for name := range t.index {
		if strings.Contains(strings.ToLower(name), "measurementtype") {
			measurementCols = append(measurementCols, name)
		}
	}
	sort.Strings(measurementCols)

	stations := make(map[string]*model.Station, len(t.rows))
	for n, row := range t.rows {
		line := n + 2
		site := t.value(row, "siteName")
		if site == "" {
			if isBlank(row) {
				continue
			}
			return nil, fmt.Errorf("%w: line %d: empty siteName", ErrInvalidValue, line)
		}

		lat, err := parseFloat(t.value(row, "decimalLatitude"), opts.Decimal)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: decimalLatitude: %v", ErrInvalidValue, line, err)
		}
		lon, err := parseFloat(t.value(row, "decimalLongitude"), opts.Decimal)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: decimalLongitude: %v", ErrInvalidValue, line, err)
		}
		var depth float64
		if raw := t.value(row, "maximumDepthInMeters"); raw != "" {
			if depth, err = parseFloat(raw, opts.Decimal); err != nil {
				return nil, fmt.Errorf("%w: line %d: maximumDepthInMeters: %v", ErrInvalidValue, line, err)
			}
		}

		code := strings.ToUpper(t.value(row, "countryCode"))
		st := &model.Station{
			StationID:     site,
			SiteName:      site,
			EventDate:     t.value(row, "eventDate"),
			GeodeticDatum: t.value(row, "geodeticDatum"),
			MaximumDepthM: depth,
			Location: model.Location{
				Country:          countries[code],
				CountryCode:      code,
				DecimalLatitude:  lat,
				DecimalLongitude: lon,
			},
		}
		if geo.IsWGS84(st.GeodeticDatum) {
			st.Location.SwerefX, st.Location.SwerefY = geo.ToSWEREF99TM(lat, lon)
		}

		if len(measurementCols) > 0 {
			st.Measurements = make(map[string]string, len(measurementCols))
			for _, col := range measurementCols {
				st.Measurements[col] = t.value(row, col)
			}
		}

		stations[site] = st
	}

	return stations, nil
}

// ParseVideos reads a videos file and groups filename -> filepath per site name.
func ParseVideos(r io.Reader, opts CSVOptions) (map[string]map[string]string, error) {
	t, err := readTable(r, opts)
	if err != nil {
		return nil, err
	}
	if err := t.require(VideoColumns); err != nil {
		return nil, err
	}

	videos := make(map[string]map[string]string)
	for n, row := range t.rows {
		site := t.value(row, "siteName")
		name := t.value(row, "filename")
		if site == "" && name == "" {
			continue
		}
		if site == "" || name == "" {
			return nil, fmt.Errorf("%w: line %d: siteName and filename are required", ErrInvalidValue, n+2)
		}
		if videos[site] == nil {
			videos[site] = make(map[string]string)
		}
		videos[site][name] = t.value(row, "filepath")
	}
	return videos, nil
}

// SurveyIDFromFilename derives a survey id from a stations file name: the base
// name without extension, up to the first "__".
func SurveyIDFromFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if i := strings.Index(base, "__"); i >= 0 {
		base = base[:i]
	}
	return strings.TrimSpace(base)
}

// EnsureMedia guarantees that every station has a media record holding an
// (empty) collection for kind.
func EnsureMedia(stations map[string]*model.Station, kind model.MediaKind) {
	for _, st := range stations {
		m := st.EnsureMedia()
		switch kind {
		case model.MediaVideo:
			if m.Videos == nil {
				m.Videos = map[string]string{}
			}
		case model.MediaPhotos:
			if m.Photos == nil {
				m.Photos = []string{}
			}
		}
	}
}

// AttachVideos merges grouped videos into the station media. Site names that
// match no station are returned sorted.
func AttachVideos(stations map[string]*model.Station, videos map[string]map[string]string) []string {
	var unknown []string
	for site, files := range videos {
		st, ok := stations[site]
		if !ok {
			unknown = append(unknown, site)
			continue
		}
		m := st.EnsureMedia()
		if m.Videos == nil {
			m.Videos = make(map[string]string, len(files))
		}
		for name, path := range files {
			m.Videos[name] = path
		}
	}
	sort.Strings(unknown)
	return unknown
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
