package transcript

import "redline/internal/services"

// Lookup tuning. The lead offset highlights a span slightly before it is
// spoken to compensate for perceived latency; the end tolerance keeps the
// last span highlighted briefly past its boundary to avoid flicker.
const (
	segmentLeadSeconds      = 0.15
	segmentEndTolerance     = 0.50
	wordLeadSeconds         = 0.08
	wordEndToleranceSeconds = 0.25
)

// ActiveSegment returns the index of the segment whose [start, end) window
// contains the playback position. Past the final segment's end but within
// the tolerance window, the final segment stays active. Returns -1, false
// when no segment matches.
func ActiveSegment(segments []Segment, positionSeconds float64) (int, bool) {
	if len(segments) == 0 {
		return -1, false
	}
	query := positionSeconds + segmentLeadSeconds
	for i := range segments {
		if query >= segments[i].Start && query < segments[i].End {
			return i, true
		}
	}
	last := len(segments) - 1
	if query >= segments[last].End && query < segments[last].End+segmentEndTolerance {
		return last, true
	}
	return -1, false
}

// ActiveWord applies the same scan one level down, over a segment's word
// timing list.
func ActiveWord(words []services.Word, positionSeconds float64) (int, bool) {
	if len(words) == 0 {
		return -1, false
	}
	query := positionSeconds + wordLeadSeconds
	for i := range words {
		if query >= words[i].Start && query < words[i].End {
			return i, true
		}
	}
	last := len(words) - 1
	if query >= words[last].End && query < words[last].End+wordEndToleranceSeconds {
		return last, true
	}
	return -1, false
}
