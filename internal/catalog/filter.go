package catalog

// DateRange is a closed date range with YYYY-MM-DD bounds. Comparison is
// string-lexicographic, which is exact for this fixed-width zero-padded
// format.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Contains reports whether the date portion of an ISO-8601 datetime falls
// within the range. A missing or short datetime never matches.
func (r DateRange) Contains(datetime string) bool {
	if len(datetime) < 10 {
		return false
	}
	date := datetime[:10]
	return r.Start <= date && date <= r.End
}

// FilterOptions are the criteria applied to a loaded footprint collection
type FilterOptions struct {
	// MaxCloudCover is the inclusive upper bound on cloud cover percentage.
	MaxCloudCover float64 `json:"maxCloudCover"`

	// DateRange, when non-nil, restricts footprints to a capture date range.
	DateRange *DateRange `json:"dateRange,omitempty"`
}

// Filter returns the footprints passing the criteria, preserving order.
// Footprints without a cloud cover property count as 0% and always pass the
// cloud threshold.
func Filter(footprints []Footprint, opts FilterOptions) []Footprint {
	filtered := make([]Footprint, 0, len(footprints))
	for _, fp := range footprints {
		if fp.Properties.CloudCover() > opts.MaxCloudCover {
			continue
		}
		if opts.DateRange != nil && !opts.DateRange.Contains(fp.Properties.Datetime) {
			continue
		}
		filtered = append(filtered, fp)
	}
	return filtered
}
