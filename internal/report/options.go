package report

// Defaults for Options. The dashboard falls back to DefaultReportYear when a
// market-share request omits the year.
const (
	DefaultReportYear  = 2025
	DefaultTopStations = 10
	DefaultMoversLimit = 5
	DefaultMaxYoYSpan  = 50
)

// Options carries the tunables the reports would otherwise hard-code.
type Options struct {
	DefaultYear int // year used when a request does not name one
	TopStations int // length of the top-stations ranking
	MoversLimit int // entries per side of the growth/decline report
	MaxYoYSpan  int // widest year range a YoY request may ask for
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		DefaultYear: DefaultReportYear,
		TopStations: DefaultTopStations,
		MoversLimit: DefaultMoversLimit,
		MaxYoYSpan:  DefaultMaxYoYSpan,
	}
}
