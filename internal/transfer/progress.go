package transfer

import "fmt"

// Progress is a snapshot of a running transfer.
//
// When Known is false the completion fraction is indeterminate, either
// because the transfer has not started moving bytes or because no total size
// is available.
type Progress struct {
	Known       bool
	Fraction    float64 // in [0, 1], meaningful only when Known
	Transferred int64   // bytes written so far
	Total       int64   // total size, or <= 0 if unknown
}

// ProgressFunc receives progress reports. It runs inline with the copy loop
// and must not block.
type ProgressFunc func(Progress)

// Percent returns the fraction as a percentage, or 0 when unknown.
func (p Progress) Percent() float64 {
	if !p.Known {
		return 0
	}
	return p.Fraction * 100
}

func (p Progress) String() string {
	if !p.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.1f%%", p.Percent())
}

func progressAt(transferred, total int64) Progress {
	p := Progress{Transferred: transferred, Total: total}
	if total <= 0 {
		return p
	}
	p.Known = true
	p.Fraction = float64(transferred) / float64(total)
	if p.Fraction > 1 {
		p.Fraction = 1
	}
	return p
}
