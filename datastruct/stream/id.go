package stream

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidID is returned when a stream id can not be parsed
var ErrInvalidID = errors.New("ERR Invalid stream ID specified as stream command argument")

// ID identifies an entry, IDs of a stream are strictly increasing
type ID struct {
	Ms  uint64
	Seq uint64
}

var (
	// MinID is the smallest possible id, written as "-"
	MinID = ID{}
	// MaxID is the greatest possible id, written as "+"
	MaxID = ID{Ms: math.MaxUint64, Seq: math.MaxUint64}
)

func (id ID) String() string {
	return strconv.FormatUint(id.Ms, 10) + "-" + strconv.FormatUint(id.Seq, 10)
}

// Less returns true if id sorts before other
func (id ID) Less(other ID) bool {
	return id.Ms < other.Ms || (id.Ms == other.Ms && id.Seq < other.Seq)
}

// IsZero returns true for 0-0
func (id ID) IsZero() bool {
	return id.Ms == 0 && id.Seq == 0
}

// Next returns the smallest id greater than id, ok is false on overflow
func (id ID) Next() (next ID, ok bool) {
	if id.Seq < math.MaxUint64 {
		return ID{Ms: id.Ms, Seq: id.Seq + 1}, true
	}
	if id.Ms < math.MaxUint64 {
		return ID{Ms: id.Ms + 1}, true
	}
	return id, false
}

// Prev returns the greatest id less than id, ok is false on underflow
func (id ID) Prev() (prev ID, ok bool) {
	if id.Seq > 0 {
		return ID{Ms: id.Ms, Seq: id.Seq - 1}, true
	}
	if id.Ms > 0 {
		return ID{Ms: id.Ms - 1, Seq: math.MaxUint64}, true
	}
	return id, false
}

// ParseID parses "ms-seq" or "ms", defaultSeq is used when the sequence part is missing.
// "-" and "+" stand for MinID and MaxID
func ParseID(s string, defaultSeq uint64) (ID, error) {
	switch s {
	case "-":
		return MinID, nil
	case "+":
		return MaxID, nil
	}
	msPart, seqPart, hasSeq := strings.Cut(s, "-")
	ms, err := strconv.ParseUint(msPart, 10, 64)
	if err != nil {
		return ID{}, ErrInvalidID
	}
	if !hasSeq {
		return ID{Ms: ms, Seq: defaultSeq}, nil
	}
	seq, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return ID{}, ErrInvalidID
	}
	return ID{Ms: ms, Seq: seq}, nil
}
