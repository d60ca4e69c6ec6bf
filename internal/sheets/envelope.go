package sheets

import (
	"fmt"
	"strings"
)

// Envelope removes the wrapper text the gviz endpoint puts around its JSON payload.
type Envelope interface {
	Strip(raw string) (string, error)
}

// FixedOffset drops a fixed number of leading and trailing bytes. The gviz export wraps
// its payload in "/*O_o*/\ngoogle.visualization.Query.setResponse(" and ");".
type FixedOffset struct {
	Prefix int
	Suffix int
}

var DefaultEnvelope = FixedOffset{Prefix: 47, Suffix: 2}

func (f FixedOffset) Strip(raw string) (string, error) {
	if len(raw) < f.Prefix+f.Suffix {
		return "", &DecodeError{Reason: fmt.Sprintf("response is %d bytes, shorter than the %d byte envelope", len(raw), f.Prefix+f.Suffix)}
	}
	return raw[f.Prefix : len(raw)-f.Suffix], nil
}

// Marker keeps what sits between the first "(" and the last ")", so it survives changes
// to the callback name.
type Marker struct{}

func (Marker) Strip(raw string) (string, error) {
	start := strings.IndexByte(raw, '(')
	end := strings.LastIndexByte(raw, ')')
	if start < 0 || end <= start {
		return "", &DecodeError{Reason: "no call envelope found"}
	}
	return raw[start+1 : end], nil
}

// EnvelopeByName maps the SHEET_ENVELOPE setting to a strategy.
func EnvelopeByName(name string) (Envelope, error) {
	switch name {
	case "", "fixed":
		return DefaultEnvelope, nil
	case "marker":
		return Marker{}, nil
	}
	return nil, fmt.Errorf("unknown envelope %q", name)
}
