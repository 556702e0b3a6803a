package virustotal

import (
	"fmt"

	"github.com/go-faster/jx"
)

// lookupString walks the JSON object b along path and returns the string
// found at its end. Responses are passed through verbatim, so only the few
// fields the orchestration needs are read; the rest is skipped.
func lookupString(b []byte, path ...string) (string, bool, error) {
	d := jx.DecodeBytes(b)
	val, found, err := lookupStringAt(d, path)
	if err != nil {
		return "", false, fmt.Errorf("could not read %v: %w", path, err)
	}

	return val, found, nil
}

func lookupStringAt(d *jx.Decoder, path []string) (string, bool, error) {
	if len(path) == 0 {
		if d.Next() != jx.String {
			return "", false, d.Skip()
		}
		s, err := d.Str()
		if err != nil {
			return "", false, err
		}

		return s, true, nil
	}

	if d.Next() != jx.Object {
		return "", false, d.Skip()
	}

	var (
		val   string
		found bool
	)
	err := d.Obj(func(d *jx.Decoder, key string) error {
		if found || key != path[0] {
			return d.Skip()
		}

		v, ok, err := lookupStringAt(d, path[1:])
		val, found = v, ok

		return err
	})
	if err != nil {
		return "", false, err
	}

	return val, found, nil
}

// validJSON reports whether b holds exactly one JSON value.
func validJSON(b []byte) bool {
	return jx.Valid(b)
}
