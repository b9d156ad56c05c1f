package permission

import "testing"

// FuzzParseList exercises stored permission decoding with arbitrary input.
// Goal: no panics; successful parses never return a nil slice.
func FuzzParseList(f *testing.F) {
	f.Add(`["trade","withdraw"]`)
	f.Add(`[]`)
	f.Add(`null`)
	f.Add(``)
	f.Add(`{"a":1}`)
	f.Add(`["unterminated`)

	f.Fuzz(func(t *testing.T, data string) {
		out, err := ParseList(data)
		if err != nil {
			return
		}
		if out == nil {
			t.Fatal("ParseList returned nil slice without error")
		}
	})
}
