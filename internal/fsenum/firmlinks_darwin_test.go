package fsenum

import (
	"bufio"
	"strings"
	"testing"
)

func TestParseFirmlinks(t *testing.T) {
	table := "/Users\tUsers\n/Applications\tApplications\nbogus\n"
	got := map[string]struct{}{}
	parseFirmlinks(bufio.NewScanner(strings.NewReader(table)), got)
	for _, want := range []string{"/Users", "/Applications"} {
		if _, ok := got[want]; !ok {
			t.Errorf("missing %s in %v", want, got)
		}
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}
}
