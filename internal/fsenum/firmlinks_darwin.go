package fsenum

import (
	"bufio"
	"os"
	"strings"
	"sync"
)

const firmlinkTable = "/usr/share/firmlinks"

var (
	firmlinkOnce sync.Once
	firmlinkSet  map[string]struct{}
)

// firmlinks returns the source paths listed in /usr/share/firmlinks. Each
// line is "<source>\t<target>"; the source is an alias of a directory on the
// data volume and would otherwise be counted twice.
func firmlinks() map[string]struct{} {
	firmlinkOnce.Do(func() {
		firmlinkSet = make(map[string]struct{})
		f, err := os.Open(firmlinkTable)
		if err != nil {
			return
		}
		defer f.Close()
		parseFirmlinks(bufio.NewScanner(f), firmlinkSet)
	})
	return firmlinkSet
}

func parseFirmlinks(sc *bufio.Scanner, into map[string]struct{}) {
	for sc.Scan() {
		line := sc.Text()
		if src, _, ok := strings.Cut(line, "\t"); ok && src != "" {
			into[src] = struct{}{}
		}
	}
}
