package listadapter

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/afero"
)

const commentPrefix = "#"

// Read returns the endpoint URIs listed in path, one per line, in file order.
// Blank lines and lines starting with # are skipped.
func Read(fs afero.Fs, path string) ([]string, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("cannot read endpoint list: %w", err)
	}

	var uris []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		uris = append(uris, line)
	}

	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("cannot scan endpoint list: %w", err)
	}

	return uris, nil
}
