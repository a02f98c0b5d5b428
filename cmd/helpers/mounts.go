package helpers

import (
	"fmt"
	"io"
	"sort"

	"github.com/stephnangue/vaultclient/api/sys"
)

// PrintMounts prints a mount table sorted by path. Non-table formats get
// the table as returned by the server.
func PrintMounts(w io.Writer, mounts map[string]*sys.MountOutput) error {
	if FlagFormat != "" && FlagFormat != FormatTable {
		return Output(w, mounts)
	}
	if len(mounts) == 0 {
		fmt.Fprintln(w, "No mounts enabled")
		return nil
	}

	paths := make([]string, 0, len(mounts))
	for path := range mounts {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	data := make([][]any, 0, len(paths))
	for _, path := range paths {
		m := mounts[path]
		version := m.Options["version"]
		if version == "" {
			version = "n/a"
		}
		data = append(data, []any{
			path,
			m.Type,
			m.Accessor,
			version,
			FormatDuration(m.Config.DefaultLeaseTTL),
			FormatDuration(m.Config.MaxLeaseTTL),
			m.Description,
		})
	}
	return PrintTable(w, []string{"Path", "Type", "Accessor", "Version", "Default TTL", "Max TTL", "Description"}, data)
}
