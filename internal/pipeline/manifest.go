package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"docmill/internal/services"
)

// Manifest maps normalized base names to the artifact present for each in a
// single stage directory. A missing directory scans as an empty manifest so a
// fresh batch root needs no setup before the first plan.
type Manifest map[string]File

// Scan reads one stage directory and returns a manifest of the files carrying
// the given extension. Subdirectories, dotfiles, and names starting with "_"
// are skipped. When two files normalize to the same base the lexicographically
// first name wins, matching what a re-run would deterministically pick.
func Scan(dir, ext string) (Manifest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Manifest{}, nil
		}
		return nil, services.Wrap(services.ErrValidation, "pipeline", "scan", "read stage directory "+dir, err)
	}

	names := make([]string, 0, len(entries))
	byName := make(map[string]os.DirEntry, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		names = append(names, name)
		byName[name] = entry
	}
	sort.Strings(names)

	manifest := make(Manifest, len(names))
	for _, name := range names {
		base := NormalizeBase(name)
		if _, seen := manifest[base]; seen {
			continue
		}
		info, err := byName[name].Info()
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "pipeline", "scan", "stat "+name, err)
		}
		manifest[base] = File{
			Base:   base,
			Name:   name,
			Path:   filepath.Join(dir, name),
			Suffix: SuffixOf(name),
			Size:   info.Size(),
		}
	}
	return manifest, nil
}

// Sorted returns the manifest's files ordered by size ascending, name as the
// tie-breaker, which is the dispatch order for every stage.
func (m Manifest) Sorted() []File {
	files := make([]File, 0, len(m))
	for _, file := range m {
		files = append(files, file)
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].Size != files[j].Size {
			return files[i].Size < files[j].Size
		}
		return files[i].Name < files[j].Name
	})
	return files
}

// Bases returns the sorted set of normalized base names present.
func (m Manifest) Bases() []string {
	bases := make([]string, 0, len(m))
	for base := range m {
		bases = append(bases, base)
	}
	sort.Strings(bases)
	return bases
}
