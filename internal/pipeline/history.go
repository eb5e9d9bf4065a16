package pipeline

import (
	"path/filepath"

	"docmill/internal/config"
)

// History returns the ordered list of stage suffixes observed for one
// document across the batch root, derived entirely from which stage
// directories hold an artifact for the base. It is the document's audit
// trail; nothing records it, the files are the record.
func History(cfg *config.Config, root, base string) ([]string, error) {
	type probe struct {
		dir    string
		suffix string
		ext    string
	}
	probes := []probe{{DirOriginal, SuffixOriginal, ".pdf"}}
	for _, stage := range Stages(cfg) {
		probes = append(probes, probe{stage.OutputDir, stage.OutputSuffix, stage.OutputExt})
	}

	var history []string
	for _, p := range probes {
		manifest, err := Scan(filepath.Join(root, p.dir), p.ext)
		if err != nil {
			return nil, err
		}
		if _, ok := manifest[base]; ok {
			history = append(history, p.suffix)
		}
	}
	return history, nil
}
