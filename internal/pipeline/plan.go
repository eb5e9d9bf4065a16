package pipeline

// Plan computes the resume delta for one stage: every input file whose base
// has no counterpart in the output manifest. With force set, every input file
// is returned regardless of existing outputs. Planning never deletes or
// rewrites anything; a stale output simply suppresses re-work until the
// caller forces it.
func Plan(input, output Manifest, force bool) []File {
	if force {
		return input.Sorted()
	}
	pending := make(Manifest, len(input))
	for base, file := range input {
		if _, done := output[base]; done {
			continue
		}
		pending[base] = file
	}
	return pending.Sorted()
}

// Partition splits files into the parallel and sequential passes by the
// stage's strict size boundary. Files below the threshold run concurrently;
// files at or above it run one at a time after the parallel pass drains. A
// zero threshold puts everything in the parallel pass. Both slices preserve
// the incoming size order.
func Partition(files []File, threshold int64) (parallel, sequential []File) {
	if threshold <= 0 {
		return files, nil
	}
	for _, file := range files {
		if file.Size < threshold {
			parallel = append(parallel, file)
		} else {
			sequential = append(sequential, file)
		}
	}
	return parallel, sequential
}
