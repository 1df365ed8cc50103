package pulse

// recorder is a Reporter that keeps every report.
type recorder struct {
	sources []string
	errs    []error
}

func (r *recorder) Report(source string, err error) {
	r.sources = append(r.sources, source)
	r.errs = append(r.errs, err)
}

func (r *recorder) count() int {
	return len(r.errs)
}
