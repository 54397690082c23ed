package queryir

// RawOptions holds query options as text, the way a URL or a command line
// supplies them.
type RawOptions struct {
	Filter  string
	OrderBy string
	Skip    *int
	Top     *int
	Count   bool
	Select  string
	Expand  string
}

// Parse converts raw option text into Options.
func (r RawOptions) Parse() (Options, error) {
	filter, err := ParseFilter(r.Filter)
	if err != nil {
		return Options{}, err
	}
	orderBy, err := ParseOrderBy(r.OrderBy)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Filter:  filter,
		OrderBy: orderBy,
		Skip:    r.Skip,
		Top:     r.Top,
		Count:   r.Count,
		Select:  ParseList(r.Select),
		Expand:  ParseList(r.Expand),
	}, nil
}
