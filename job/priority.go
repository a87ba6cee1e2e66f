package job

import "fmt"

// Priority is the scheduling weight assigned to a Job at submission
// time. Higher values are leased before lower ones; within a priority
// band, jobs are leased FIFO by CreatedAt.
type Priority int32

const (
	Low      Priority = 1
	Normal   Priority = 5
	High     Priority = 10
	Critical Priority = 100
)

func priorityToString(p Priority) string {
	switch p {
	case Low:
		return "LOW"
	case Normal:
		return "NORMAL"
	case High:
		return "HIGH"
	case Critical:
		return "CRITICAL"
	default:
		return ""
	}
}

func priorityFromString(s string) (Priority, error) {
	switch s {
	case "LOW":
		return Low, nil
	case "NORMAL":
		return Normal, nil
	case "HIGH":
		return High, nil
	case "CRITICAL":
		return Critical, nil
	default:
		return 0, fmt.Errorf("job: unknown priority %q", s)
	}
}

// ParsePriority converts a canonical priority name into a Priority
// value. An error is returned for unrecognized names or names that do
// not correspond to one of the four fixed bands.
func ParsePriority(s string) (Priority, error) {
	return priorityFromString(s)
}

// Valid reports whether p is one of the four fixed priority bands.
func (p Priority) Valid() bool {
	switch p {
	case Low, Normal, High, Critical:
		return true
	default:
		return false
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("job: invalid priority %d", p)
	}
	return []byte(priorityToString(p)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(text []byte) error {
	parsed, err := priorityFromString(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// String returns the canonical name of the priority band, or a numeric
// fallback if p does not match one of the four fixed bands.
func (p Priority) String() string {
	if s := priorityToString(p); s != "" {
		return s
	}
	return fmt.Sprintf("Priority(%d)", int32(p))
}
