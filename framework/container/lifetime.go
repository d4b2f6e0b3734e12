package container

// Lifetime controls how long a resolved instance is reused.
//
//	Singleton — one shared instance for the whole process/worker.
//	Scoped    — one instance per HTTP request, reused during that request.
//	Transient — a new instance on every resolution.
type Lifetime int

const (
	Singleton Lifetime = iota
	Scoped
	Transient
)

func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return "unknown"
	}
}

// narrowerThan reports whether l is shorter-lived than other.
// Broadness order: Singleton > Scoped > Transient.
func (l Lifetime) narrowerThan(other Lifetime) bool {
	return l > other
}
