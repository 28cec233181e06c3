package entity

// Operation is the action a one-time code authorizes on a key.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationRead   Operation = "read"
	OperationRemove Operation = "remove"
)

func (o Operation) String() string { return string(o) }

// Valid reports whether o is one of the known operations.
func (o Operation) Valid() bool {
	switch o {
	case OperationCreate, OperationRead, OperationRemove:
		return true
	default:
		return false
	}
}
