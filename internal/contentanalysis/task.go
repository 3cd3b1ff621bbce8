package contentanalysis

// A Task refers to a particular kind of analysis performed on file content.
type Task string

const (
	// Basic collects the size, SHA256 digest and detected file type.
	Basic Task = "basic"

	// Distribution computes the entropy and standard deviation of the byte values.
	Distribution Task = "distribution"

	// Classification applies acceptance criteria to the distribution statistics.
	// It depends on Distribution.
	Classification Task = "classification"

	// All is a placeholder for every task. It must be expanded with AllTasks()
	// before being passed to New.
	All Task = "all"
)

func AllTasks() []Task {
	return []Task{
		Basic,
		Distribution,
		Classification,
	}
}

func TaskFromString(s string) (Task, bool) {
	switch Task(s) {
	case Basic, Distribution, Classification, All:
		return Task(s), true
	default:
		return "", false
	}
}
