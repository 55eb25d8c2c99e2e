package core

// Environment represents the deployment environment of the planner
// service. It selects the logging profile at startup: production logs
// structured JSON, everything else gets the console writer.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

// String returns the string representation of the environment.
func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether the environment corresponds to production.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment maps the ENVIRONMENT value to one of the known
// environments. Unknown values fall back to Development so a missing
// or misspelled setting never blocks startup.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}
