package plan

type Plan string
type Action string

const (
	PlanFree   Plan = "free"
	PlanPro    Plan = "pro"
	PlanAgency Plan = "agency"
)

const (
	ActionEdit     Action = "edit"
	ActionGenerate Action = "generate"
	ActionSave     Action = "save"
	ActionExport   Action = "export"
	ActionSearch   Action = "search"
)

const StatusActive = "active"

func Can(plan Plan, action Action) bool {
	switch plan {
	case PlanAgency:
		return true
	case PlanPro:
		return action == ActionEdit || action == ActionGenerate || action == ActionSave || action == ActionExport || action == ActionSearch
	case PlanFree:
		return action == ActionEdit || action == ActionGenerate || action == ActionSave
	default:
		return false
	}
}

// MaxProposals is the number of stored proposals a plan may hold. Zero means
// no limit.
func MaxProposals(plan Plan) int {
	switch plan {
	case PlanAgency:
		return 0
	case PlanPro:
		return 100
	default:
		return 5
	}
}

// Effective resolves the plan a user is billed for. Unknown plans and any
// subscription that is not active fall back to free.
func Effective(plan, subscriptionStatus string) Plan {
	if subscriptionStatus != StatusActive {
		return PlanFree
	}
	return Normalize(plan)
}

func Normalize(plan string) Plan {
	switch Plan(plan) {
	case PlanFree, PlanPro, PlanAgency:
		return Plan(plan)
	default:
		return PlanFree
	}
}
