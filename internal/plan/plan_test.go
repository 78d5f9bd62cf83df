package plan

import "testing"

func TestCan(t *testing.T) {
	cases := []struct {
		name   string
		plan   Plan
		action Action
		allow  bool
	}{
		{name: "free edit", plan: PlanFree, action: ActionEdit, allow: true},
		{name: "free generate", plan: PlanFree, action: ActionGenerate, allow: true},
		{name: "free save", plan: PlanFree, action: ActionSave, allow: true},
		{name: "free export", plan: PlanFree, action: ActionExport, allow: false},
		{name: "free search", plan: PlanFree, action: ActionSearch, allow: false},
		{name: "pro export", plan: PlanPro, action: ActionExport, allow: true},
		{name: "pro search", plan: PlanPro, action: ActionSearch, allow: true},
		{name: "agency export", plan: PlanAgency, action: ActionExport, allow: true},
		{name: "unknown plan", plan: Plan("enterprise"), action: ActionEdit, allow: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Can(tc.plan, tc.action); got != tc.allow {
				t.Fatalf("Can(%q, %q) = %v, want %v", tc.plan, tc.action, got, tc.allow)
			}
		})
	}
}

func TestEffective(t *testing.T) {
	cases := []struct {
		plan   string
		status string
		want   Plan
	}{
		{plan: "pro", status: "active", want: PlanPro},
		{plan: "agency", status: "active", want: PlanAgency},
		{plan: "pro", status: "past_due", want: PlanFree},
		{plan: "agency", status: "canceled", want: PlanFree},
		{plan: "enterprise", status: "active", want: PlanFree},
		{plan: "", status: "", want: PlanFree},
	}
	for _, tc := range cases {
		if got := Effective(tc.plan, tc.status); got != tc.want {
			t.Fatalf("Effective(%q, %q) = %q, want %q", tc.plan, tc.status, got, tc.want)
		}
	}
}

func TestMaxProposals(t *testing.T) {
	if got := MaxProposals(PlanFree); got != 5 {
		t.Fatalf("free limit = %d", got)
	}
	if got := MaxProposals(PlanPro); got != 100 {
		t.Fatalf("pro limit = %d", got)
	}
	if got := MaxProposals(PlanAgency); got != 0 {
		t.Fatalf("agency limit = %d, want unlimited", got)
	}
}
