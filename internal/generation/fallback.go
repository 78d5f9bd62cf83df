package generation

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"proposals/api/internal/money"
	"proposals/api/internal/proposal"
)

const (
	defaultProjectHours = 80
	hoursPerWorkingDay  = 8
)

var (
	projectPattern  = regexp.MustCompile(`(?i)\b(?:build|create|develop|design|launch|redesign)\s+(?:an?\s+|the\s+|our\s+|my\s+)?([^,.;:\n]{3,60})`)
	durationPattern = regexp.MustCompile(`(?i)\b(\d{1,3})\s*(day|week|month)s?\b`)
	featurePattern  = regexp.MustCompile(`(?i)\b(?:with\s+)?(?:features?|including|includes)\s*:?\s+([^.\n]+)`)
	featureSplit    = regexp.MustCompile(`(?i)\s*(?:,|;|\band\b)\s*`)
)

type phase struct {
	name        string
	description string
	weight      float64
}

var scopePhases = []phase{
	{name: "Discovery", description: "Requirements workshops, research and project plan", weight: 0.10},
	{name: "Design", description: "Wireframes, visual design and approval rounds", weight: 0.20},
	{name: "Development", description: "Implementation of the agreed scope", weight: 0.45},
	{name: "Testing", description: "Quality assurance, fixes and acceptance testing", weight: 0.15},
	{name: "Deployment", description: "Release, handover and launch support", weight: 0.10},
}

// FallbackGenerator synthesizes a proposal locally when the remote endpoint is
// unavailable. Output is deterministic for a given input; Delay staggers the
// snapshots so callers see the same incremental behaviour as a real stream.
type FallbackGenerator struct {
	Delay time.Duration
}

func NewFallbackGenerator(delay time.Duration) *FallbackGenerator {
	return &FallbackGenerator{Delay: delay}
}

func (f *FallbackGenerator) Generate(ctx context.Context, in Input) (<-chan Snapshot, error) {
	sections := Simulate(in)
	out := make(chan Snapshot)
	go func() {
		defer close(out)
		for i := 1; i <= len(sections); i++ {
			if i > 1 && f.Delay > 0 {
				select {
				case <-time.After(f.Delay):
				case <-ctx.Done():
					return
				}
			}
			if err := send(ctx, out, Snapshot{Sections: proposal.Clone(sections[:i])}); err != nil {
				return
			}
		}
	}()
	return out, nil
}

// brief is what the simulator can recover from a free-text prompt.
type brief struct {
	project     string
	features    []string
	workingDays int
}

func parseBrief(prompt string) brief {
	b := brief{project: "your project"}
	if m := projectPattern.FindStringSubmatch(prompt); m != nil {
		b.project = strings.TrimSpace(m[1])
	}
	if m := durationPattern.FindStringSubmatch(prompt); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch strings.ToLower(m[2]) {
		case "day":
			b.workingDays = n
		case "week":
			b.workingDays = n * 5
		case "month":
			b.workingDays = n * 21
		}
	}
	if m := featurePattern.FindStringSubmatch(prompt); m != nil {
		for _, feature := range featureSplit.Split(m[1], -1) {
			feature = strings.TrimSpace(feature)
			if feature != "" {
				b.features = append(b.features, feature)
			}
		}
	}
	return b
}

// Simulate builds the complete fallback proposal: introduction, overview,
// scope of work, timeline, budget and terms.
func Simulate(in Input) []proposal.Section {
	b := parseBrief(in.Prompt)
	rate := in.Rate()

	totalHours := float64(defaultProjectHours)
	if in.ProjectBudget > 0 && rate > 0 {
		totalHours = in.ProjectBudget / rate
	}

	scope := make([]proposal.Item, 0, len(scopePhases))
	allocated := 0.0
	for _, p := range scopePhases {
		hours := math.Max(1, math.Round(totalHours*p.weight))
		allocated += hours
		scope = append(scope, proposal.Item{
			Name:        p.name,
			Description: p.description,
			Hours:       hours,
			Price:       hours * rate,
		})
	}

	workingDays := b.workingDays
	if workingDays <= 0 {
		workingDays = int(math.Ceil(allocated / hoursPerWorkingDay))
	}

	return []proposal.Section{
		{Title: "Introduction", Items: []proposal.Item{
			textItem("Welcome", fmt.Sprintf("Thank you for the opportunity to propose %s. This document outlines our approach, timeline and investment.", b.project)),
		}},
		{Title: "Project Overview", Items: overviewItems(in, b)},
		{Title: "Scope of Work", Items: scope},
		{Title: "Timeline", Items: timelineItems(workingDays)},
		{Title: "Budget", Items: []proposal.Item{
			textItem("Estimated investment", fmt.Sprintf("%s for %s hours of work", money.Format(allocated*rate), money.FormatHours(allocated))),
			textItem("Payment schedule", "50% on acceptance, 50% on delivery"),
		}},
		{Title: "Terms & Conditions", Items: []proposal.Item{
			textItem("Validity", "This proposal is valid for 30 days from the date of issue."),
			textItem("Revisions", "Two rounds of revisions are included for each deliverable."),
			textItem("Ownership", "All deliverables transfer to the client upon final payment."),
		}},
	}
}

func overviewItems(in Input, b brief) []proposal.Item {
	items := []proposal.Item{
		textItem("Objective", fmt.Sprintf("Deliver %s on time and within the agreed budget.", b.project)),
	}
	if len(b.features) > 0 {
		items = append(items, textItem("Key features", strings.Join(b.features, ", ")))
	}
	if len(in.UserServices) > 0 {
		items = append(items, textItem("Services", strings.Join(in.UserServices, ", ")))
	}
	return items
}

// timelineItems spreads the working days over the scope phases by weight.
func timelineItems(workingDays int) []proposal.Item {
	items := make([]proposal.Item, 0, len(scopePhases))
	for _, p := range scopePhases {
		description := "To be scheduled"
		if workingDays > 0 {
			days := int(math.Max(1, math.Round(float64(workingDays)*p.weight)))
			description = fmt.Sprintf("%d working day", days)
			if days != 1 {
				description += "s"
			}
		}
		items = append(items, textItem(p.name, description))
	}
	return items
}

func textItem(name, description string) proposal.Item {
	return proposal.Item{Name: name, Description: description}
}
