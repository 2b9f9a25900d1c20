package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Report renders a human-readable dependency/health report derived purely
// from a statistics snapshot. Components appear in initialization order
// first, followed by any that never reached the initialize pass.
func Report(stats *LifecycleStatistics) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("lifecycle run %s\n", stats.RunID))
	if !stats.StartedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("  started:  %s\n", stats.StartedAt.Format("2006-01-02T15:04:05.000Z07:00")))
	}
	if stats.CompletedAt != nil {
		sb.WriteString(fmt.Sprintf("  init:     %s\n", stats.InitDuration))
	}
	if stats.ShutdownDuration > 0 {
		sb.WriteString(fmt.Sprintf("  shutdown: %s\n", stats.ShutdownDuration))
	}
	sb.WriteString(fmt.Sprintf("  components: %d total, %d initialized, %d failed, %d shut down\n",
		stats.Summary.Total, stats.Summary.Initialized, stats.Summary.Failed, stats.Summary.Shutdown))

	seen := make(map[string]bool, len(stats.Components))
	writeComponent := func(name string) {
		health, ok := stats.Components[name]
		if !ok || seen[name] {
			return
		}
		seen[name] = true

		line := fmt.Sprintf("    %-24s %-13s %8s", health.Name, health.Status, health.Duration)
		if len(health.Dependencies) > 0 {
			line += fmt.Sprintf("  deps=[%s]", strings.Join(health.Dependencies, ","))
		}
		if health.Error != "" {
			line += fmt.Sprintf("  error=%q", health.Error)
		}
		sb.WriteString(line + "\n")
	}

	sb.WriteString("  order:\n")
	for _, name := range stats.InitializeOrder {
		writeComponent(name)
	}

	// Components that failed or were never reached.
	rest := make([]string, 0, len(stats.Components))
	for name := range stats.Components {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		writeComponent(name)
	}

	if len(stats.Errors) > 0 {
		sb.WriteString("  failures:\n")
		for _, f := range stats.Errors {
			sb.WriteString(fmt.Sprintf("    %s [%s]: %s\n", f.Component, f.Phase, f.Error))
		}
	}

	return sb.String()
}
