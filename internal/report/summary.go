// Package report turns generation results into human-readable summaries:
// tables for the terminal and an HTML page for an emitted model.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/panbanda/libmodel/internal/output"
	"github.com/panbanda/libmodel/pkg/diag"
	"github.com/panbanda/libmodel/pkg/session"
)


var (
	printer = message.NewPrinter(language.English)
	titler  = cases.Title(language.English)
)

// num formats n with thousands separators.
func num[T ~int | ~int64 | ~uint64](n T) string {
	return printer.Sprintf("%d", n)
}

// Summary renders a run report. Diagnostics beyond a positive limit are
// counted but not listed; zero lists them all.
func Summary(rep *session.Report, limit int) *output.Report {
	title := "Library model"
	if rep.Degraded {
		title += " (degraded)"
	}

	r := &output.Report{Title: title, Data: rep}
	r.Sections = append(r.Sections,
		metrics("Universe", [][]string{
			{"Input files", num(rep.Files)},
			{"Failed files", num(len(rep.LoadErrors))},
			{"Application types", num(rep.Hierarchy.ApplicationTypes)},
			{"Library types", num(rep.Hierarchy.LibraryTypes)},
			{"Entry points", num(rep.EntryPoints)},
		}),
		metrics("Reachability", [][]string{
			{"Referenced library methods", num(rep.Sets.ReferencedLibraryMethods)},
			{"Referenced library fields", num(rep.Sets.ReferencedLibraryFields)},
			{"Annotated application methods", num(rep.Sets.AnnotatedApplicationMethods)},
			{"Overriding application methods", num(rep.Sets.OverriddenApplicationMethods)},
		}),
		output.NewTable("Cleanup",
			[]string{"Library members", "Initial", "Added", "Removed", "Final"},
			[][]string{
				{"Methods", num(rep.Hierarchy.InitialLibraryMethods), num(rep.Hierarchy.AddedLibraryMethods), num(rep.Hierarchy.RemovedLibraryMethods), num(rep.Hierarchy.FinalLibraryMethods)},
				{"Fields", num(rep.Hierarchy.InitialLibraryFields), "0", num(rep.Hierarchy.RemovedLibraryFields), num(rep.Hierarchy.FinalLibraryFields)},
			}, nil, rep.Hierarchy),
		metrics("Synthesis", [][]string{
			{"Crafted classes", num(rep.Synth.CraftedClasses)},
			{"Marker interfaces", num(rep.Synth.MarkerInterfaces)},
			{"Generated classes", num(rep.Synth.Classes)},
			{"Generated methods", num(rep.Synth.Methods)},
			{"Bodies", num(rep.Synth.Bodies)},
			{"Failed bodies", num(rep.Synth.FailedBodies)},
			{"Missing bodies", num(rep.Synth.MissingBodies)},
			{"LPT fields", num(rep.Synth.LPTFields)},
		}),
	)
	if rep.Output != nil {
		r.Sections = append(r.Sections, &output.Section{
			Title: "Output",
			Content: fmt.Sprintf("%s\n%s classes, fingerprint %s",
				rep.Output.Dir, num(rep.Output.Classes), rep.Output.Fingerprint),
		})
	}
	r.Sections = append(r.Sections, Diagnostics(rep.Diagnostics, limit))
	return r
}

func metrics(title string, rows [][]string) *output.Table {
	return output.NewTable(title, []string{"Metric", "Value"}, rows, nil, nil)
}

// CategoryTitle renders a category as a heading, "Contract Violation".
func CategoryTitle(c diag.Category) string {
	return titler.String(strings.ReplaceAll(c.String(), "-", " "))
}

// Diagnostics lists diagnostics, most severe category first, up to a
// positive limit. The footer counts each category.
func Diagnostics(ds []diag.Diagnostic, limit int) *output.Table {
	if limit <= 0 || limit > len(ds) {
		limit = len(ds)
	}
	sorted := slices.Clone(ds)
	slices.SortStableFunc(sorted, func(a, b diag.Diagnostic) int {
		return cmp.Compare(b.Category, a.Category)
	})

	counts := make(map[diag.Category]int)
	for _, d := range ds {
		counts[d.Category]++
	}

	rows := make([][]string, 0, limit)
	for i, d := range sorted {
		if i == limit {
			break
		}
		rows = append(rows, []string{CategoryTitle(d.Category), d.Type, d.Member, d.Reason})
	}

	var footer []string
	if len(ds) > 0 {
		summary := ""
		for _, c := range []diag.Category{diag.ContractViolation, diag.ValidationFailure, diag.InputInconsistency} {
			if counts[c] == 0 {
				continue
			}
			if summary != "" {
				summary += ", "
			}
			summary += fmt.Sprintf("%s %s", num(counts[c]), CategoryTitle(c))
		}
		if len(ds) > limit {
			summary += fmt.Sprintf(" (%s not shown)", num(len(ds)-limit))
		}
		footer = []string{summary, "", "", ""}
	}
	return output.NewTable("Diagnostics", []string{"Category", "Type", "Member", "Reason"}, rows, footer, ds)
}
