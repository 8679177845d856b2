package inspect

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gwillem/lerobot-inspect/pkg/dataset"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	keyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const rule = "============================================================"

// Render prints the report for a terminal.
func Render(w io.Writer, r Report) error {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(rule) + "\n")
	sb.WriteString(headerStyle.Render(fmt.Sprintf("%s inspection", r.Kind.Title())) + "\n")
	sb.WriteString(fmt.Sprintf("Dataset: %s\n", r.RepoID))
	sb.WriteString(headerStyle.Render(rule) + "\n\n")

	sb.WriteString(subHeaderStyle.Render("[1] Metadata (info.json features)") + "\n")
	writePass(&sb, r.Kind, r.Metadata, writeMetadataEntry)

	sb.WriteString(subHeaderStyle.Render(fmt.Sprintf("[2] Sample (episode %d, frame 0)", r.Episode)) + "\n")
	writePass(&sb, r.Kind, r.Sample, writeSampleEntry)
	if len(r.Rewards) > 0 {
		sb.WriteString(fmt.Sprintf("  rewards of the first %d frames:\n", len(r.Rewards)))
		for _, p := range r.Rewards {
			sb.WriteString(fmt.Sprintf("    frame %2d: %s\n", p.Frame, formatValue(p.Value)))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(subHeaderStyle.Render("[3] Policy features") + "\n")
	writePass(&sb, r.Kind, r.Policy, writePolicyEntry)

	sb.WriteString(subHeaderStyle.Render("Summary") + "\n")
	writeSummary(&sb, r.Kind, r.Summary)

	_, err := io.WriteString(w, sb.String())
	return err
}

type entryWriter func(sb *strings.Builder, kind Kind, e Entry)

func writePass(sb *strings.Builder, kind Kind, p Pass, write entryWriter) {
	switch {
	case p.Error != "":
		sb.WriteString("  " + warnStyle.Render("error: "+p.Error) + "\n\n")
		return
	case len(p.Entries) == 0:
		sb.WriteString("  " + dimStyle.Render(fmt.Sprintf("no %s features found", kind)) + "\n\n")
		return
	}
	for _, e := range p.Entries {
		write(sb, kind, e)
	}
	sb.WriteString("\n")
}

func writeMetadataEntry(sb *strings.Builder, kind Kind, e Entry) {
	sb.WriteString("  " + keyStyle.Render(e.Key) + "\n")
	sb.WriteString(fmt.Sprintf("    dtype: %s\n", e.DType))
	sb.WriteString(fmt.Sprintf("    shape: %s\n", dataset.FormatShape(e.Shape)))
	writeDims(sb, e)
	if e.Scalar {
		sb.WriteString("    " + successStyle.Render("scalar reward") + "\n")
	}
	if len(e.Names) > 0 {
		label := "names"
		if e.NamesAxis != "" {
			label = fmt.Sprintf("names (%s)", e.NamesAxis)
		}
		sb.WriteString(fmt.Sprintf("    %s: %s\n", label, strings.Join(e.Names, ", ")))
	}
	writeLayout(sb, e)
}

func writeSampleEntry(sb *strings.Builder, kind Kind, e Entry) {
	sb.WriteString("  " + keyStyle.Render(e.Key) + "\n")
	sb.WriteString(fmt.Sprintf("    shape: %s  dtype: %s\n", dataset.FormatShape(e.Shape), e.DType))
	writeDims(sb, e)
	switch {
	case e.Scalar && len(e.Values) == 1:
		sb.WriteString(fmt.Sprintf("    value: %s\n", formatValue(e.Values[0])))
	case len(e.Values) > 0:
		sb.WriteString(fmt.Sprintf("    values: %s\n", formatValues(e.Values)))
	}
	writeLayout(sb, e)
	if e.Source != "" {
		sb.WriteString("    " + dimStyle.Render("source: "+e.Source) + "\n")
	}
}

func writePolicyEntry(sb *strings.Builder, kind Kind, e Entry) {
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", keyStyle.Render(e.Key), e.Type, dataset.FormatShape(e.Shape)))
	writeDims(sb, e)
	writeLayout(sb, e)
}

func writeDims(sb *strings.Builder, e Entry) {
	switch {
	case e.Dim > 0:
		sb.WriteString(fmt.Sprintf("    dim: %d\n", e.Dim))
	case e.Elements > 0:
		sb.WriteString(fmt.Sprintf("    elements: %d\n", e.Elements))
	}
}

func writeLayout(sb *strings.Builder, e Entry) {
	if len(e.Axes) == 0 {
		if len(e.Shape) >= 3 && e.Layout == LayoutUnknown {
			sb.WriteString("    " + dimStyle.Render("layout: unknown") + "\n")
		}
		return
	}
	parts := make([]string, len(e.Axes))
	for i, a := range e.Axes {
		parts[i] = fmt.Sprintf("%s=%d", a.Name, a.Size)
	}
	sb.WriteString(fmt.Sprintf("    layout: %s %s, %s\n", e.Layout.Notation(), e.Layout.Describe(), strings.Join(parts, " ")))
}

func writeSummary(sb *strings.Builder, kind Kind, s Summary) {
	switch kind {
	case Action:
		if !s.Found {
			sb.WriteString("  " + warnStyle.Render("no 'action' feature in this dataset") + "\n")
			return
		}
		if len(s.Shape) == 1 {
			sb.WriteString("  " + successStyle.Render(fmt.Sprintf("action dimension: %d", s.Shape[0])) + "\n")
		} else {
			sb.WriteString("  " + successStyle.Render(fmt.Sprintf("action shape: %s", dataset.FormatShape(s.Shape))) + "\n")
		}
		for i, n := range s.Names {
			sb.WriteString(fmt.Sprintf("    [%d] %s\n", i, n))
		}

	case Reward:
		switch {
		case s.Found:
			line := fmt.Sprintf("reward: shape %s, dtype %s", dataset.FormatShape(s.Shape), s.DType)
			if s.Scalar {
				line += " (scalar per frame)"
			}
			sb.WriteString("  " + successStyle.Render(line) + "\n")
		case s.AltKey != "":
			sb.WriteString("  " + successStyle.Render(fmt.Sprintf("no 'reward' feature, rewards are stored as '%s'", s.AltKey)) + "\n")
		default:
			sb.WriteString("  " + warnStyle.Render("no reward feature in this dataset") + "\n")
			sb.WriteString("  " + dimStyle.Render("imitation-learning datasets usually record demonstrations without rewards") + "\n")
		}

	case State:
		if !s.Found {
			sb.WriteString("  " + warnStyle.Render("no 'observation.state' feature in this dataset") + "\n")
			return
		}
		if len(s.Shape) == 1 {
			sb.WriteString("  " + successStyle.Render(fmt.Sprintf("state dimension: %d", s.Shape[0])) + "\n")
		} else {
			sb.WriteString("  " + successStyle.Render(fmt.Sprintf("state shape: %s", dataset.FormatShape(s.Shape))) + "\n")
		}
		if len(s.Names) > 0 {
			sb.WriteString(fmt.Sprintf("    names: %s\n", strings.Join(s.Names, ", ")))
		}

	case Visual:
		if !s.Found {
			sb.WriteString("  " + warnStyle.Render("no image or video features in this dataset") + "\n")
			return
		}
		sb.WriteString(visualTable(s.Visuals) + "\n")
	}
}

func visualTable(visuals []VisualSize) string {
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	tableHeaderStyle := cellStyle.Bold(true).Foreground(lipgloss.Color("12"))

	rows := make([][]string, 0, len(visuals))
	for _, v := range visuals {
		size := dataset.FormatShape(v.Shape)
		if v.Height > 0 {
			size = fmt.Sprintf("%dx%dx%d", v.Height, v.Width, v.Channels)
		}
		rows = append(rows, []string{v.Key, size})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Camera", "H x W x C").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return cellStyle
		})
	return t.Render()
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func formatValues(vs []float64) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
