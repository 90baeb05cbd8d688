package color

import (
	"hash/fnv"
	"strings"

	fcolor "github.com/fatih/color"
)

var statusColors = map[string]*fcolor.Color{
	"todo":        fcolor.New(fcolor.FgYellow),
	"in-progress": fcolor.New(fcolor.FgCyan, fcolor.Bold),
	"done":        fcolor.New(fcolor.FgGreen),
}

var unknownStatus = fcolor.New(fcolor.FgHiBlack)

// Palette for free-form labels such as categories.
var labelColors = []*fcolor.Color{
	fcolor.New(fcolor.FgHiRed),
	fcolor.New(fcolor.FgHiGreen),
	fcolor.New(fcolor.FgHiYellow),
	fcolor.New(fcolor.FgHiBlue),
	fcolor.New(fcolor.FgHiMagenta),
	fcolor.New(fcolor.FgHiCyan),
	fcolor.New(fcolor.FgRed),
	fcolor.New(fcolor.FgGreen),
	fcolor.New(fcolor.FgBlue),
	fcolor.New(fcolor.FgMagenta),
}

// Status renders a status column name. Unknown statuses are dimmed; an empty
// status renders as "-".
func Status(status string) string {
	if status == "" {
		return unknownStatus.Sprint("-")
	}
	c, ok := statusColors[strings.ToLower(status)]
	if !ok {
		c = unknownStatus
	}
	return c.Sprint(status)
}

// Label returns a color that is stable for the given label.
func Label(label string) *fcolor.Color {
	h := fnv.New32a()
	h.Write([]byte(label))
	return labelColors[int(h.Sum32()%uint32(len(labelColors)))]
}

// FormatLabel formats a label as "[label]" in its stable color.
func FormatLabel(label string) string {
	if label == "" {
		return ""
	}
	return Label(label).Sprintf("[%s]", label)
}

// Event renders a push-channel event name.
func Event(name string) string {
	switch {
	case strings.HasSuffix(name, ":delete"):
		return fcolor.RedString(name)
	case strings.HasSuffix(name, ":create"):
		return fcolor.GreenString(name)
	case strings.HasPrefix(name, "sync:"):
		return fcolor.BlueString(name)
	default:
		return fcolor.YellowString(name)
	}
}

// Disable turns coloring off globally, as with NO_COLOR.
func Disable() {
	fcolor.NoColor = true
}

