package grouping

// Palette is the fixed series color cycle. Colors are handed out by group
// discovery order, never by the group's value.
var Palette = [...]string{
	"#1f77b4",
	"#ff7f0e",
	"#2ca02c",
	"#d62728",
	"#9467bd",
	"#8c564b",
	"#e377c2",
	"#7f7f7f",
	"#bcbd22",
	"#17becf",
}

// ColorAt returns the color for the i-th discovered group.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}
