package selector

// Qualitative palettes; colours are handed out in order of appearance.
var (
	BoldPalette = []string{
		"#7F3C8D", "#11A579", "#3969AC", "#F2B701", "#E73F74", "#80BA5A",
		"#E68310", "#008695", "#CF1C90", "#F97B72", "#A5AA99",
	}
	PrismPalette = []string{
		"#5F4690", "#1D6996", "#38A6A5", "#0F8554", "#73AF48", "#EDAD08",
		"#E17C05", "#CC503E", "#94346E", "#6F4070", "#994E95", "#666666",
	}
)

func pick(palette []string, i int) string {
	if len(palette) == 0 {
		return ""
	}
	return palette[i%len(palette)]
}
