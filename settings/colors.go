package settings

// palette is the deterministic measure color cycle, keyed by index. The
// first eight entries follow the Dark2 categorical scheme.
var palette = [10]string{
	"#1b9e77",
	"#d95f02",
	"#7570b3",
	"#e7298a",
	"#66a61e",
	"#e6ab02",
	"#a6761d",
	"#666666",
	"#1f78b4",
	"#b15928",
}

// colorAt returns the palette color for the given index
func colorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}

// pickColor returns the first palette color not already in use, trying at
// most len(palette) indexes. When the palette is exhausted the fallback is
// returned unchanged.
func pickColor(used map[string]bool, fallback string) string {
	for i := 0; i < len(palette); i++ {
		if c := colorAt(i); !used[c] {
			return c
		}
	}
	return fallback
}
