package pixel

// Eraser is the palette entry that removes pixels. It is only meaningful at the interaction boundary and is
// translated into a DeleteIntent before anything is sent or stored.
const Eraser = "ERASER"

// Palette is the default set of selectable colours, the first being the initial selection.
var Palette = []string{
	"#000000", "#FFFFFF", "#FF0000", "#00FF00", "#0000FF",
	"#FFFF00", "#FF00FF", "#00FFFF", "#800000", "#808000",
	"#008000", "#800080", "#008080", "#000080", "#C0C0C0", "#808080",
}

// Intent is what a click on a cell means: either SetIntent or DeleteIntent.
type Intent interface {
	isIntent()
}

type SetIntent struct {
	Color string
}

type DeleteIntent struct{}

func (SetIntent) isIntent()    {}
func (DeleteIntent) isIntent() {}

// IntentFor turns the selected palette entry into an intent.
func IntentFor(selected string) Intent {
	if selected == Eraser {
		return DeleteIntent{}
	}
	return SetIntent{Color: selected}
}
