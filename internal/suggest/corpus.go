package suggest

// upcycleRules maps a normalized item type to fixed ideas.
var upcycleRules = map[string][]string{
	"tshirt":  {"Turn into cleaning rags", "Cut into a tote bag", "Use as pillow stuffing"},
	"jeans":   {"Convert into shorts", "Patchwork tote bag", "Denim coasters"},
	"shirt":   {"Make an apron", "Reuse buttons for crafts"},
	"dress":   {"Turn into a skirt", "Make doll clothes"},
	"sweater": {"Make hand warmers", "Pet bed stuffing"},
}

// genericIdeas answer a rules lookup without an item type.
var genericIdeas = []string{
	"Organize a clothing swap with friends.",
	"Donate clothes in good condition.",
	"Use scraps for DIY crafts.",
}

// genericSimilar answer a similarity lookup without an item type.
var genericSimilar = []string{
	"Donate to charity",
	"Transform fabric into accessories",
	"DIY home decor projects",
}

// NoSuggestions is returned when nothing matches.
const NoSuggestions = "No suggestions available. Try a donation or recycle center."

type idea struct {
	category string
	text     string
}

// ideaCorpus is the retrieval corpus, in a fixed order.
var ideaCorpus = []idea{
	{"t-shirt", "Turn old t-shirts into reusable tote bags"},
	{"t-shirt", "Cut into cleaning cloths"},
	{"t-shirt", "Print designs and resell as upcycled fashion"},
	{"jeans", "Make denim shorts"},
	{"jeans", "Patchwork into a quilt"},
	{"jeans", "Transform into a backpack"},
	{"jacket", "Convert into a vest"},
	{"jacket", "Add patches for streetwear look"},
	{"jacket", "Reuse fabric for handbags"},
	{"dress", "Convert into a skirt"},
	{"dress", "Turn into pillow covers"},
	{"dress", "Use fabric for patchwork art"},
}

func (i idea) document() string { return i.category + " " + i.text }
