package question

import "fmt"

var templates = map[int]Template{
	1: {
		Level:       1,
		Label:       "Level 1 - Basic Protocol",
		Goal:        "Test recall of standard guidelines",
		Form:        FormBinary,
		Vignette:    "2 sentences describing a straightforward case",
		OptionCount: 2,
		Rules: []string{
			"Ask a binary question; options are exactly [\"Yes\", \"No\"] or [\"True\", \"False\"].",
			"No distracting variables. The scenario follows standard protocol.",
			"The answer must be obvious from the excerpt.",
		},
	},
	2: {
		Level:       2,
		Label:       "Level 2 - Basic Application",
		Goal:        "Test understanding of first-line management",
		Form:        FormMultipleChoice,
		Vignette:    "2-3 sentences",
		OptionCount: 4,
		Rules: []string{
			"Ask for the most appropriate next step.",
			"Give exactly 4 options with one clearly correct; answer with the correct option's letter (A-D).",
		},
	},
	3: {
		Level:    3,
		Label:    "Level 3 - Intermediate Complexity",
		Goal:     "Test reasoning with distracting information",
		Form:     FormOpenReasoning,
		Vignette: "3-4 sentences",
		Rules: []string{
			"Embed exactly one irrelevant distractor finding in the vignette.",
			"Ask which factor matters most for management. Options must be empty.",
			"The explanation must say why the distractor is irrelevant.",
		},
	},
	4: {
		Level:       4,
		Label:       "Level 4 - Grey Zone",
		Goal:        "Test judgment where two approaches are defensible",
		Form:        FormTwoOption,
		Vignette:    "4-5 sentences with competing considerations",
		OptionCount: 2,
		Rules: []string{
			"Present two reasonable management approaches as the options.",
			"Ask which approach the guideline prefers; answer with A or B.",
			"The explanation must acknowledge the other approach is defensible.",
		},
	},
	5: {
		Level:    5,
		Label:    "Level 5 - Exception Handling",
		Goal:     "Test recognition of when standard protocol is risky",
		Form:     FormException,
		Vignette: "5-6 sentences",
		Rules: []string{
			"Following standard protocol must be harmful because of a subtle detail in the vignette.",
			"The standard answer should seem correct at first.",
			"Ask why the standard approach would be problematic. Options must be empty.",
			"The explanation must cite the specific exception, contraindication or warning from the excerpts.",
		},
	},
}

// TemplateFor returns the template for level.
func TemplateFor(level int) (Template, error) {
	t, ok := templates[level]
	if !ok {
		return Template{}, fmt.Errorf("no template for level %d", level)
	}
	return t, nil
}
