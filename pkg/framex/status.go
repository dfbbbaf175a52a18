package framex

// toolStatus maps tool invocation names to human status phrases. The table
// is shared by the transport adapter (which emits tool frames) and the
// reducer (which renders them as status actions), so both layers agree.
var toolStatus = map[string]string{
	"web_search":       "Searching the web...",
	"code_interpreter": "Running code...",
	"file_search":      "Looking through files...",
	"image_gen":        "Generating an image...",
	"retrieval":        "Retrieving documents...",
	"calculator":       "Calculating...",
}

// genericToolStatus is used for tools the table does not know.
const genericToolStatus = "Working..."

// StatusForTool maps a tool invocation name to a human status phrase.
// Unknown tools get a generic phrase.
func StatusForTool(name string) string {
	if phrase, ok := toolStatus[name]; ok {
		return phrase
	}
	return genericToolStatus
}
