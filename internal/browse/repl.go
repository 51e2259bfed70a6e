package browse

import (
	"os"

	"github.com/c-bata/go-prompt"
)

var suggestions = []prompt.Suggest{
	{Text: "open", Description: "open an event file"},
	{Text: "next", Description: "advance to the next event"},
	{Text: "event", Description: "show the current event header"},
	{Text: "particles", Description: "list particles, optionally by status"},
	{Text: "vertices", Description: "list vertices"},
	{Text: "attrs", Description: "show attributes"},
	{Text: "stats", Description: "show stream counters"},
	{Text: "help", Description: "list commands"},
	{Text: "quit", Description: "leave"},
}

func completer(d prompt.Document) []prompt.Suggest {
	if d.TextBeforeCursor() != d.GetWordBeforeCursor() {
		// Only the command word completes; arguments are paths and ids.
		return nil
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}

// Run drives the interactive prompt until quit or EOF. An initial path,
// when non-empty, is opened before the first prompt.
func Run(path string) error {
	s := NewSession(os.Stdout)
	defer s.Close()

	if path != "" {
		s.Execute("open " + path)
	}

	p := prompt.New(
		s.Execute,
		completer,
		prompt.OptionPrefix("hepio> "),
		prompt.OptionTitle("hepio browse"),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			return s.Quit()
		}),
	)
	p.Run()
	return s.Close()
}
