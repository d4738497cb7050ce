package excludes

// Suggestion is a pre-defined group of extensions offered during
// interactive configuration.
type Suggestion struct {
	Name        string
	Description string
	Extensions  []string
}

// Suggestions contains the built-in exclusion groups.
var Suggestions = []Suggestion{
	{
		Name:        "Temporary files",
		Description: "Editor and application scratch files",
		Extensions:  []string{".tmp", ".temp", ".bak", ".swp", ".swo", ".part"},
	},
	{
		Name:        "Logs",
		Description: "Application log output",
		Extensions:  []string{".log"},
	},
	{
		Name:        "Caches",
		Description: "Compiled and cached artifacts",
		Extensions:  []string{".cache", ".pyc", ".class", ".o"},
	},
	{
		Name:        "OS metadata",
		Description: "Desktop metadata leftovers",
		Extensions:  []string{".ds_store", ".lnk", ".stackdump"},
	},
}
