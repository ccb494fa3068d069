package main

import "github.com/fatih/color"

var keptColor = color.New(color.FgGreen)
var deletedColor = color.New(color.FgRed)

// annotateKept formats path the way an interactive run highlights a
// preserved file, when color output is appropriate for the terminal.
func annotateKept(path string) string {
	return keptColor.Sprintf("kept %s", path)
}

// annotateDeleted formats path the way an interactive run highlights a
// removed file.
func annotateDeleted(path string) string {
	return deletedColor.Sprintf("deleted %s", path)
}
