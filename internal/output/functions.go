package output

import (
	"fmt"
	"io"
	"os"
)

// Out is where user-facing lines go; logs stay on stderr.
var Out io.Writer = os.Stdout

func PrintSuccess(text string) {
	fmt.Fprintln(Out, successStyle.Render(StyleSymbols["pass"]+" "+text))
}
func PrintError(text string) {
	fmt.Fprintln(Out, errorStyle.Render(StyleSymbols["fail"]+" "+text))
}
func PrintWarning(text string) {
	fmt.Fprintln(Out, warningStyle.Render(StyleSymbols["warning"]+" "+text))
}
func PrintPending(text string) {
	fmt.Fprintln(Out, pendingStyle.Render(StyleSymbols["pending"]+" "+text))
}
func PrintInfo(text string) {
	fmt.Fprintln(Out, infoStyle.Render(text))
}
