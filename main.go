// The main package for the narration executable.
package main

import "github.com/JakeFAU/narration-leads/cmd"

func main() {
	cmd.Execute()
}
