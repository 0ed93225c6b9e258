package main

import "github.com/oshokin/git-atomic/cmd/git-atomic/cmd"

func main() {
	cmd.Execute()
}
