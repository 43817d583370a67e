package main

import "github.com/tonimelisma/eduapi-client/cmd"

func main() {
	cmd.Execute()
}
