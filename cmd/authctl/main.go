package main

import "github.com/eyoklama/authclient/cmd/authctl/cmd"

func main() {
	cmd.Execute()
}
