package main

import "github.com/jpopelka/dist-git-to-source-git/cmd/d2s/cmd"

func main() {
	cmd.Execute()
}
