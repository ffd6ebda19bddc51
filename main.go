package main

import "github.com/KaramelBytes/datapro-cli/cmd"

func main() {
	cmd.Execute()
}
