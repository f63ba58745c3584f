package main

import "github.com/KaramelBytes/stockcorr-cli/cmd"

func main() {
	cmd.Execute()
}
