package main

import "lifeQuestClient/cli"

func main() {
	cli.Execute()
}
