package main

import "cardsync/cmd"

func main() {
	cmd.Execute()
}
