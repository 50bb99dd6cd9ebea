package main

import "org-janitor/cmd"

func main() {
	cmd.Execute()
}
