package main

import "github.com/gh-tui-tools/gh-activity-chronicle/cmd"

func main() {
	cmd.Execute()
}
